// Package logger wraps zap with a global sugared console logger,
// context helpers (ToContext/FromContext/WithName/WithKV/WithFields),
// level parsing and Infof/ErrorKV style shortcuts.
//
// Services take a context and pull the logger from it, so names and
// key-value pairs attached upstream show up in every line below.
package logger
