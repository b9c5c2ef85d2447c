// Package security implements the status-transition engine.
//
// The Engine turns sensor events, arming requests and camera frames into
// alarm status changes. It keeps no state of its own besides the listener
// registry: every operation reads the repository, decides, writes the result
// back and notifies listeners while holding a single lock.
package security
