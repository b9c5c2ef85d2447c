// Package config defines the settings used by the catpoint binaries and
// provides helpers to load, validate and save them in YAML format.
//
// Validate fills in defaults: a file repository next to the binary, the
// fake classifier with a 50% threshold, and disabled MQTT and InfluxDB.
package config
