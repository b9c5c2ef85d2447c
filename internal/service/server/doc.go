// Package server runs the catpoint security server: it loads the settings,
// builds storage, classifier, engine and optional MQTT and InfluxDB
// listeners, and serves the security service over gRPC.
package server
