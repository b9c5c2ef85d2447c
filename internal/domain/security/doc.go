// Package security contains the core domain types of the monitoring service.
//
// It defines the alarm and arming enumerations, sensor types, and the Sensor
// entity whose identity is its name plus type.
package security
