// Package state implements persistence for the security state: the sensor
// set, the arming status and the alarm status.
//
// Repository is the interface the engine depends on. MemoryRepository keeps
// everything in process, FileRepository mirrors every change into a YAML
// document on disk and SQLiteRepository stores the state in a SQLite file.
package state
