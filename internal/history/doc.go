// Package history records alarm status changes, classification results and
// sensor changes as InfluxDB points so the timeline can be graphed later.
package history
