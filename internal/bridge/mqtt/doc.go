// Package mqtt connects the security engine to an MQTT broker.
//
// Sensor nodes publish their state to <prefix>/sensor/<TYPE>/<name>/set,
// cameras publish frames to <prefix>/camera/frame and wall panels request
// arming changes on <prefix>/arming/set. In the other direction the bridge
// is a status listener that publishes the alarm status (retained), sensor
// states (retained) and cat detections.
package mqtt
