// Package metrics exposes the Prometheus collectors of the jelly checker:
// check runs and their duration, rejections by error kind, anchored payloads
// and compile cache lookups. jelly-server serves them on /metrics.
package metrics
