// Package jelly provides a public façade over the flow graph checker for
// programs outside this module. It re-exports the graph, result and error
// types and offers a Runtime that checks graphs against an in-memory store.
package jelly
