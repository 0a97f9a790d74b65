// Package vfs is the typed operation surface over the bridge.
//
// Each method generates a JavaScript operation body, dispatches it
// through the polling bridge, and decodes the completion value into a
// typed result. Callers never see generated code or scratch slots.
package vfs
