// Package target hosts the sandboxed script execution context.
//
// The context is a hardened goja VM whose only inbound interface is a
// synchronous "evaluate a string of code" primitive. Generated code
// running inside it reaches storage through the __sfs host object and
// schedules asynchronous work through __sfs.defer; results travel back
// out through global scratch slots read by the polling dispatcher.
package target
