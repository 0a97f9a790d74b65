// Package monitoring provides Prometheus metrics for the operation
// dispatcher and staging channel.
package monitoring
