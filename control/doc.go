// Package control
// Author: momentics <momentics@gmail.com>
//
// Runtime metrics and debug introspection layer.
//
// Provides concurrent-safe observability primitives including:
//   - Prometheus collectors for selector, socket and channel activity
//   - Debug probe registration and state export
//   - Process-level probes (open descriptors)
//
// Every Metrics method accepts a nil receiver so components can run uninstrumented.
package control
