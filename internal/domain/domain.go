// Package domain holds the shared domain contracts and errors of the
// pawtrace matching service.
package domain

// KeyPrefix namespaces every key this service writes to the store.
const KeyPrefix = "pawtrace:"
