// Package idgen produces the identifiers coursesync stores: sync run ids in
// the ledger and correlation ids in logs.
package idgen

import (
	"github.com/google/uuid"
)

// Generator produces unique string identifiers.
type Generator func() string

// UUIDv7 returns a Generator that produces RFC 9562 UUID v7 strings.
// Time-sortable, so run ids order by start time.
func UUIDv7() Generator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// Prefixed wraps a Generator and prepends a fixed prefix to every ID.
func Prefixed(prefix string, gen Generator) Generator {
	return func() string {
		return prefix + gen()
	}
}

// Default is UUIDv7.
var Default Generator = UUIDv7()

// RunID generates sync run ids ("run_<uuidv7>").
var RunID Generator = Prefixed("run_", Default)

// RequestID generates correlation ids for tool calls ("req_<uuidv7>").
var RequestID Generator = Prefixed("req_", Default)
