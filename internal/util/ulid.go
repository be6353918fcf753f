package util

import (
	"github.com/oklog/ulid/v2"
)

// NewRunID generates a ULID identifying one export run. ulid.Make reads from a
// process-wide monotonic entropy source, so IDs are safe to create from
// concurrent requests and sort by creation time.
func NewRunID() string {
	return ulid.Make().String()
}
