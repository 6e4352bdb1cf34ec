package store

import "github.com/oklog/ulid/v2"

// NewID returns a lexically sortable agent id. ulid.Make draws from a
// process-wide monotonic source, so ids created in the same millisecond
// still sort in creation order.
func NewID() string {
	return ulid.Make().String()
}
