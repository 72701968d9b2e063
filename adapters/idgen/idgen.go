// Package idgen generates identifiers for ingested items that lack one.
package idgen

import (
	"strconv"
	"sync/atomic"

	"github.com/artpar/stacgate/ports"
	"github.com/google/uuid"
)

// UUID generates random version 4 UUIDs. They match the catalog id pattern.
type UUID struct{}

// New returns a new UUID.
func (UUID) New() string {
	return uuid.NewString()
}

// Sequential generates prefix1, prefix2, ... for deterministic tests.
type Sequential struct {
	prefix string
	n      atomic.Uint64
}

// NewSequential creates a sequential generator.
func NewSequential(prefix string) *Sequential {
	return &Sequential{prefix: prefix}
}

// New returns the next id.
func (s *Sequential) New() string {
	return s.prefix + strconv.FormatUint(s.n.Add(1), 10)
}

var (
	_ ports.IDGenerator = UUID{}
	_ ports.IDGenerator = (*Sequential)(nil)
)
