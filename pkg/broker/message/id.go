package message

import (
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// IDGenerator produces collision-free, lexically sortable ids.
type IDGenerator interface {
	NewID() string
}

// UUIDGenerator prefixes a hex-encoded nanosecond timestamp to a uuid v4
// (uuid.New()), giving two ids minted in order a lexically sortable
// ordering in addition to global uniqueness.
type UUIDGenerator struct {
	now func() time.Time
}

// NewUUIDGenerator returns the default id generator.
func NewUUIDGenerator() *UUIDGenerator {
	return &UUIDGenerator{now: time.Now}
}

func (g *UUIDGenerator) NewID() string {
	now := time.Now()
	if g.now != nil {
		now = g.now()
	}
	var tsBuf [8]byte
	ts := uint64(now.UnixNano())
	for i := 7; i >= 0; i-- {
		tsBuf[i] = byte(ts)
		ts >>= 8
	}
	return hex.EncodeToString(tsBuf[:]) + uuid.New().String()
}
