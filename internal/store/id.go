package store

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

const roomIDLen = 8

var (
	ulidEntropy   = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
	ulidEntropyMu sync.Mutex
)

// NewID returns a lexically sortable id, used for chat messages and action
// log rows.
func NewID() string {
	ulidEntropyMu.Lock()
	defer ulidEntropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulidEntropy).String()
}

// NewRoomID returns a short opaque room id. Collisions are possible and
// surface as AlreadyExists at creation time.
func NewRoomID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:roomIDLen]
}
