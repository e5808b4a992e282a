package notify

import (
	"sync/atomic"
	"time"
)

// Kind tags a coarse-grained board change.
type Kind string

const (
	// KindColumnsReordered means column order values changed.
	KindColumnsReordered Kind = "columns-reordered"
	// KindCardsChanged means cards were created, updated, moved or deleted.
	KindCardsChanged Kind = "cards-changed"
)

// Event describes a board mutation announced on the workspace channel.
// Time is a strictly increasing unix-nano stamp so consumers can discard
// stale announcements.
type Event struct {
	WorkspaceID string `json:"workspaceId"`
	Kinds       []Kind `json:"kinds"`
	Time        int64  `json:"time"`
}

var lastTimestamp int64

// NextTimestamp returns a unix-nano timestamp guaranteed to increase across
// concurrent callers within this process.
func NextTimestamp() int64 {
	for {
		now := time.Now().UnixNano()
		last := atomic.LoadInt64(&lastTimestamp)
		if now <= last {
			now = last + 1
		}
		if atomic.CompareAndSwapInt64(&lastTimestamp, last, now) {
			return now
		}
	}
}
