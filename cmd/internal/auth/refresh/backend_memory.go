package refresh

import (
	"context"
	"sync"
	"time"
)

type memEntry struct {
	rec      Record
	deadline time.Time
}

// MemoryBackend is a process-local Backend. Entries past their TTL are
// treated as absent and dropped on the next access or the next Sweep.
type MemoryBackend struct {
	mu     sync.Mutex
	now    func() time.Time
	byID   map[string]memEntry
	byHash map[string]string
	byUser map[string]map[string]struct{}
}

// NewMemoryBackend returns an empty MemoryBackend. now may be nil.
func NewMemoryBackend(now func() time.Time) *MemoryBackend {
	if now == nil {
		now = time.Now
	}
	return &MemoryBackend{
		now:    now,
		byID:   make(map[string]memEntry),
		byHash: make(map[string]string),
		byUser: make(map[string]map[string]struct{}),
	}
}

// Put stores rec until ttl from now.
func (b *MemoryBackend) Put(_ context.Context, rec Record, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if id, ok := b.byHash[rec.TokenHash]; ok {
		if e, live := b.liveLocked(id); live && e.rec.ID != rec.ID {
			return ErrDuplicateToken
		}
	}

	b.byID[rec.ID] = memEntry{rec: rec, deadline: b.now().Add(ttl)}
	b.byHash[rec.TokenHash] = rec.ID
	set := b.byUser[rec.UserID]
	if set == nil {
		set = make(map[string]struct{})
		b.byUser[rec.UserID] = set
	}
	set[rec.ID] = struct{}{}
	return nil
}

// GetByTokenHash returns the live record with the given digest.
func (b *MemoryBackend) GetByTokenHash(_ context.Context, tokenHash string) (Record, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id, ok := b.byHash[tokenHash]
	if !ok {
		return Record{}, false, nil
	}
	e, live := b.liveLocked(id)
	if !live {
		return Record{}, false, nil
	}
	return e.rec, true, nil
}

// Delete removes rec if present.
func (b *MemoryBackend) Delete(_ context.Context, rec Record) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if e, ok := b.byID[rec.ID]; ok {
		b.removeLocked(e.rec)
	}
	return nil
}

// DeleteByUser removes every record owned by userID and returns how many there were.
func (b *MemoryBackend) DeleteByUser(_ context.Context, userID string) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var n int64
	for id := range b.byUser[userID] {
		if e, ok := b.byID[id]; ok {
			b.removeLocked(e.rec)
			n++
		}
	}
	delete(b.byUser, userID)
	return n, nil
}

// Sweep drops entries whose deadline is at or before now.
func (b *MemoryBackend) Sweep(_ context.Context, now time.Time) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var n int64
	for _, e := range b.byID {
		if !now.Before(e.deadline) {
			b.removeLocked(e.rec)
			n++
		}
	}
	return n, nil
}

// liveLocked returns the entry for id, evicting it if its TTL has passed.
func (b *MemoryBackend) liveLocked(id string) (memEntry, bool) {
	e, ok := b.byID[id]
	if !ok {
		return memEntry{}, false
	}
	if !b.now().Before(e.deadline) {
		b.removeLocked(e.rec)
		return memEntry{}, false
	}
	return e, true
}

func (b *MemoryBackend) removeLocked(rec Record) {
	delete(b.byID, rec.ID)
	if b.byHash[rec.TokenHash] == rec.ID {
		delete(b.byHash, rec.TokenHash)
	}
	if set := b.byUser[rec.UserID]; set != nil {
		delete(set, rec.ID)
		if len(set) == 0 {
			delete(b.byUser, rec.UserID)
		}
	}
}
