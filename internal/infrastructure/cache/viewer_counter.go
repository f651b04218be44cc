package cache

import "sync"

// ViewerCounter tracks concurrently connected viewers per room. Unlike the
// other cached views it has no ledger source: it is process-local truth
// driven by connection lifecycle, never expires via TTL, and is reset when
// a room ends.
type ViewerCounter struct {
	mu    sync.RWMutex
	rooms map[uint64]*roomCounter
}

// roomCounter carries its own lock so rooms never contend with each other.
type roomCounter struct {
	mu    sync.Mutex
	count int64
}

func NewViewerCounter() *ViewerCounter {
	return &ViewerCounter{rooms: make(map[uint64]*roomCounter)}
}

func (v *ViewerCounter) room(roomID uint64) *roomCounter {
	v.mu.RLock()
	rc, ok := v.rooms[roomID]
	v.mu.RUnlock()
	if ok {
		return rc
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if rc, ok = v.rooms[roomID]; ok {
		return rc
	}
	rc = &roomCounter{}
	v.rooms[roomID] = rc
	return rc
}

// Increment adds one viewer and returns the new count.
func (v *ViewerCounter) Increment(roomID uint64) int64 {
	rc := v.room(roomID)
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.count++
	return rc.count
}

// Decrement removes one viewer and returns the new count. Clamped at zero:
// duplicate disconnect notifications must not drive the count negative.
func (v *ViewerCounter) Decrement(roomID uint64) int64 {
	rc := v.room(roomID)
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.count > 0 {
		rc.count--
	}
	return rc.count
}

// Count returns the current viewer count for a room.
func (v *ViewerCounter) Count(roomID uint64) int64 {
	v.mu.RLock()
	rc, ok := v.rooms[roomID]
	v.mu.RUnlock()
	if !ok {
		return 0
	}
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.count
}

// Reset drops the counter for a room entirely.
func (v *ViewerCounter) Reset(roomID uint64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.rooms, roomID)
}
