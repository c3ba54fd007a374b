package ledger

import "sync"

// pairKey identifies one (item, location) stock record.
type pairKey struct {
	itemID     int64
	locationID int64
}

func (k pairKey) less(o pairKey) bool {
	if k.itemID != o.itemID {
		return k.itemID < o.itemID
	}
	return k.locationID < o.locationID
}

// keyLocks hands out one mutex per (item, location) pair so that mutations on
// the same pair serialize while unrelated pairs proceed concurrently. Mutexes
// are created lazily and never discarded; the key space is bounded by the
// number of stocked pairs.
type keyLocks struct {
	mu    sync.Mutex
	locks map[pairKey]*sync.Mutex
}

func (k *keyLocks) get(key pairKey) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.locks == nil {
		k.locks = make(map[pairKey]*sync.Mutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	return m
}

// lock acquires the mutex for key and returns its release func.
func (k *keyLocks) lock(key pairKey) func() {
	m := k.get(key)
	m.Lock()
	return m.Unlock
}

// lockPair acquires both mutexes in a fixed global order (sorted by item id,
// then location id) so two overlapping transfers cannot deadlock. Locking the
// same key twice is collapsed to a single acquisition.
func (k *keyLocks) lockPair(a, b pairKey) func() {
	if a == b {
		return k.lock(a)
	}
	if b.less(a) {
		a, b = b, a
	}
	first, second := k.get(a), k.get(b)
	first.Lock()
	second.Lock()
	return func() {
		second.Unlock()
		first.Unlock()
	}
}
