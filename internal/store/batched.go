package store

import "sync"

// BatchedStore buffers inserts in memory using fake (negative) IDs. A
// library set is written into a batch and committed in one transaction, so
// a failed save leaves the database untouched.
//
// Thread safety: the mutex protects fake ID allocation and slice appends.
type BatchedStore struct {
	mu sync.Mutex

	Libraries  []Library
	Namespaces []Namespace
	Types      []Type
	Members    []Member

	nextFakeID int64 // starts at -1, decrements
}

// Compile-time check: *BatchedStore satisfies DataStore.
var _ DataStore = (*BatchedStore)(nil)

// NewBatchedStore creates an empty batch.
func NewBatchedStore() *BatchedStore {
	return &BatchedStore{nextFakeID: -1}
}

func (b *BatchedStore) allocFakeID() int64 {
	id := b.nextFakeID
	b.nextFakeID--
	return id
}

func (b *BatchedStore) InsertLibrary(l *Library) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	l.ID = b.allocFakeID()
	b.Libraries = append(b.Libraries, *l)
	return l.ID, nil
}

func (b *BatchedStore) InsertNamespace(n *Namespace) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n.ID = b.allocFakeID()
	b.Namespaces = append(b.Namespaces, *n)
	return n.ID, nil
}

func (b *BatchedStore) InsertType(t *Type) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t.ID = b.allocFakeID()
	b.Types = append(b.Types, *t)
	return t.ID, nil
}

func (b *BatchedStore) InsertMember(m *Member) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m.ID = b.allocFakeID()
	b.Members = append(b.Members, *m)
	return m.ID, nil
}

// Len returns the number of buffered rows.
func (b *BatchedStore) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.Libraries) + len(b.Namespaces) + len(b.Types) + len(b.Members)
}
