package store

// DataStore is the write interface used when persisting a library set.
// Both Store (direct SQLite) and BatchedStore (in-memory buffering committed
// in one transaction) implement it.
type DataStore interface {
	// Inserts return the assigned ID.
	InsertLibrary(l *Library) (int64, error)
	InsertNamespace(n *Namespace) (int64, error)
	InsertType(t *Type) (int64, error)
	InsertMember(m *Member) (int64, error)
}

// Compile-time check: *Store satisfies DataStore.
var _ DataStore = (*Store)(nil)
