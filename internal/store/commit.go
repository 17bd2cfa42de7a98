package store

import (
	"database/sql"
	"fmt"
)

// CommitBatch inserts all buffered rows from a BatchedStore into SQLite
// within a single transaction. Fake (negative) IDs are remapped to real
// (positive) IDs, and parent references within the batch are rewritten
// using the fakeToReal mapping.
//
// Insert order respects FK dependencies: libraries, namespaces, types,
// members.
func (s *Store) CommitBatch(batch *BatchedStore) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("commit batch: begin: %w", err)
	}
	defer tx.Rollback()
	if err := commitBatchTx(tx, batch); err != nil {
		return err
	}
	return tx.Commit()
}

// ReplaceWithBatch clears the store and commits batch in the same
// transaction.
func (s *Store) ReplaceWithBatch(batch *BatchedStore) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("replace: begin: %w", err)
	}
	defer tx.Rollback()
	if err := resetTx(tx); err != nil {
		return err
	}
	if err := commitBatchTx(tx, batch); err != nil {
		return err
	}
	return tx.Commit()
}

func commitBatchTx(tx *sql.Tx, batch *BatchedStore) error {
	batch.mu.Lock()
	defer batch.mu.Unlock()

	fakeToReal := make(map[int64]int64)
	resolve := func(id int64) (int64, bool) {
		if id >= 0 {
			return id, true
		}
		rid, ok := fakeToReal[id]
		return rid, ok
	}

	// 1. Libraries
	for _, l := range batch.Libraries {
		realID, err := insertLibraryTx(tx, &l)
		if err != nil {
			return fmt.Errorf("commit batch: library %q: %w", l.Name, err)
		}
		fakeToReal[l.ID] = realID
	}

	// 2. Namespaces
	for _, n := range batch.Namespaces {
		libID, ok := resolve(n.LibraryID)
		if !ok {
			return fmt.Errorf("commit batch: namespace %q has library_id=%d not in fakeToReal map", n.Name, n.LibraryID)
		}
		n.LibraryID = libID
		realID, err := insertNamespaceTx(tx, &n)
		if err != nil {
			return fmt.Errorf("commit batch: namespace %q: %w", n.Name, err)
		}
		fakeToReal[n.ID] = realID
	}

	// 3. Types
	for _, t := range batch.Types {
		nsID, ok := resolve(t.NamespaceID)
		if !ok {
			return fmt.Errorf("commit batch: type %q has namespace_id=%d not in fakeToReal map", t.Name, t.NamespaceID)
		}
		t.NamespaceID = nsID
		realID, err := insertTypeTx(tx, &t)
		if err != nil {
			return fmt.Errorf("commit batch: type %q: %w", t.Name, err)
		}
		fakeToReal[t.ID] = realID
	}

	// 4. Members
	for _, m := range batch.Members {
		typeID, ok := resolve(m.TypeID)
		if !ok {
			return fmt.Errorf("commit batch: member %q has type_id=%d not in fakeToReal map (have %d types)", m.Name, m.TypeID, len(batch.Types))
		}
		m.TypeID = typeID
		if _, err := insertMemberTx(tx, &m); err != nil {
			return fmt.Errorf("commit batch: member %q: %w", m.Name, err)
		}
	}
	return nil
}

// --- Transaction-scoped insert helpers ---
// These mirror the Store insert methods but accept *sql.Tx instead of using s.db.

func insertLibraryTx(tx *sql.Tx, l *Library) (int64, error) {
	res, err := tx.Exec(
		"INSERT INTO libraries (ordinal, name, display) VALUES (?, ?, ?)",
		l.Ordinal, l.Name, l.Display,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func insertNamespaceTx(tx *sql.Tx, n *Namespace) (int64, error) {
	res, err := tx.Exec(
		"INSERT INTO namespaces (library_id, ordinal, name) VALUES (?, ?, ?)",
		n.LibraryID, n.Ordinal, n.Name,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func insertTypeTx(tx *sql.Tx, t *Type) (int64, error) {
	res, err := tx.Exec(
		`INSERT INTO types (namespace_id, ordinal, name, kind, signature, signature_hash)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		t.NamespaceID, t.Ordinal, t.Name, t.Kind, t.Signature, t.SignatureHash,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func insertMemberTx(tx *sql.Tx, m *Member) (int64, error) {
	res, err := tx.Exec(
		`INSERT INTO members (type_id, ordinal, name, kind, signature, signature_hash)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		m.TypeID, m.Ordinal, m.Name, m.Kind, m.Signature, m.SignatureHash,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}
