package store

import (
	"fmt"
)

type scanner interface{ Scan(...any) error }

// --- Library operations ---

func (s *Store) InsertLibrary(l *Library) (int64, error) {
	res, err := s.db.Exec(
		"INSERT INTO libraries (ordinal, name, display) VALUES (?, ?, ?)",
		l.Ordinal, l.Name, l.Display,
	)
	if err != nil {
		return 0, fmt.Errorf("insert library: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	l.ID = id
	return id, nil
}

// Libraries returns every library in ordinal order.
func (s *Store) Libraries() ([]*Library, error) {
	rows, err := s.db.Query("SELECT id, ordinal, name, display FROM libraries ORDER BY ordinal, id")
	if err != nil {
		return nil, fmt.Errorf("libraries: %w", err)
	}
	defer rows.Close()
	var out []*Library
	for rows.Next() {
		l := &Library{}
		if err := rows.Scan(&l.ID, &l.Ordinal, &l.Name, &l.Display); err != nil {
			return nil, fmt.Errorf("scan library: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// --- Namespace operations ---

func (s *Store) InsertNamespace(n *Namespace) (int64, error) {
	res, err := s.db.Exec(
		"INSERT INTO namespaces (library_id, ordinal, name) VALUES (?, ?, ?)",
		n.LibraryID, n.Ordinal, n.Name,
	)
	if err != nil {
		return 0, fmt.Errorf("insert namespace: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	n.ID = id
	return id, nil
}

func (s *Store) NamespacesByLibrary(libraryID int64) ([]*Namespace, error) {
	rows, err := s.db.Query(
		"SELECT id, library_id, ordinal, name FROM namespaces WHERE library_id = ? ORDER BY ordinal, id", libraryID,
	)
	if err != nil {
		return nil, fmt.Errorf("namespaces by library: %w", err)
	}
	defer rows.Close()
	var out []*Namespace
	for rows.Next() {
		n := &Namespace{}
		if err := rows.Scan(&n.ID, &n.LibraryID, &n.Ordinal, &n.Name); err != nil {
			return nil, fmt.Errorf("scan namespace: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// --- Type operations ---

func (s *Store) InsertType(t *Type) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO types (namespace_id, ordinal, name, kind, signature, signature_hash)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		t.NamespaceID, t.Ordinal, t.Name, t.Kind, t.Signature, t.SignatureHash,
	)
	if err != nil {
		return 0, fmt.Errorf("insert type: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	t.ID = id
	return id, nil
}

// TypeCols is the column list for scanning types.
const TypeCols = "id, namespace_id, ordinal, name, kind, signature, signature_hash"

func scanType(sc scanner) (*Type, error) {
	t := &Type{}
	err := sc.Scan(&t.ID, &t.NamespaceID, &t.Ordinal, &t.Name, &t.Kind, &t.Signature, &t.SignatureHash)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Store) queryTypes(query string, args ...any) ([]*Type, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Type
	for rows.Next() {
		t, err := scanType(rows)
		if err != nil {
			return nil, fmt.Errorf("scan type: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) TypesByNamespace(namespaceID int64) ([]*Type, error) {
	return s.queryTypes("SELECT "+TypeCols+" FROM types WHERE namespace_id = ? ORDER BY ordinal, id", namespaceID)
}

// TypesBySignatureHash finds types whose declaration line hashes to hash.
func (s *Store) TypesBySignatureHash(hash string) ([]*Type, error) {
	return s.queryTypes("SELECT "+TypeCols+" FROM types WHERE signature_hash = ? ORDER BY id", hash)
}

// --- Member operations ---

func (s *Store) InsertMember(m *Member) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO members (type_id, ordinal, name, kind, signature, signature_hash)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		m.TypeID, m.Ordinal, m.Name, m.Kind, m.Signature, m.SignatureHash,
	)
	if err != nil {
		return 0, fmt.Errorf("insert member: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	m.ID = id
	return id, nil
}

// MemberCols is the column list for scanning members.
const MemberCols = "id, type_id, ordinal, name, kind, signature, signature_hash"

func scanMember(sc scanner) (*Member, error) {
	m := &Member{}
	err := sc.Scan(&m.ID, &m.TypeID, &m.Ordinal, &m.Name, &m.Kind, &m.Signature, &m.SignatureHash)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Store) queryMembers(query string, args ...any) ([]*Member, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) MembersByType(typeID int64) ([]*Member, error) {
	return s.queryMembers("SELECT "+MemberCols+" FROM members WHERE type_id = ? ORDER BY ordinal, id", typeID)
}

// MembersByTypes loads the members of several types in one query, grouped
// by type ID and in ordinal order within each group.
func (s *Store) MembersByTypes(typeIDs []int64) (map[int64][]*Member, error) {
	out := make(map[int64][]*Member, len(typeIDs))
	if len(typeIDs) == 0 {
		return out, nil
	}
	ms, err := s.queryMembers(
		"SELECT "+MemberCols+" FROM members WHERE type_id IN ("+placeholderList(len(typeIDs))+") ORDER BY type_id, ordinal, id",
		int64sToArgs(typeIDs)...,
	)
	if err != nil {
		return nil, fmt.Errorf("members by types: %w", err)
	}
	for _, m := range ms {
		out[m.TypeID] = append(out[m.TypeID], m)
	}
	return out, nil
}

// MembersBySignatureHash finds members whose signature hashes to hash.
func (s *Store) MembersBySignatureHash(hash string) ([]*Member, error) {
	return s.queryMembers("SELECT "+MemberCols+" FROM members WHERE signature_hash = ? ORDER BY id", hash)
}
