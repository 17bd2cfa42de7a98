package store

import (
	"errors"
	"fmt"

	"github.com/jward/apisurface/internal/model"
)

// ErrCorrupt reports a stored row that does not match its recorded hash or
// kind, or a schema version this package does not read.
var ErrCorrupt = errors.New("corrupt baseline")

// WriteSet inserts the whole tree into ds, recording each container's
// position as its ordinal.
func WriteSet(ds DataStore, set *model.LibrarySet) error {
	for li, l := range set.Libraries {
		libID, err := ds.InsertLibrary(&Library{Ordinal: li, Name: l.Name, Display: l.Display})
		if err != nil {
			return err
		}
		for ni, n := range l.Namespaces {
			nsID, err := ds.InsertNamespace(&Namespace{LibraryID: libID, Ordinal: ni, Name: n.Name})
			if err != nil {
				return err
			}
			for ti, t := range n.Types {
				kind := t.Kind.String()
				typeID, err := ds.InsertType(&Type{
					NamespaceID:   nsID,
					Ordinal:       ti,
					Name:          t.Name,
					Kind:          kind,
					Signature:     t.Signature,
					SignatureHash: ComputeSignatureHash(kind, t.Signature),
				})
				if err != nil {
					return err
				}
				for mi, m := range t.Members {
					mk := m.Kind.String()
					if _, err := ds.InsertMember(&Member{
						TypeID:        typeID,
						Ordinal:       mi,
						Name:          m.Name,
						Kind:          mk,
						Signature:     m.Signature,
						SignatureHash: ComputeSignatureHash(mk, m.Signature),
					}); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

// SaveSet replaces the stored set with set in one transaction.
func (s *Store) SaveSet(set *model.LibrarySet) error {
	batch := NewBatchedStore()
	if err := WriteSet(batch, set); err != nil {
		return fmt.Errorf("save set: %w", err)
	}
	if err := s.ReplaceWithBatch(batch); err != nil {
		return fmt.Errorf("save set: %w", err)
	}
	return s.SetInfo("schema_version", SchemaVersion)
}

// LoadSet rebuilds the stored set. Every row's hash is checked against its
// kind and signature.
func (s *Store) LoadSet() (*model.LibrarySet, error) {
	version, err := s.Info("schema_version")
	if err != nil {
		return nil, err
	}
	if version != SchemaVersion {
		return nil, fmt.Errorf("schema version %q: %w", version, ErrCorrupt)
	}

	libs, err := s.Libraries()
	if err != nil {
		return nil, err
	}
	set := &model.LibrarySet{Libraries: make([]*model.Library, 0, len(libs))}
	for _, l := range libs {
		ml := &model.Library{Name: l.Name, Display: l.Display}
		nss, err := s.NamespacesByLibrary(l.ID)
		if err != nil {
			return nil, err
		}
		for _, n := range nss {
			mn, err := s.loadNamespace(n)
			if err != nil {
				return nil, fmt.Errorf("library %s: %w", l.Name, err)
			}
			ml.Namespaces = append(ml.Namespaces, mn)
		}
		set.Libraries = append(set.Libraries, ml)
	}
	return set, nil
}

func (s *Store) loadNamespace(n *Namespace) (*model.Namespace, error) {
	types, err := s.TypesByNamespace(n.ID)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(types))
	for i, t := range types {
		ids[i] = t.ID
	}
	members, err := s.MembersByTypes(ids)
	if err != nil {
		return nil, err
	}

	out := &model.Namespace{Name: n.Name, Types: make([]*model.Type, 0, len(types))}
	for _, t := range types {
		if ComputeSignatureHash(t.Kind, t.Signature) != t.SignatureHash {
			return nil, fmt.Errorf("type %s: signature hash mismatch: %w", t.Name, ErrCorrupt)
		}
		kind, err := model.ParseTypeKind(t.Kind)
		if err != nil {
			return nil, fmt.Errorf("type %s: %v: %w", t.Name, err, ErrCorrupt)
		}
		mt := &model.Type{Name: t.Name, Kind: kind, Signature: t.Signature}
		for _, m := range members[t.ID] {
			if ComputeSignatureHash(m.Kind, m.Signature) != m.SignatureHash {
				return nil, fmt.Errorf("member %s.%s: signature hash mismatch: %w", t.Name, m.Name, ErrCorrupt)
			}
			mk, err := model.ParseMemberKind(m.Kind)
			if err != nil {
				return nil, fmt.Errorf("member %s.%s: %v: %w", t.Name, m.Name, err, ErrCorrupt)
			}
			mt.Members = append(mt.Members, &model.Member{Name: m.Name, Kind: mk, Signature: m.Signature})
		}
		out.Types = append(out.Types, mt)
	}
	return out, nil
}
