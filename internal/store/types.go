package store

// Row types. Kinds are stored as their String form.

type Library struct {
	ID      int64
	Ordinal int
	Name    string
	Display string
}

type Namespace struct {
	ID        int64
	LibraryID int64
	Ordinal   int
	Name      string
}

type Type struct {
	ID            int64
	NamespaceID   int64
	Ordinal       int
	Name          string
	Kind          string
	Signature     string
	SignatureHash string
}

type Member struct {
	ID            int64
	TypeID        int64
	Ordinal       int
	Name          string
	Kind          string
	Signature     string
	SignatureHash string
}
