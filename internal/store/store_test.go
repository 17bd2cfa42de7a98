package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/apisurface/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { s.Close() })
	return s
}

func testSet() *model.LibrarySet {
	return &model.LibrarySet{Libraries: []*model.Library{
		{
			Name:    "Alpha",
			Display: "Alpha (File Version 1.0.0.0, Assembly Version 1.0.0.0)",
			Namespaces: []*model.Namespace{
				{
					Name: "Alpha",
					Types: []*model.Type{
						{
							Name: "Widget", Kind: model.Class, Signature: "public class Widget",
							Members: []*model.Member{
								{Name: "Changed", Kind: model.Event, Signature: "public event EventHandler Changed"},
								{Name: ".ctor", Kind: model.Constructor, Signature: "public .ctor()"},
								{Name: "Run", Kind: model.Method, Signature: "public void Run()"},
							},
						},
						{
							Name: "Mode", Kind: model.Enum, Signature: "public enum Mode",
							Members: []*model.Member{
								{Name: "Slow", Kind: model.Field, Signature: `Slow = "1"`},
								{Name: "Fast", Kind: model.Field, Signature: `Fast = "0"`},
							},
						},
					},
				},
				{Name: "Alpha.Empty"},
			},
		},
		{
			Name:    "Beta",
			Display: "Beta (File Version 2.0.0.0, Assembly Version 2.0.0.0)",
			Namespaces: []*model.Namespace{{
				Name: "",
				Types: []*model.Type{{
					Name: "IThing", Kind: model.Interface, Signature: "public interface IThing",
				}},
			}},
		},
	}}
}

// =============================================================================
// Schema & Lifecycle
// =============================================================================

func TestMigrate_AllTablesExist(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	for _, table := range []string{"baseline_info", "libraries", "namespaces", "types", "members"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	require.NoError(t, s.Migrate())
}

func TestMigrate_WALMode(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	var mode string
	err := s.db.QueryRow("PRAGMA journal_mode").Scan(&mode)
	require.NoError(t, err)
	assert.Equal(t, "wal", mode)
}

func TestInfo_SetAndReplace(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	got, err := s.Info("missing")
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, s.SetInfo("generator", "a"))
	require.NoError(t, s.SetInfo("generator", "b"))
	got, err = s.Info("generator")
	require.NoError(t, err)
	assert.Equal(t, "b", got)
}

// =============================================================================
// Row operations
// =============================================================================

func TestRows_InsertAndQueryInOrdinalOrder(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	libID, err := s.InsertLibrary(&Library{Ordinal: 0, Name: "L", Display: "L (x)"})
	require.NoError(t, err)
	require.Positive(t, libID)

	// Inserted out of order on purpose.
	_, err = s.InsertNamespace(&Namespace{LibraryID: libID, Ordinal: 1, Name: "B"})
	require.NoError(t, err)
	nsID, err := s.InsertNamespace(&Namespace{LibraryID: libID, Ordinal: 0, Name: "A"})
	require.NoError(t, err)

	nss, err := s.NamespacesByLibrary(libID)
	require.NoError(t, err)
	require.Len(t, nss, 2)
	assert.Equal(t, "A", nss[0].Name)
	assert.Equal(t, "B", nss[1].Name)

	typ := &Type{NamespaceID: nsID, Name: "T", Kind: "Class", Signature: "public class T",
		SignatureHash: ComputeSignatureHash("Class", "public class T")}
	typeID, err := s.InsertType(typ)
	require.NoError(t, err)
	assert.Equal(t, typeID, typ.ID)

	for i, name := range []string{"Second", "First"} {
		_, err := s.InsertMember(&Member{TypeID: typeID, Ordinal: 1 - i, Name: name, Kind: "Method",
			Signature: "public void " + name + "()"})
		require.NoError(t, err)
	}
	ms, err := s.MembersByType(typeID)
	require.NoError(t, err)
	require.Len(t, ms, 2)
	assert.Equal(t, "First", ms[0].Name)
	assert.Equal(t, "Second", ms[1].Name)

	byHash, err := s.TypesBySignatureHash(typ.SignatureHash)
	require.NoError(t, err)
	require.Len(t, byHash, 1)
	assert.Equal(t, "T", byHash[0].Name)
}

func TestMembersByTypes_Grouped(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	libID, err := s.InsertLibrary(&Library{Name: "L", Display: "L"})
	require.NoError(t, err)
	nsID, err := s.InsertNamespace(&Namespace{LibraryID: libID, Name: "N"})
	require.NoError(t, err)
	t1, err := s.InsertType(&Type{NamespaceID: nsID, Name: "A", Kind: "Class", Signature: "a"})
	require.NoError(t, err)
	t2, err := s.InsertType(&Type{NamespaceID: nsID, Ordinal: 1, Name: "B", Kind: "Class", Signature: "b"})
	require.NoError(t, err)
	for _, m := range []*Member{
		{TypeID: t2, Ordinal: 0, Name: "b0", Kind: "Method", Signature: "b0"},
		{TypeID: t1, Ordinal: 1, Name: "a1", Kind: "Method", Signature: "a1"},
		{TypeID: t1, Ordinal: 0, Name: "a0", Kind: "Method", Signature: "a0"},
	} {
		_, err := s.InsertMember(m)
		require.NoError(t, err)
	}

	got, err := s.MembersByTypes([]int64{t1, t2})
	require.NoError(t, err)
	require.Len(t, got[t1], 2)
	assert.Equal(t, "a0", got[t1][0].Name)
	assert.Equal(t, "a1", got[t1][1].Name)
	require.Len(t, got[t2], 1)

	empty, err := s.MembersByTypes(nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

// =============================================================================
// Library sets
// =============================================================================

func TestSaveSet_RoundTrip(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	require.NoError(t, s.SaveSet(testSet()))

	got, err := s.LoadSet()
	require.NoError(t, err)
	assert.True(t, testSet().Equivalent(got))

	alpha := got.Library("Alpha")
	require.NotNil(t, alpha)
	assert.Equal(t, "Alpha (File Version 1.0.0.0, Assembly Version 1.0.0.0)", alpha.Display)
	mode := alpha.Namespace("Alpha").Type("Mode")
	require.NotNil(t, mode)
	assert.Equal(t, model.Enum, mode.Kind)
	assert.Equal(t, "Slow", mode.Members[0].Name)
	assert.Equal(t, model.Field, mode.Members[0].Kind)
	assert.NotNil(t, alpha.Namespace("Alpha.Empty"))
	assert.NotNil(t, got.Library("Beta").Namespace("").Type("IThing"))
}

func TestSaveSet_Replaces(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	require.NoError(t, s.SaveSet(testSet()))

	smaller := testSet()
	smaller.Libraries = smaller.Libraries[1:]
	require.NoError(t, s.SaveSet(smaller))

	got, err := s.LoadSet()
	require.NoError(t, err)
	assert.True(t, smaller.Equivalent(got))

	var members int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM members").Scan(&members))
	assert.Zero(t, members)
}

func TestLoadSet_RequiresSchemaVersion(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	_, err := s.LoadSet()
	require.ErrorIs(t, err, ErrCorrupt)
}

func TestLoadSet_DetectsEditedSignature(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	require.NoError(t, s.SaveSet(testSet()))

	_, err := s.db.Exec("UPDATE members SET signature = 'public void Walk()' WHERE name = 'Run'")
	require.NoError(t, err)
	_, err = s.LoadSet()
	require.ErrorIs(t, err, ErrCorrupt)
	assert.Contains(t, err.Error(), "Widget.Run")
}

func TestLoadSet_DetectsUnknownKind(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	require.NoError(t, s.SaveSet(testSet()))

	_, err := s.db.Exec("UPDATE types SET kind = 'Record', signature_hash = ? WHERE name = 'Widget'",
		ComputeSignatureHash("Record", "public class Widget"))
	require.NoError(t, err)
	_, err = s.LoadSet()
	require.ErrorIs(t, err, ErrCorrupt)
}

func TestReset(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	require.NoError(t, s.SaveSet(testSet()))
	require.NoError(t, s.Reset())

	libs, err := s.Libraries()
	require.NoError(t, err)
	assert.Empty(t, libs)
}

// =============================================================================
// Signature hash
// =============================================================================

func TestSignatureHash_Deterministic(t *testing.T) {
	t.Parallel()
	a := ComputeSignatureHash("Method", "public void Run()")
	assert.Equal(t, a, ComputeSignatureHash("Method", "public void Run()"))
	assert.Len(t, a, 16)
}

func TestSignatureHash_KindMatters(t *testing.T) {
	t.Parallel()
	assert.NotEqual(t,
		ComputeSignatureHash("Method", "x"),
		ComputeSignatureHash("Field", "x"))
	assert.NotEqual(t,
		ComputeSignatureHash("ab", "c"),
		ComputeSignatureHash("a", "bc"))
}
