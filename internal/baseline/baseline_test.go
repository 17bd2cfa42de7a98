package baseline

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/jward/apisurface/internal/model"
)

func sampleSet() *model.LibrarySet {
	return &model.LibrarySet{Libraries: []*model.Library{
		{
			Name:    "Contoso.Core",
			Display: "Contoso.Core (File Version 1.2.0.0, Assembly Version 1.0.0.0)",
			Namespaces: []*model.Namespace{
				{
					Name: "Contoso.Core",
					Types: []*model.Type{
						{
							Name: "Repository<T>", Kind: model.Class,
							Signature: "public class Repository<T> : IDisposable where T : class, new()",
							Members: []*model.Member{
								{Name: "Saved", Kind: model.Event, Signature: "public event EventHandler<T> Saved"},
								{Name: ".ctor", Kind: model.Constructor, Signature: "public .ctor(string name = \"default\")"},
								{Name: "Item", Kind: model.Property, Signature: "public T this[int index] { get; }"},
								{Name: "Find", Kind: model.Method, Signature: "public T Find(Func<T, bool> predicate)"},
							},
						},
						{
							Name: "Level", Kind: model.Enum, Signature: "public enum Level",
							Members: []*model.Member{
								{Name: "High", Kind: model.Field, Signature: `High = "2"`},
								{Name: "Low", Kind: model.Field, Signature: `Low = "0"`},
							},
						},
					},
				},
			},
		},
		{
			Name:    "Contoso.Empty",
			Display: "Contoso.Empty (File Version 0.0.0.0, Assembly Version 0.0.0.0)",
			Namespaces: []*model.Namespace{
				{Name: "", Types: []*model.Type{{Name: "IMarker", Kind: model.Interface, Signature: "public interface IMarker"}}},
			},
		},
	}}
}

func TestSave_RoundTrip(t *testing.T) {
	t.Parallel()
	for _, format := range []Format{XML, MessagePack, SQLite} {
		t.Run(format.String(), func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), "base."+format.String())
			require.NoError(t, Save(path, sampleSet(), format))

			got, detected, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, format, detected)
			assert.True(t, sampleSet().Equivalent(got))

			lib := got.Library("Contoso.Core")
			require.NotNil(t, lib)
			assert.Equal(t, sampleSet().Libraries[0].Display, lib.Display)
			level := lib.Namespace("Contoso.Core").Type("Level")
			require.NotNil(t, level)
			assert.Equal(t, model.Enum, level.Kind)
			assert.Equal(t, "High", level.Members[0].Name)
			assert.Equal(t, model.Field, level.Members[0].Kind)
		})
	}
}

func TestSave_EmptySet(t *testing.T) {
	t.Parallel()
	for _, format := range []Format{XML, MessagePack, SQLite} {
		path := filepath.Join(t.TempDir(), "empty")
		require.NoError(t, Save(path, nil, format))
		got, _, err := Load(path)
		require.NoError(t, err, format.String())
		assert.Empty(t, got.Libraries)
	}
}

func TestSave_XMLIsReadable(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "base.xml")
	require.NoError(t, Save(path, sampleSet(), XML))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.True(t, strings.HasPrefix(text, "<?xml"))
	assert.Contains(t, text, `<ApiSurface version="2">`)
	assert.Contains(t, text, `<Library name="Contoso.Core"`)
	assert.Contains(t, text, `kind="Enum"`)
	assert.Contains(t, text, "Repository&lt;T&gt;")
}

func TestSave_XMLPreservesAwkwardSignatures(t *testing.T) {
	t.Parallel()
	set := &model.LibrarySet{Libraries: []*model.Library{{
		Name: "L", Display: `L "quoted" & <angled>`,
		Namespaces: []*model.Namespace{{Name: "N", Types: []*model.Type{{
			Name: "T", Kind: model.Class, Signature: "  public class T  ",
			Members: []*model.Member{
				{Name: "S", Kind: model.Field, Signature: "public const string S = \"a\nb\""},
				{Name: "C", Kind: model.Field, Signature: "public const string C = \"]]>\""},
			},
		}}}},
	}}}
	path := filepath.Join(t.TempDir(), "awkward.xml")
	require.NoError(t, Save(path, set, XML))

	got, _, err := Load(path)
	require.NoError(t, err)
	assert.True(t, set.Equivalent(got))
	assert.Equal(t, set.Libraries[0].Display, got.Libraries[0].Display)
}

func TestSave_ControlCharactersRoundTrip(t *testing.T) {
	t.Parallel()
	set := &model.LibrarySet{Libraries: []*model.Library{{
		Name: "L", Display: "L\x07",
		Namespaces: []*model.Namespace{{Name: "N", Types: []*model.Type{{
			Name: "T", Kind: model.Class, Signature: "public class T",
			Members: []*model.Member{
				{Name: "Nul", Kind: model.Field, Signature: "public const char Nul = '\x00'"},
				{Name: "Bell", Kind: model.Field, Signature: "public const string Bell = \"\x07\""},
				{Name: "Path", Kind: model.Field, Signature: `public const string Path = "C:\\u0041"`},
				{Name: "Bad", Kind: model.Field, Signature: "public const string Bad = \"\xff\uFFFE\""},
			},
		}}}},
	}}}
	for _, format := range []Format{XML, MessagePack, SQLite} {
		t.Run(format.String(), func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), "ctl."+format.String())
			require.NoError(t, Save(path, set, format))

			got, _, err := Load(path)
			require.NoError(t, err)
			assert.True(t, set.Equivalent(got))
			assert.Equal(t, "L\x07", got.Libraries[0].Display)
			typ := got.Library("L").Namespace("N").Type("T")
			require.NotNil(t, typ)
			for _, m := range set.Libraries[0].Namespaces[0].Types[0].Members {
				assert.NotNil(t, typ.Member(m.Signature), m.Name)
			}
		})
	}
}

func TestSave_XMLEscapesOnlyWhatItMust(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "plain <text>", escapeXMLText("plain <text>"))
	assert.Equal(t, `a\u0000b\u0007`, escapeXMLText("a\x00b\x07"))
	assert.Equal(t, `C:\\dir`, escapeXMLText(`C:\dir`))
	assert.Equal(t, `\xFF`, escapeXMLText("\xff"))

	_, err := unescapeXMLText(`bad\q`)
	assert.Error(t, err)
	_, err = unescapeXMLText(`short\u00`)
	assert.Error(t, err)
}

func TestLoad_VersionOneXMLIsVerbatim(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "v1.xml")
	doc := `<ApiSurface version="1"><Library name="L" display="L"><Namespace name="N">` +
		`<Type name="T" kind="Class"><Signature>public class T</Signature>` +
		`<Member name="P" kind="Field">public const string P = "C:\u0041"</Member></Type>` +
		`</Namespace></Library></ApiSurface>`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	got, _, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, `public const string P = "C:\u0041"`, got.Libraries[0].Namespaces[0].Types[0].Members[0].Signature)
}

func TestSave_OverwritesAndLeavesNoTempFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "base.db")
	require.NoError(t, Save(path, sampleSet(), SQLite))

	smaller := sampleSet()
	smaller.Libraries = smaller.Libraries[:1]
	require.NoError(t, Save(path, smaller, SQLite))

	got, _, err := Load(path)
	require.NoError(t, err)
	assert.True(t, smaller.Equivalent(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), ".apisurface-"), "leftover %s", e.Name())
	}
}

func TestSave_UnknownFormatCleansUp(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	err := Save(filepath.Join(dir, "out"), sampleSet(), Format(42))
	require.ErrorIs(t, err, ErrUnknownFormat)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSave_CreatesDirectory(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "nested", "dir", "out.xml")
	require.NoError(t, Save(path, sampleSet(), XML))
	assert.FileExists(t, path)
}

func TestWriteFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.html")
	require.NoError(t, WriteFile(path, func(w io.Writer) error {
		_, err := io.WriteString(w, "<html></html>")
		return err
	}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "<html></html>", string(data))

	failed := filepath.Join(dir, "failed.html")
	err = WriteFile(failed, func(w io.Writer) error {
		_, _ = io.WriteString(w, "partial")
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)
	assert.NoFileExists(t, failed)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLoad_UnrecognizedContent(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "junk")
	require.NoError(t, os.WriteFile(path, []byte("not a baseline"), 0o644))

	_, _, err := Load(path)
	require.ErrorIs(t, err, ErrUnknownFormat)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()
	_, _, err := Load(filepath.Join(t.TempDir(), "absent.xml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_WrongDocumentVersion(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "v9.xml")
	require.NoError(t, os.WriteFile(path, []byte(`<ApiSurface version="9"></ApiSurface>`), 0o644))

	_, _, err := Load(path)
	require.ErrorIs(t, err, ErrUnknownFormat)
}

func TestLoad_UnknownKind(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "kind.xml")
	doc := `<ApiSurface version="1"><Library name="L" display="L"><Namespace name="N">` +
		`<Type name="R" kind="Record"><Signature>public record R</Signature></Type>` +
		`</Namespace></Library></ApiSurface>`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	_, _, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "type R")
}

func TestDetect(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		head string
		want Format
		err  bool
	}{
		{"sqlite", "SQLite format 3\x00", SQLite, false},
		{"xml", "<?xml version", XML, false},
		{"xml with bom", "\xef\xbb\xbf<ApiSurface", XML, false},
		{"xml with whitespace", "\n  <ApiSurface", XML, false},
		{"fixmap", "\x83\xa5magic", MessagePack, false},
		{"map16", "\xde\x00\x03", MessagePack, false},
		{"text", "hello", 0, true},
		{"empty", "", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Detect([]byte(tt.head))
			if tt.err {
				require.ErrorIs(t, err, ErrUnknownFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFormat(t *testing.T) {
	t.Parallel()
	for token, want := range map[string]Format{
		"xml": XML, "XML": XML, "MsgPack": MessagePack, "sqlite": SQLite, "SQLITE": SQLite,
	} {
		got, err := ParseFormat(token)
		require.NoError(t, err, token)
		assert.Equal(t, want, got, token)
	}

	_, err := ParseFormat("json")
	require.ErrorIs(t, err, ErrUnknownFormat)
	assert.Contains(t, err.Error(), `"json"`)

	assert.Equal(t, []string{"xml", "msgpack", "sqlite"}, FormatNames())
	assert.Equal(t, "Format(9)", Format(9).String())
}

func TestDecodeMsgpack_RequiresMagic(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "nomagic")
	f, err := os.Create(path)
	require.NoError(t, err)
	doc := toDocument(sampleSet())
	require.NoError(t, msgpack.NewEncoder(f).Encode(doc))
	require.NoError(t, f.Close())

	_, _, err = Load(path)
	require.ErrorIs(t, err, ErrUnknownFormat)
}
