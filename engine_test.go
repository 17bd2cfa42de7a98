package apisurface

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var testClock = time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC)

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	base := []Option{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithClock(func() time.Time { return testClock }),
	}
	return New(append(base, opts...)...)
}

// writeFiles creates files under root. Keys are slash-separated relative paths.
func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

// writeList writes a list file naming entries and returns its path.
func writeList(t *testing.T, dir string, entries ...string) string {
	t.Helper()
	path := filepath.Join(dir, "libs.txt")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(entries, "\n")+"\n"), 0o644))
	return path
}

const widgetV1 = `namespace Contoso
{
    public class Widget
    {
        public void Start() {}
        internal void Reset() {}
    }
}
`

const widgetV2 = `namespace Contoso
{
    public interface IThing {}

    public class Widget
    {
        public void Stop() {}
        internal void Reset() {}
    }
}
`

// widgetList writes a one-library list whose library holds src.
func widgetList(t *testing.T, src string) string {
	t.Helper()
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"Contoso/Widget.cs": src})
	return writeList(t, root, "Contoso")
}

func subjectsList(t *testing.T, extra ...string) string {
	t.Helper()
	subjects, err := filepath.Abs(filepath.Join("testdata", "csharp", "subjects"))
	require.NoError(t, err)
	return writeList(t, t.TempDir(), append([]string{subjects}, extra...)...)
}

// =============================================================================
// Extract
// =============================================================================

func TestExtract_Subjects(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	ex, err := e.Extract(context.Background(), subjectsList(t, "does/not/exist"))
	require.NoError(t, err)
	require.Len(t, ex.Missing, 1)
	assert.True(t, strings.HasSuffix(filepath.ToSlash(ex.Missing[0]), "does/not/exist"))

	lib := ex.Set.Library("subjects")
	require.NotNil(t, lib)
	assert.Equal(t, "subjects (File Version 2.3.4.5, Assembly Version 2.3.0.0)", lib.Display)

	ns := lib.Namespace("ApiSurface.Testing.Subjects")
	require.NotNil(t, ns)
	foo := ns.Type("Foo")
	require.NotNil(t, foo)
	for _, sig := range []string{
		`public const string ConstantString = "ConstantStringValue"`,
		`public string this[int index] { get; }`,
	} {
		assert.NotNil(t, foo.Member(sig), sig)
	}
	derived := ns.Type("Derived")
	require.NotNil(t, derived)
	assert.NotNil(t, derived.Member("new protected void M2(bool b)"))
}

func TestExtract_Deterministic(t *testing.T) {
	t.Parallel()
	list := subjectsList(t)
	first, err := newTestEngine(t).Extract(context.Background(), list)
	require.NoError(t, err)
	second, err := newTestEngine(t, WithParallelism(1)).Extract(context.Background(), list)
	require.NoError(t, err)

	assert.True(t, first.Set.Equivalent(second.Set))
	assert.Equal(t, first.Set, second.Set)
}

func TestExtract_MissingListFile(t *testing.T) {
	t.Parallel()
	_, err := newTestEngine(t).Extract(context.Background(), filepath.Join(t.TempDir(), "absent.txt"))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestExtract_StrictFailsOnSyntaxErrors(t *testing.T) {
	t.Parallel()
	list := widgetList(t, "namespace N { public class Ok { } }\n}\n")

	_, err := newTestEngine(t).Extract(context.Background(), list)
	require.NoError(t, err)

	_, err = newTestEngine(t, WithStrict(true)).Extract(context.Background(), list)
	var se *SyntaxError
	require.ErrorAs(t, err, &se)
}

func TestExtract_ManifestStrict(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"Broken/Broken.cs":       "namespace N { public class Ok { } }\n}\n",
		"Broken/apisurface.toml": "strict = true\n",
	})
	_, err := newTestEngine(t).Extract(context.Background(), writeList(t, root, "Broken"))
	var se *SyntaxError
	require.ErrorAs(t, err, &se)
}

func TestExtractLibraries_ReadError(t *testing.T) {
	t.Parallel()
	libs := []*LibrarySource{{
		Name:  "Ghost",
		Files: []string{filepath.Join(t.TempDir(), "gone.cs")},
	}}
	_, err := newTestEngine(t).ExtractLibraries(context.Background(), libs)
	var le *LibraryError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "Ghost", le.Library)
}

func TestExtractLibraries_Empty(t *testing.T) {
	t.Parallel()
	set, err := newTestEngine(t).ExtractLibraries(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, set.Libraries)
}

// =============================================================================
// Baselines
// =============================================================================

func TestCreateBaseline_RoundTrip(t *testing.T) {
	t.Parallel()
	list := widgetList(t, widgetV1)
	for _, format := range []OutputFormat{OutputXML, OutputMsgpack, OutputSQLite} {
		t.Run(format.String(), func(t *testing.T) {
			t.Parallel()
			e := newTestEngine(t)
			out := filepath.Join(t.TempDir(), "baseline."+format.String())
			ex, err := e.CreateBaseline(context.Background(), list, out, format)
			require.NoError(t, err)

			loaded, err := e.Load(out)
			require.NoError(t, err)
			assert.True(t, ex.Set.Equivalent(loaded))

			w := loaded.Library("Contoso").Namespace("Contoso").Type("Widget")
			require.NotNil(t, w)
			assert.Equal(t, "public class Widget", w.Signature)
			assert.NotNil(t, w.Member("public void Start()"))
		})
	}
}

func TestCreateBaseline_HTML(t *testing.T) {
	t.Parallel()
	out := filepath.Join(t.TempDir(), "out", "baseline.html")
	_, err := newTestEngine(t).CreateBaseline(context.Background(), widgetList(t, widgetV1), out, OutputHTML)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	html := string(data)
	assert.Contains(t, html, "API Baseline 2024-03-05 14:07:09")
	assert.Contains(t, html, "public void Start()")
	assert.NotContains(t, html, "Reset")

	// HTML is not a baseline.
	_, err = newTestEngine(t).Load(out)
	require.Error(t, err)
}

func TestCreateBaseline_UnknownFormatWritesNothing(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	_, err := newTestEngine(t).CreateBaseline(context.Background(), widgetList(t, widgetV1), filepath.Join(dir, "x"), OutputFormat(42))
	require.ErrorIs(t, err, ErrUnknownFormat)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLoad_Missing(t *testing.T) {
	t.Parallel()
	_, err := newTestEngine(t).Load(filepath.Join(t.TempDir(), "absent.xml"))
	require.ErrorIs(t, err, ErrNotFound)
}

// =============================================================================
// Diff
// =============================================================================

func saveWidget(t *testing.T, e *Engine, src string) string {
	t.Helper()
	out := filepath.Join(t.TempDir(), "widget.xml")
	_, err := e.CreateBaseline(context.Background(), widgetList(t, src), out, OutputXML)
	require.NoError(t, err)
	return out
}

func TestCreateDiff_NoDifferences(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	b := saveWidget(t, e, widgetV1)
	out := filepath.Join(t.TempDir(), "diff.html")

	r, err := e.CreateDiff(context.Background(), b, b, out, DiffOptions{Format: DiffHTML})
	require.NoError(t, err)
	assert.True(t, r.Empty())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "No differences.")
	assert.Contains(t, string(data), "API Diff 2024-03-05 14:07:09")
}

func TestCreateDiff_TextToStdout(t *testing.T) {
	t.Parallel()
	var stdout bytes.Buffer
	e := newTestEngine(t, WithStdout(&stdout))
	b1 := saveWidget(t, e, widgetV1)
	b2 := saveWidget(t, e, widgetV2)

	r, err := e.CreateDiff(context.Background(), b1, b2, "-", DiffOptions{Format: DiffText})
	require.NoError(t, err)
	assert.False(t, r.Empty())

	text := stdout.String()
	assert.Contains(t, text, "- public void Start()\n")
	assert.Contains(t, text, "+ public void Stop()\n")
	assert.Contains(t, text, "+ IThing\n")
	assert.NotContains(t, text, "\x1b[")
}

func TestCreateDiff_Symmetric(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	b1 := saveWidget(t, e, widgetV1)
	b2 := saveWidget(t, e, widgetV2)
	dir := t.TempDir()

	forward, err := e.CreateDiff(context.Background(), b1, b2, filepath.Join(dir, "f.txt"), DiffOptions{Format: DiffText})
	require.NoError(t, err)
	backward, err := e.CreateDiff(context.Background(), b2, b1, filepath.Join(dir, "b.txt"), DiffOptions{Format: DiffText})
	require.NoError(t, err)

	fs, bs := forward.Summary(), backward.Summary()
	assert.Equal(t, fs.Added, bs.Removed)
	assert.Equal(t, fs.Removed, bs.Added)
}

func TestCreateDiff_MissingBaselineWritesNothing(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	b := saveWidget(t, e, widgetV1)
	out := filepath.Join(t.TempDir(), "diff.html")

	_, err := e.CreateDiff(context.Background(), b, filepath.Join(t.TempDir(), "absent.xml"), out, DiffOptions{})
	require.ErrorIs(t, err, ErrNotFound)
	_, err = os.Stat(out)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestCreateDiff_CanceledContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestEngine(t).CreateDiff(ctx, "a", "b", "-", DiffOptions{})
	require.ErrorIs(t, err, context.Canceled)
}

// =============================================================================
// Formats
// =============================================================================

func TestParseOutputFormat(t *testing.T) {
	t.Parallel()
	for _, name := range OutputFormatNames() {
		f, err := ParseOutputFormat(strings.ToUpper(name))
		require.NoError(t, err)
		assert.Equal(t, name, f.String())
	}
	_, err := ParseOutputFormat("json")
	require.ErrorIs(t, err, ErrUnknownFormat)
	assert.Equal(t, "OutputFormat(9)", OutputFormat(9).String())
}

func TestParseDiffFormat(t *testing.T) {
	t.Parallel()
	f, err := ParseDiffFormat("Text")
	require.NoError(t, err)
	assert.Equal(t, DiffText, f)
	_, err = ParseDiffFormat("xml")
	require.ErrorIs(t, err, ErrUnknownFormat)
	assert.Equal(t, []string{"html", "text"}, DiffFormatNames())
}
