package apisurface

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Golden test format.
type goldenFile struct {
	Library string       `json:"library"`
	Display string       `json:"display"`
	Types   []goldenType `json:"types,omitempty"`
	Absent  []goldenRef  `json:"absent,omitempty"`
}

type goldenRef struct {
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
}

type goldenType struct {
	goldenRef
	Kind      string `json:"kind"`
	Signature string `json:"signature,omitempty"`
	// Exact requires Members to be the whole member list, in order.
	// Otherwise each listed member must be present.
	Exact   bool     `json:"exact,omitempty"`
	Members []string `json:"members,omitempty"`
}

// TestGolden extracts every testdata/csharp/{case}/ directory that carries a
// golden.json and checks the recorded surface against it.
func TestGolden(t *testing.T) {
	root := filepath.Join("testdata", "csharp")
	cases, err := os.ReadDir(root)
	if err != nil {
		t.Skip("no testdata directory found")
	}

	for _, c := range cases {
		if !c.IsDir() {
			continue
		}
		dir := filepath.Join(root, c.Name())
		goldenPath := filepath.Join(dir, "golden.json")
		if _, err := os.Stat(goldenPath); err != nil {
			continue
		}
		t.Run(c.Name(), func(t *testing.T) {
			t.Parallel()
			runGoldenTest(t, dir, goldenPath)
		})
	}
}

func runGoldenTest(t *testing.T, dir, goldenPath string) {
	t.Helper()

	data, err := os.ReadFile(goldenPath)
	require.NoError(t, err)
	var golden goldenFile
	require.NoError(t, json.Unmarshal(data, &golden))

	abs, err := filepath.Abs(dir)
	require.NoError(t, err)
	ex, err := newTestEngine(t).Extract(context.Background(), writeList(t, t.TempDir(), abs))
	require.NoError(t, err)
	require.Empty(t, ex.Missing)

	lib := ex.Set.Library(golden.Library)
	require.NotNil(t, lib, "library %s", golden.Library)
	assert.Equal(t, golden.Display, lib.Display)

	for _, want := range golden.Types {
		t.Run(want.Name, func(t *testing.T) {
			verifyType(t, lib, want)
		})
	}
	for _, ref := range golden.Absent {
		if ns := lib.Namespace(ref.Namespace); ns != nil {
			assert.Nil(t, ns.Type(ref.Name), "%s.%s should not be visible", ref.Namespace, ref.Name)
		}
	}
}

func verifyType(t *testing.T, lib *Library, want goldenType) {
	t.Helper()
	ns := lib.Namespace(want.Namespace)
	require.NotNil(t, ns, "namespace %s", want.Namespace)
	ty := ns.Type(want.Name)
	require.NotNil(t, ty, "type %s", want.Name)

	assert.Equal(t, want.Kind, ty.Kind.String())
	if want.Signature != "" {
		assert.Equal(t, want.Signature, ty.Signature)
	}

	if want.Exact {
		got := make([]string, len(ty.Members))
		for i, m := range ty.Members {
			got[i] = m.Signature
		}
		if len(want.Members) == 0 {
			assert.Empty(t, got)
		} else {
			assert.Equal(t, want.Members, got)
		}
		return
	}
	for _, sig := range want.Members {
		assert.NotNil(t, ty.Member(sig), "missing member %q", sig)
	}
}
