package apisurface

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func benchEngine() *Engine {
	return New(WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func benchList(b *testing.B) string {
	b.Helper()
	subjects, err := filepath.Abs(filepath.Join("testdata", "csharp", "subjects"))
	if err != nil {
		b.Fatal(err)
	}
	list := filepath.Join(b.TempDir(), "libs.txt")
	if err := os.WriteFile(list, []byte(subjects+"\n"), 0o644); err != nil {
		b.Fatal(err)
	}
	return list
}

func BenchmarkExtract(b *testing.B) {
	list := benchList(b)
	e := benchEngine()
	ctx := context.Background()

	b.ResetTimer()
	for b.Loop() {
		if _, err := e.Extract(ctx, list); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkSaveLoad(b *testing.B) {
	e := benchEngine()
	ex, err := e.Extract(context.Background(), benchList(b))
	if err != nil {
		b.Fatal(err)
	}
	dir := b.TempDir()

	for _, format := range []OutputFormat{OutputXML, OutputMsgpack, OutputSQLite} {
		bf, _ := format.baselineFormat()
		path := filepath.Join(dir, "baseline."+format.String())
		b.Run(format.String(), func(b *testing.B) {
			for b.Loop() {
				if err := e.Save(path, ex.Set, bf); err != nil {
					b.Fatal(err)
				}
				if _, err := e.Load(path); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkDiff(b *testing.B) {
	ex, err := benchEngine().Extract(context.Background(), benchList(b))
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for b.Loop() {
		if r := Diff(ex.Set, ex.Set); !r.Empty() {
			b.Fatal("expected no differences")
		}
	}
}
