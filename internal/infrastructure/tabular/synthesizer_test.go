package tabular

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestSynthesizeWritesWorkbookAndMarkdown(t *testing.T) {
	s := New(t.TempDir())
	ref, err := s.Synthesize(context.Background(), "japan")
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}

	if !strings.Contains(ref.Markdown, "| Aspect | Detail | Notes |") {
		t.Fatalf("markdown header missing: %s", ref.Markdown)
	}
	if !strings.Contains(ref.Markdown, "japan") {
		t.Fatalf("topic missing from markdown: %s", ref.Markdown)
	}
	if ref.SheetPath == "" || !strings.HasSuffix(ref.SheetPath, ".xlsx") {
		t.Fatalf("unexpected sheet path %q", ref.SheetPath)
	}

	f, err := excelize.OpenFile(ref.SheetPath)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	header, err := f.GetCellValue("Sheet1", "A1")
	if err != nil {
		t.Fatalf("read header: %v", err)
	}
	if header != "Aspect" {
		t.Fatalf("unexpected header %q", header)
	}
	first, err := f.GetCellValue("Sheet1", "A2")
	if err != nil {
		t.Fatalf("read first row: %v", err)
	}
	if !strings.Contains(first, "japan") {
		t.Fatalf("topic missing from workbook row %q", first)
	}
}

func TestSynthesizeKeepsMarkdownWhenWorkbookFails(t *testing.T) {
	// A regular file in the directory path makes MkdirAll fail.
	blocker := filepath.Join(t.TempDir(), "blocked")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}

	s := New(filepath.Join(blocker, "tables"))
	ref, err := s.Synthesize(context.Background(), "japan")
	if err == nil {
		t.Fatal("expected workbook error")
	}
	if !strings.Contains(ref.Markdown, "japan") {
		t.Fatalf("markdown must survive a failed workbook, got %q", ref.Markdown)
	}
	if ref.SheetPath != "" {
		t.Fatalf("no sheet path may be reported, got %q", ref.SheetPath)
	}
}

func TestSynthesizeRejectsEmptyTopic(t *testing.T) {
	s := New(t.TempDir())
	if _, err := s.Synthesize(context.Background(), " "); err == nil {
		t.Fatal("expected error for empty topic")
	}
}

func TestSynthesizeHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := New(t.TempDir())
	if _, err := s.Synthesize(ctx, "japan"); err == nil {
		t.Fatal("expected context error")
	}
}
