package flagart

import (
	"bytes"
	"context"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func decodePNG(t *testing.T, data []byte) {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not a valid png: %v", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() != canvasWidth || bounds.Dy() != canvasHeight {
		t.Fatalf("unexpected canvas %dx%d", bounds.Dx(), bounds.Dy())
	}
}

func TestSynthesizeKnownFlag(t *testing.T) {
	s := NewSynthesizer(DefaultCatalog())
	data, err := s.Synthesize(context.Background(), "flag of japan")
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	decodePNG(t, data)

	again, err := s.Synthesize(context.Background(), "flag of japan")
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if !bytes.Equal(data, again) {
		t.Fatal("same topic must render identical bytes")
	}
}

func TestSynthesizeFlagPhrasings(t *testing.T) {
	tests := []struct {
		topic string
		want  string
	}{
		{"flag of japan", "japan"},
		{"the france flag", "france"},
		{"a germany flag", "germany"},
	}
	for _, tt := range tests {
		if got := flagSubject(tt.topic); got != tt.want {
			t.Fatalf("flagSubject(%q) = %q, want %q", tt.topic, got, tt.want)
		}
	}
}

func TestSynthesizeUnknownSubjectStillRenders(t *testing.T) {
	s := NewSynthesizer(DefaultCatalog())
	data, err := s.Synthesize(context.Background(), "a surreal cityscape")
	if err != nil {
		t.Fatalf("placeholder must always render: %v", err)
	}
	decodePNG(t, data)
}

func TestSynthesizeChart(t *testing.T) {
	s := NewSynthesizer(DefaultCatalog())
	data, err := s.Synthesize(context.Background(), "a chart of monthly sales")
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	decodePNG(t, data)
}

func TestSynthesizeRejectsEmptyTopic(t *testing.T) {
	s := NewSynthesizer(DefaultCatalog())
	if _, err := s.Synthesize(context.Background(), "   "); err == nil {
		t.Fatal("expected error for empty topic")
	}
}

func TestLoadCatalogOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flags.yaml")
	raw := []byte("flags:\n  freedonia:\n    stripes: [\"#112233\", \"#445566\"]\n")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}

	catalog, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog() error = %v", err)
	}
	if _, ok := catalog.lookup("freedonia"); !ok {
		t.Fatal("overlay flag missing")
	}
	if _, ok := catalog.lookup("japan"); !ok {
		t.Fatal("defaults must survive the overlay")
	}
}

func TestParseHexColor(t *testing.T) {
	c, err := parseHexColor("#BC002D")
	if err != nil {
		t.Fatalf("parseHexColor() error = %v", err)
	}
	if c.R != 0xBC || c.G != 0x00 || c.B != 0x2D {
		t.Fatalf("unexpected color %+v", c)
	}
	if _, err := parseHexColor("red"); err == nil {
		t.Fatal("expected error for non-hex input")
	}
}
