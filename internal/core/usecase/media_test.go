package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/okolin/scribe/internal/core/domain"
)

type synthesizerFake struct {
	data  []byte
	err   error
	calls int
}

func (f *synthesizerFake) Synthesize(context.Context, string) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.data, nil
}

type retrieverFake struct {
	data  []byte
	err   error
	calls int
}

func (f *retrieverFake) Retrieve(context.Context, string) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.data, nil
}

type generatorFake struct {
	data  []byte
	err   error
	calls int
}

func (f *generatorFake) Generate(context.Context, string, string) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.data, nil
}

type tableFake struct {
	ref domain.TableRef
	err error
}

func (f *tableFake) Synthesize(context.Context, string) (domain.TableRef, error) {
	return f.ref, f.err
}

type writerFake struct {
	mu        sync.Mutex
	writes    []string
	discards  []string
	writeErr  error
	nextIndex int
}

func (f *writerFake) Write(_ context.Context, kind domain.ArtifactKind, name string, data io.Reader) (domain.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return domain.Receipt{}, f.writeErr
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return domain.Receipt{}, err
	}
	f.nextIndex++
	path := fmt.Sprintf("%s/%s", kind, name)
	f.writes = append(f.writes, path)
	return domain.Receipt{
		Path:      path,
		SizeBytes: int64(len(raw)),
		WordCount: len(bytes.Fields(raw)),
	}, nil
}

func (f *writerFake) Discard(_ context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.discards = append(f.discards, path)
	return nil
}

func newCoordinator(synth *synthesizerFake, web *retrieverFake, ai *generatorFake, tables *tableFake, writer *writerFake) *MediaCoordinator {
	return NewMediaCoordinator(synth, web, ai, tables, writer, "512x512")
}

func TestMediaFallbackChainTerminates(t *testing.T) {
	// AI fails (missing credential), web fails, the chain must fall
	// through to the programmatic placeholder.
	synth := &synthesizerFake{data: []byte("png")}
	web := &retrieverFake{err: domain.ErrImageNotFound}
	ai := &generatorFake{err: domain.ErrNoCredential}
	writer := &writerFake{}

	c := newCoordinator(synth, web, ai, &tableFake{}, writer)
	bundle := c.Resolve(context.Background(), domain.MediaFlags{IncludeImage: true}, "a surreal cityscape")

	if len(bundle.Images) != 1 {
		t.Fatalf("expected one image, got %d", len(bundle.Images))
	}
	if bundle.Images[0].Source != domain.SourcePlaceholder {
		t.Fatalf("expected placeholder source, got %s", bundle.Images[0].Source)
	}
	if ai.calls != 1 || web.calls != 1 || synth.calls != 1 {
		t.Fatalf("expected ai→web→synth order, got ai=%d web=%d synth=%d", ai.calls, web.calls, synth.calls)
	}
	if len(bundle.Warnings) == 0 {
		t.Fatal("expected a degradation warning")
	}
}

func TestMediaCanonicalSubjectUsesSynthesizer(t *testing.T) {
	synth := &synthesizerFake{data: []byte("png")}
	ai := &generatorFake{data: []byte("ai")}
	writer := &writerFake{}

	c := newCoordinator(synth, &retrieverFake{}, ai, &tableFake{}, writer)
	bundle := c.Resolve(context.Background(), domain.MediaFlags{IncludeImage: true}, "flag of japan")

	if len(bundle.Images) != 1 {
		t.Fatalf("expected one image, got %d", len(bundle.Images))
	}
	if bundle.Images[0].Source != domain.SourceSynthesized {
		t.Fatalf("expected synthesized source, got %s", bundle.Images[0].Source)
	}
	if ai.calls != 0 {
		t.Fatalf("canonical subject must not reach the AI model, got %d calls", ai.calls)
	}
}

func TestMediaPhotographicSubjectPrefersWeb(t *testing.T) {
	web := &retrieverFake{data: []byte("jpg")}
	ai := &generatorFake{data: []byte("ai")}

	c := newCoordinator(&synthesizerFake{data: []byte("png")}, web, ai, &tableFake{}, &writerFake{})
	bundle := c.Resolve(context.Background(), domain.MediaFlags{IncludeImage: true}, "photo of mount fuji")

	if len(bundle.Images) != 1 || bundle.Images[0].Source != domain.SourceWebSearch {
		t.Fatalf("expected web_search source, got %+v", bundle.Images)
	}
	if ai.calls != 0 {
		t.Fatal("photographic subject must try web retrieval before the AI model")
	}
}

func TestMediaTableFailureBecomesWarning(t *testing.T) {
	c := newCoordinator(
		&synthesizerFake{data: []byte("png")},
		&retrieverFake{},
		&generatorFake{data: []byte("ai")},
		&tableFake{err: errors.New("workbook write failed")},
		&writerFake{},
	)

	bundle := c.Resolve(context.Background(), domain.MediaFlags{IncludeTable: true}, "japan")
	if len(bundle.Tables) != 0 {
		t.Fatalf("expected no table, got %d", len(bundle.Tables))
	}
	if len(bundle.Warnings) != 1 {
		t.Fatalf("expected one warning, got %v", bundle.Warnings)
	}
}

func TestMediaTableKeepsMarkdownWhenWorkbookFails(t *testing.T) {
	// The synthesizer reports the lost workbook as an error but still hands
	// back the markdown skeleton; the bundle must keep it.
	c := newCoordinator(
		&synthesizerFake{data: []byte("png")},
		&retrieverFake{},
		&generatorFake{data: []byte("ai")},
		&tableFake{ref: domain.TableRef{Markdown: "| Aspect |"}, err: errors.New("workbook write failed")},
		&writerFake{},
	)

	bundle := c.Resolve(context.Background(), domain.MediaFlags{IncludeTable: true}, "japan")
	if len(bundle.Tables) != 1 || bundle.Tables[0].Markdown != "| Aspect |" {
		t.Fatalf("markdown skeleton must survive, got %+v", bundle.Tables)
	}
	if len(bundle.Warnings) != 1 {
		t.Fatalf("expected one warning, got %v", bundle.Warnings)
	}
}

func TestMediaImageWriteFailureDegrades(t *testing.T) {
	c := newCoordinator(
		&synthesizerFake{data: []byte("png")},
		&retrieverFake{},
		&generatorFake{data: []byte("ai")},
		&tableFake{ref: domain.TableRef{Markdown: "| a |"}},
		&writerFake{writeErr: errors.New("disk full")},
	)

	bundle := c.Resolve(context.Background(), domain.MediaFlags{IncludeImage: true, IncludeTable: true}, "japan")
	if len(bundle.Images) != 0 {
		t.Fatalf("expected no image after write failure, got %d", len(bundle.Images))
	}
	if len(bundle.Tables) != 1 {
		t.Fatal("table resolution must survive an image write failure")
	}
	if len(bundle.Warnings) == 0 {
		t.Fatal("expected a warning for the failed image write")
	}
}
