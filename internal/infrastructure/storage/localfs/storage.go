// Package localfs is the workspace persistence boundary: artifacts land in
// per-kind subdirectories and every successful write returns a receipt.
package localfs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/okolin/scribe/internal/core/domain"
)

type Workspace struct {
	basePath string
}

func New(basePath string) (*Workspace, error) {
	if basePath == "" {
		basePath = "./data/workspace"
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace dir: %w", err)
	}
	return &Workspace{basePath: basePath}, nil
}

// BasePath is where the workspace roots its artifact tree.
func (w *Workspace) BasePath() string { return w.basePath }

func (w *Workspace) Write(ctx context.Context, kind domain.ArtifactKind, name string, data io.Reader) (domain.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return domain.Receipt{}, err
	}
	name = filepath.Base(name)
	if name == "" || name == "." || name == string(filepath.Separator) {
		return domain.Receipt{}, fmt.Errorf("invalid artifact name %q", name)
	}

	dir := filepath.Join(w.basePath, subdirFor(kind))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return domain.Receipt{}, fmt.Errorf("create %s dir: %w", kind, err)
	}

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return domain.Receipt{}, fmt.Errorf("create artifact file: %w", err)
	}

	var buf bytes.Buffer
	var dst io.Writer = f
	if countsWords(kind) {
		dst = io.MultiWriter(f, &buf)
	}
	written, err := io.Copy(dst, data)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return domain.Receipt{}, fmt.Errorf("write artifact file: %w", err)
	}

	receipt := domain.Receipt{
		Path:      path,
		SizeBytes: written,
		CreatedAt: time.Now().UTC(),
	}
	if countsWords(kind) {
		receipt.WordCount = len(strings.Fields(buf.String()))
	}
	return receipt, nil
}

// Discard removes an artifact file; a file already gone is not an error.
func (w *Workspace) Discard(_ context.Context, path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove artifact file: %w", err)
	}
	return nil
}

func subdirFor(kind domain.ArtifactKind) string {
	switch kind {
	case domain.KindImage:
		return "images"
	case domain.KindCodeFile:
		return "code"
	default:
		return "documents"
	}
}

func countsWords(kind domain.ArtifactKind) bool {
	return kind == domain.KindDocument || kind == domain.KindCodeFile
}
