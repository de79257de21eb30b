package ports

import (
	"context"
	"io"

	"github.com/okolin/scribe/internal/core/domain"
)

// DraftSpec is what the text-generation collaborator needs for one draft.
type DraftSpec struct {
	Topic        string
	TargetWords  int
	Format       domain.OutputFormat
	LanguageHint string
}

// Drafter produces and revises prose. Both calls block on provider latency;
// the orchestrator owns the deadline.
type Drafter interface {
	Draft(ctx context.Context, spec DraftSpec) (string, error)
	Revise(ctx context.Context, draft string, reasons []string, spec DraftSpec) (string, error)
}

// ImageSynthesizer renders deterministic images for canonical subjects
// (national flags, simple charts) without any provider call.
type ImageSynthesizer interface {
	Synthesize(ctx context.Context, topic string) ([]byte, error)
}

// ImageRetriever fetches an image from the web. A miss surfaces as
// domain.ErrImageNotFound.
type ImageRetriever interface {
	Retrieve(ctx context.Context, topic string) ([]byte, error)
}

// ImageGenerator asks an AI image model for a render. Missing credentials
// surface as domain.ErrNoCredential.
type ImageGenerator interface {
	Generate(ctx context.Context, topic string, size string) ([]byte, error)
}

// TableSynthesizer builds a table skeleton for a topic: an embeddable
// markdown body plus an xlsx workbook written to the workspace.
type TableSynthesizer interface {
	Synthesize(ctx context.Context, topic string) (domain.TableRef, error)
}

// ArtifactWriter is the persistence boundary: write(kind, content) → receipt.
type ArtifactWriter interface {
	Write(ctx context.Context, kind domain.ArtifactKind, name string, data io.Reader) (domain.Receipt, error)
	Discard(ctx context.Context, path string) error
}

// ArtifactIndex is the durable artifact catalog with provenance.
type ArtifactIndex interface {
	Create(ctx context.Context, artifact *domain.Artifact) error
	GetByID(ctx context.Context, id string) (*domain.Artifact, error)
	LatestByKind(ctx context.Context, sessionID string, kind domain.ArtifactKind) (*domain.Artifact, error)
}

// RunStore persists pipeline run state so workers can pick runs up by ID.
type RunStore interface {
	Create(ctx context.Context, run *domain.PipelineRun) error
	GetByID(ctx context.Context, id string) (*domain.PipelineRun, error)
	UpdateState(ctx context.Context, id string, state domain.RunState, revisions int, failureStage domain.RunState, failureReason string) error
}

// RunQueue hands accepted run IDs to the worker pool.
type RunQueue interface {
	PublishRunRequested(ctx context.Context, runID string) error
	SubscribeRunRequested(ctx context.Context, handler func(context.Context, string) error) error
}
