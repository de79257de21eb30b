package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/okolin/scribe/internal/core/domain"
	"github.com/okolin/scribe/internal/core/ports"
)

const (
	reasonDraftTimeout     = "draft_timeout"
	reasonRevisionTimeout  = "revision_timeout"
	reasonProviderError    = "provider_error"
	reasonQualityExhausted = "quality_exhausted"
	reasonIOError          = "io_error"
	reasonCancelled        = "cancelled"
)

// PipelineError tags a post-acceptance failure with the stage it was
// reached in. Once a descriptor is accepted, failures surface here and
// never degrade to chat.
type PipelineError struct {
	Stage  domain.RunState
	Reason string
	Err    error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline failed at %s: %s: %v", e.Stage, e.Reason, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }

func (e *PipelineError) Report() *domain.FailureReport {
	return &domain.FailureReport{Stage: e.Stage, Reason: e.Reason}
}

// Pipeline drives one TaskDescriptor through drafting, review, bounded
// revision, media integration, assembly, and persistence. Single-flow: one
// run owns its draft buffer, no internal parallelism.
type Pipeline struct {
	drafter    ports.Drafter
	media      *MediaCoordinator
	writer     ports.ArtifactWriter
	index      ports.ArtifactIndex
	runs       ports.RunStore
	registries *RegistryManager
	reviewer   *Reviewer
	policy        domain.PipelinePolicy
	onProgress    func(domain.RunProgress)
	onMediaSource func(domain.MediaSource)
}

func NewPipeline(
	drafter ports.Drafter,
	media *MediaCoordinator,
	writer ports.ArtifactWriter,
	index ports.ArtifactIndex,
	runs ports.RunStore,
	registries *RegistryManager,
	reviewer *Reviewer,
	policy domain.PipelinePolicy,
) *Pipeline {
	if policy.MaxRevisions <= 0 {
		policy.MaxRevisions = 2
	}
	if policy.DraftTimeout <= 0 {
		policy.DraftTimeout = 60 * time.Second
	}
	if policy.MediaTimeout <= 0 {
		policy.MediaTimeout = 45 * time.Second
	}
	if policy.PersistTimeout <= 0 {
		policy.PersistTimeout = 10 * time.Second
	}
	return &Pipeline{
		drafter:    drafter,
		media:      media,
		writer:     writer,
		index:      index,
		runs:       runs,
		registries: registries,
		reviewer:   reviewer,
		policy:     policy,
	}
}

// SetProgressCallback registers an observer for state transitions.
func (p *Pipeline) SetProgressCallback(fn func(domain.RunProgress)) {
	p.onProgress = fn
}

// SetMediaSourceCallback registers an observer for the source that won each
// image acquisition.
func (p *Pipeline) SetMediaSourceCallback(fn func(domain.MediaSource)) {
	p.onMediaSource = fn
}

// Execute runs the state machine to a terminal state and returns the
// persistence receipt. Any error is a *PipelineError.
func (p *Pipeline) Execute(ctx context.Context, run *domain.PipelineRun) (domain.Receipt, error) {
	if run.Descriptor.Action == domain.ActionGenerateImage {
		return p.executeImage(ctx, run)
	}

	spec := ports.DraftSpec{
		Topic:        run.Descriptor.Topic,
		TargetWords:  run.Descriptor.TargetWords,
		Format:       run.Descriptor.Format,
		LanguageHint: run.Descriptor.LanguageHint,
	}
	withMedia := run.Descriptor.Media.IncludeImage || run.Descriptor.Media.IncludeTable ||
		run.Descriptor.AttachedImage != ""

	if err := p.transition(ctx, run, domain.StateDrafting, "drafting initial content"); err != nil {
		return domain.Receipt{}, p.fail(ctx, run, run.State, reasonCancelled, err)
	}
	if err := p.draft(ctx, run, spec); err != nil {
		return domain.Receipt{}, err
	}

	for {
		if err := p.transition(ctx, run, domain.StateReviewing, "reviewing draft quality"); err != nil {
			return domain.Receipt{}, p.fail(ctx, run, domain.StateReviewing, reasonCancelled, err)
		}
		verdict := p.reviewer.Review(run.Draft, spec)
		run.Verdict = &verdict
		if verdict.Passed {
			break
		}
		if run.RevisionCount >= p.policy.MaxRevisions {
			return domain.Receipt{}, p.fail(ctx, run, domain.StateReviewing, reasonQualityExhausted,
				domain.WrapError(domain.ErrQualityExhausted, "review draft",
					fmt.Errorf("%d revisions did not satisfy: %s", run.RevisionCount, strings.Join(verdict.Reasons, "; "))))
		}
		if err := p.transition(ctx, run, domain.StateRevising, "revising draft"); err != nil {
			return domain.Receipt{}, p.fail(ctx, run, domain.StateRevising, reasonCancelled, err)
		}
		if err := p.revise(ctx, run, verdict.Reasons, spec); err != nil {
			return domain.Receipt{}, err
		}
	}

	bundle := domain.MediaBundle{}
	if withMedia {
		if err := p.transition(ctx, run, domain.StateMediaIntegration, "resolving media"); err != nil {
			return domain.Receipt{}, p.fail(ctx, run, domain.StateMediaIntegration, reasonCancelled, err)
		}
		bundle = p.integrateMedia(ctx, run)
		if ctx.Err() != nil {
			p.discardMedia(run, bundle)
			return domain.Receipt{}, p.fail(ctx, run, domain.StateMediaIntegration, reasonCancelled, ctx.Err())
		}

		if err := p.transition(ctx, run, domain.StateAssembling, "assembling final artifact"); err != nil {
			p.discardMedia(run, bundle)
			return domain.Receipt{}, p.fail(ctx, run, domain.StateAssembling, reasonCancelled, err)
		}
		run.Draft = assemble(run.Draft, run.Descriptor, bundle)
	}

	receipt, err := p.persist(ctx, run, bundle)
	if err != nil {
		p.discardMedia(run, bundle)
		return domain.Receipt{}, err
	}
	return receipt, nil
}

// executeImage is the short path for standalone image tasks: no drafting and
// no review, the strategy chain produces the artifact directly.
func (p *Pipeline) executeImage(ctx context.Context, run *domain.PipelineRun) (domain.Receipt, error) {
	if err := p.transition(ctx, run, domain.StateMediaIntegration, "acquiring image"); err != nil {
		return domain.Receipt{}, p.fail(ctx, run, domain.StateMediaIntegration, reasonCancelled, err)
	}

	mediaCtx, cancel := context.WithTimeout(ctx, p.policy.MediaTimeout)
	defer cancel()

	ref, receipt, warnings, err := p.media.AcquireImage(mediaCtx, run.Descriptor.Topic)
	run.Warnings = append(run.Warnings, warnings...)
	for _, warning := range warnings {
		slog.Warn("media_degraded", "run_id", run.ID, "warning", warning)
	}
	if err != nil {
		reason := reasonProviderError
		if ctx.Err() != nil && !errors.Is(ctx.Err(), context.DeadlineExceeded) {
			reason = reasonCancelled
		}
		return domain.Receipt{}, p.fail(ctx, run, domain.StateMediaIntegration, reason, err)
	}
	p.recordMediaSource(ref.Source)

	if err := p.transition(ctx, run, domain.StatePersisted, "persisting artifact"); err != nil {
		p.discardMedia(run, domain.MediaBundle{Images: []domain.ImageRef{*ref}})
		return domain.Receipt{}, p.fail(ctx, run, domain.StatePersisted, reasonCancelled, err)
	}

	artifact := &domain.Artifact{
		ID:         uuid.NewString(),
		SessionID:  run.SessionID,
		Kind:       domain.KindImage,
		Path:       receipt.Path,
		SizeBytes:  receipt.SizeBytes,
		CreatedAt:  receipt.CreatedAt,
		Provenance: run.Descriptor,
	}
	storeCtx, cancelStore := context.WithTimeout(ctx, p.policy.PersistTimeout)
	defer cancelStore()
	if err := p.index.Create(storeCtx, artifact); err != nil {
		run.Warnings = append(run.Warnings, fmt.Sprintf("artifact index update failed: %v", err))
		slog.Warn("artifact_index_failed", "run_id", run.ID, "error", err)
	}
	p.registries.ForSession(run.SessionID).Record(artifact)
	return receipt, nil
}

func (p *Pipeline) draft(ctx context.Context, run *domain.PipelineRun, spec ports.DraftSpec) error {
	draftCtx, cancel := context.WithTimeout(ctx, p.policy.DraftTimeout)
	defer cancel()

	content, err := p.drafter.Draft(draftCtx, spec)
	if err != nil {
		reason := reasonProviderError
		if errors.Is(err, context.DeadlineExceeded) {
			reason = reasonDraftTimeout
		}
		if ctx.Err() != nil && !errors.Is(ctx.Err(), context.DeadlineExceeded) {
			reason = reasonCancelled
		}
		return p.fail(ctx, run, domain.StateDrafting, reason, err)
	}
	run.Draft = content
	return nil
}

func (p *Pipeline) revise(ctx context.Context, run *domain.PipelineRun, reasons []string, spec ports.DraftSpec) error {
	run.RevisionCount++

	reviseCtx, cancel := context.WithTimeout(ctx, p.policy.DraftTimeout)
	defer cancel()

	content, err := p.drafter.Revise(reviseCtx, run.Draft, reasons, spec)
	if err != nil {
		reason := reasonProviderError
		if errors.Is(err, context.DeadlineExceeded) {
			reason = reasonRevisionTimeout
		}
		if ctx.Err() != nil && !errors.Is(ctx.Err(), context.DeadlineExceeded) {
			reason = reasonCancelled
		}
		return p.fail(ctx, run, domain.StateRevising, reason, err)
	}
	run.Draft = content
	return nil
}

// integrateMedia resolves flags into references. Partial failures become
// warnings on the run; a missing image never aborts the document.
func (p *Pipeline) integrateMedia(ctx context.Context, run *domain.PipelineRun) domain.MediaBundle {
	mediaCtx, cancel := context.WithTimeout(ctx, p.policy.MediaTimeout)
	defer cancel()

	bundle := p.media.Resolve(mediaCtx, run.Descriptor.Media, run.Descriptor.Topic)
	if run.Descriptor.AttachedImage != "" {
		bundle.Images = append([]domain.ImageRef{{
			Path:   run.Descriptor.AttachedImage,
			Source: domain.SourcePriorArtifact,
		}}, bundle.Images...)
	}
	run.Warnings = append(run.Warnings, bundle.Warnings...)
	for _, warning := range bundle.Warnings {
		slog.Warn("media_degraded", "run_id", run.ID, "warning", warning)
	}
	for _, image := range bundle.Images {
		if image.Source == domain.SourcePriorArtifact {
			continue
		}
		p.recordMediaSource(image.Source)
	}
	return bundle
}

func (p *Pipeline) recordMediaSource(source domain.MediaSource) {
	if p.onMediaSource == nil || source == "" {
		return
	}
	p.onMediaSource(source)
}

func (p *Pipeline) persist(ctx context.Context, run *domain.PipelineRun, bundle domain.MediaBundle) (domain.Receipt, error) {
	if err := p.transition(ctx, run, domain.StatePersisted, "persisting artifact"); err != nil {
		return domain.Receipt{}, p.fail(ctx, run, domain.StatePersisted, reasonCancelled, err)
	}

	persistCtx, cancel := context.WithTimeout(ctx, p.policy.PersistTimeout)
	defer cancel()

	kind := artifactKindForFormat(run.Descriptor.Format)
	name := suggestName(run.Descriptor)
	receipt, err := p.writer.Write(persistCtx, kind, name, strings.NewReader(run.Draft))
	if err != nil {
		return domain.Receipt{}, p.fail(ctx, run, domain.StatePersisted, reasonIOError, err)
	}

	artifact := &domain.Artifact{
		ID:         uuid.NewString(),
		SessionID:  run.SessionID,
		Kind:       kind,
		Path:       receipt.Path,
		SizeBytes:  receipt.SizeBytes,
		WordCount:  receipt.WordCount,
		CreatedAt:  receipt.CreatedAt,
		Provenance: run.Descriptor,
	}
	if err := p.index.Create(persistCtx, artifact); err != nil {
		// The workspace copy is already durable; a stale index is a
		// warning, not a failed run.
		run.Warnings = append(run.Warnings, fmt.Sprintf("artifact index update failed: %v", err))
		slog.Warn("artifact_index_failed", "run_id", run.ID, "error", err)
	}
	p.registries.ForSession(run.SessionID).Record(artifact)

	for _, image := range bundle.Images {
		if image.Source == domain.SourcePriorArtifact {
			continue
		}
		p.registries.ForSession(run.SessionID).Record(&domain.Artifact{
			ID:        uuid.NewString(),
			SessionID: run.SessionID,
			Kind:      domain.KindImage,
			Path:      image.Path,
			CreatedAt: receipt.CreatedAt,
		})
	}
	return receipt, nil
}

// transition is the cooperative cancellation checkpoint: it refuses to enter
// the next stage once the context is done, records the new state, and emits
// progress.
func (p *Pipeline) transition(ctx context.Context, run *domain.PipelineRun, state domain.RunState, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	run.State = state
	run.UpdatedAt = time.Now().UTC()
	if p.runs != nil {
		if err := p.runs.UpdateState(ctx, run.ID, state, run.RevisionCount, "", ""); err != nil {
			slog.Warn("run_state_update_failed", "run_id", run.ID, "state", state, "error", err)
		}
	}
	p.emit(run, state, message)
	return nil
}

func (p *Pipeline) fail(ctx context.Context, run *domain.PipelineRun, stage domain.RunState, reason string, err error) error {
	run.State = domain.StateFailed
	run.FailureStage = stage
	run.FailureReason = reason
	run.UpdatedAt = time.Now().UTC()
	if p.runs != nil {
		// Record the terminal state even when the run context is gone.
		storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if storeErr := p.runs.UpdateState(storeCtx, run.ID, domain.StateFailed, run.RevisionCount, stage, reason); storeErr != nil {
			slog.Warn("run_state_update_failed", "run_id", run.ID, "state", domain.StateFailed, "error", storeErr)
		}
	}
	p.emit(run, domain.StateFailed, reason)
	return &PipelineError{Stage: stage, Reason: reason, Err: err}
}

// discardMedia removes partially written media so a failed or cancelled run
// leaves no orphaned workspace files.
func (p *Pipeline) discardMedia(run *domain.PipelineRun, bundle domain.MediaBundle) {
	cleanupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, image := range bundle.Images {
		if image.Source == domain.SourcePriorArtifact {
			continue
		}
		if err := p.writer.Discard(cleanupCtx, image.Path); err != nil {
			slog.Warn("media_discard_failed", "run_id", run.ID, "path", image.Path, "error", err)
		}
	}
}

func (p *Pipeline) emit(run *domain.PipelineRun, state domain.RunState, message string) {
	if p.onProgress == nil {
		return
	}
	index, total := stagePosition(state, run.Descriptor)
	p.onProgress(domain.RunProgress{
		RunID:       run.ID,
		State:       state,
		StageIndex:  index,
		TotalStages: total,
		Message:     message,
	})
}

func stagePosition(state domain.RunState, desc domain.TaskDescriptor) (int, int) {
	withMedia := desc.Media.IncludeImage || desc.Media.IncludeTable || desc.AttachedImage != ""
	order := []domain.RunState{domain.StateDrafting, domain.StateReviewing, domain.StatePersisted}
	switch {
	case desc.Action == domain.ActionGenerateImage:
		order = []domain.RunState{domain.StateMediaIntegration, domain.StatePersisted}
	case withMedia:
		order = []domain.RunState{
			domain.StateDrafting, domain.StateReviewing,
			domain.StateMediaIntegration, domain.StateAssembling, domain.StatePersisted,
		}
	}
	for i, s := range order {
		if s == state {
			return i, len(order)
		}
	}
	// REVISING and FAILED sit outside the forward path.
	return len(order) - 1, len(order)
}

func artifactKindForFormat(format domain.OutputFormat) domain.ArtifactKind {
	switch format {
	case domain.FormatImage:
		return domain.KindImage
	case domain.FormatCode:
		return domain.KindCodeFile
	default:
		return domain.KindDocument
	}
}

func suggestName(desc domain.TaskDescriptor) string {
	base := slug(desc.Topic)
	switch desc.Format {
	case domain.FormatCode:
		return base + codeExtension(desc.LanguageHint)
	case domain.FormatDocx:
		return base + ".docx"
	case domain.FormatImage:
		return base + ".png"
	default:
		return base + ".md"
	}
}

func codeExtension(language string) string {
	switch language {
	case "python":
		return ".py"
	case "go", "golang":
		return ".go"
	case "javascript":
		return ".js"
	case "typescript":
		return ".ts"
	case "java":
		return ".java"
	case "rust":
		return ".rs"
	case "ruby":
		return ".rb"
	case "bash":
		return ".sh"
	case "sql":
		return ".sql"
	case "c":
		return ".c"
	default:
		return ".txt"
	}
}

// assemble merges the draft with resolved media references into the final
// markdown body: title, prose, image embeds, table skeletons.
func assemble(draft string, desc domain.TaskDescriptor, bundle domain.MediaBundle) string {
	var b strings.Builder
	if !strings.HasPrefix(strings.TrimSpace(draft), "#") && desc.Topic != "" {
		b.WriteString("# ")
		b.WriteString(title(desc.Topic))
		b.WriteString("\n\n")
	}
	b.WriteString(strings.TrimSpace(draft))
	for _, image := range bundle.Images {
		b.WriteString(fmt.Sprintf("\n\n![%s](%s)\n", desc.Topic, image.Path))
	}
	for _, table := range bundle.Tables {
		b.WriteString("\n\n")
		b.WriteString(strings.TrimSpace(table.Markdown))
		b.WriteString("\n")
	}
	return b.String()
}

func title(topic string) string {
	words := strings.Fields(topic)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
