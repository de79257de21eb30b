package usecase

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/okolin/scribe/internal/core/domain"
	"github.com/okolin/scribe/internal/core/ports"
)

// MediaCoordinator resolves media flags into embeddable references. Image
// acquisition walks an ordered strategy chain until one produces bytes; the
// programmatic synthesizer terminates the chain, so a bundle always
// materializes, possibly degraded and carrying warnings.
type MediaCoordinator struct {
	synthesizer ports.ImageSynthesizer
	retriever   ports.ImageRetriever
	generator   ports.ImageGenerator
	tables      ports.TableSynthesizer
	writer      ports.ArtifactWriter
	imageSize   string
}

func NewMediaCoordinator(
	synthesizer ports.ImageSynthesizer,
	retriever ports.ImageRetriever,
	generator ports.ImageGenerator,
	tables ports.TableSynthesizer,
	writer ports.ArtifactWriter,
	imageSize string,
) *MediaCoordinator {
	if imageSize == "" {
		imageSize = "1024x1024"
	}
	return &MediaCoordinator{
		synthesizer: synthesizer,
		retriever:   retriever,
		generator:   generator,
		tables:      tables,
		writer:      writer,
		imageSize:   imageSize,
	}
}

func (c *MediaCoordinator) Resolve(ctx context.Context, flags domain.MediaFlags, topic string) domain.MediaBundle {
	bundle := domain.MediaBundle{}

	if flags.IncludeImage {
		ref, _, warnings := c.resolveImage(ctx, topic)
		bundle.Warnings = append(bundle.Warnings, warnings...)
		if ref != nil {
			bundle.Images = append(bundle.Images, *ref)
		}
	}

	if flags.IncludeTable {
		table, err := c.tables.Synthesize(ctx, topic)
		if err != nil {
			bundle.Warnings = append(bundle.Warnings, fmt.Sprintf("table workbook failed: %v", err))
		}
		// A failed workbook still leaves the markdown skeleton embeddable.
		if table.Markdown != "" {
			bundle.Tables = append(bundle.Tables, table)
		}
	}

	return bundle
}

// AcquireImage produces a standalone image artifact for generate_image tasks
// and returns the workspace reference alongside its write receipt.
func (c *MediaCoordinator) AcquireImage(ctx context.Context, topic string) (*domain.ImageRef, domain.Receipt, []string, error) {
	ref, receipt, warnings := c.resolveImage(ctx, topic)
	if ref == nil {
		return nil, domain.Receipt{}, warnings, domain.WrapError(domain.ErrImageNotFound, "acquire image", fmt.Errorf("all strategies failed for %q", topic))
	}
	return ref, receipt, warnings, nil
}

func (c *MediaCoordinator) resolveImage(ctx context.Context, topic string) (*domain.ImageRef, domain.Receipt, []string) {
	var warnings []string

	data, source, err := c.acquire(ctx, topic)
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("image acquisition failed: %v", err))
		return nil, domain.Receipt{}, warnings
	}
	if source == domain.SourcePlaceholder {
		warnings = append(warnings, "image degraded to programmatic placeholder")
	}

	name := fmt.Sprintf("%s_%s.png", slug(topic), uuid.NewString()[:8])
	receipt, err := c.writer.Write(ctx, domain.KindImage, name, bytes.NewReader(data))
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("image write failed: %v", err))
		return nil, domain.Receipt{}, warnings
	}

	return &domain.ImageRef{Path: receipt.Path, Source: source}, receipt, warnings
}

// acquire walks the strategy chain. Canonical subjects go straight to the
// deterministic synthesizer; photographic phrasing prefers web retrieval;
// everything else starts at the AI model and falls back AI → web →
// programmatic, in that order.
func (c *MediaCoordinator) acquire(ctx context.Context, topic string) ([]byte, domain.MediaSource, error) {
	lowered := strings.ToLower(topic)

	if isCanonicalSubject(lowered) {
		if data, err := c.synthesizer.Synthesize(ctx, topic); err == nil {
			return data, domain.SourceSynthesized, nil
		}
	} else if isPhotographicSubject(lowered) {
		if data, err := c.retriever.Retrieve(ctx, topic); err == nil {
			return data, domain.SourceWebSearch, nil
		}
	}

	data, err := c.generator.Generate(ctx, topic, c.imageSize)
	if err == nil {
		return data, domain.SourceAIGenerated, nil
	}
	if ctx.Err() != nil {
		return nil, "", ctx.Err()
	}

	data, err = c.retriever.Retrieve(ctx, topic)
	if err == nil {
		return data, domain.SourceWebSearch, nil
	}
	if ctx.Err() != nil {
		return nil, "", ctx.Err()
	}

	data, err = c.synthesizer.Synthesize(ctx, topic)
	if err != nil {
		return nil, "", fmt.Errorf("placeholder synthesis: %w", err)
	}
	return data, domain.SourcePlaceholder, nil
}

func isCanonicalSubject(lowered string) bool {
	return hasAny(lowered, "flag of", "flag", "chart", "diagram", "graph")
}

func isPhotographicSubject(lowered string) bool {
	return hasAny(lowered, "photo", "photograph", "real ", "picture of")
}

func slug(topic string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		case r == ' ' || r == '-' || r == '_':
			return '_'
		default:
			return -1
		}
	}, strings.TrimSpace(topic))
	if mapped == "" {
		return "artifact"
	}
	const maxLen = 40
	if len(mapped) > maxLen {
		mapped = mapped[:maxLen]
	}
	return mapped
}
