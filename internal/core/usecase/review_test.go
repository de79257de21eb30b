package usecase

import (
	"strings"
	"testing"

	"github.com/okolin/scribe/internal/core/domain"
	"github.com/okolin/scribe/internal/core/ports"
)

// structuredDraft builds a draft with the given word count and an
// introduction/body/conclusion shape.
func structuredDraft(words int) string {
	word := "content "
	perSection := words / 3
	section := strings.Repeat(word, perSection)
	return "Introduction paragraph. " + section + "\n\nBody paragraph. " + section +
		"\n\nIn conclusion, " + strings.Repeat(word, words-2*perSection)
}

func TestReviewPassesWellFormedDraft(t *testing.T) {
	r := NewReviewer()
	spec := ports.DraftSpec{TargetWords: 300, Format: domain.FormatMarkdown}

	verdict := r.Review(structuredDraft(300), spec)
	if !verdict.Passed {
		t.Fatalf("expected pass, got reasons %v", verdict.Reasons)
	}
}

func TestReviewRejectsShortDraft(t *testing.T) {
	r := NewReviewer()
	spec := ports.DraftSpec{TargetWords: 1000, Format: domain.FormatMarkdown}

	verdict := r.Review(structuredDraft(100), spec)
	if verdict.Passed {
		t.Fatal("expected length failure")
	}
	if len(verdict.Reasons) == 0 {
		t.Fatal("expected at least one reason")
	}
}

func TestReviewRejectsOverlongDraft(t *testing.T) {
	r := NewReviewer(LengthWithinTolerance(0.2))
	spec := ports.DraftSpec{TargetWords: 100, Format: domain.FormatMarkdown}

	verdict := r.Review(structuredDraft(200), spec)
	if verdict.Passed {
		t.Fatal("expected length failure for 2x target")
	}
}

func TestReviewLengthToleranceBoundary(t *testing.T) {
	r := NewReviewer(LengthWithinTolerance(0.2))
	spec := ports.DraftSpec{TargetWords: 100, Format: domain.FormatMarkdown}

	// 80 and 120 words sit exactly on the ±20% boundary.
	if verdict := r.Review(strings.Repeat("w ", 80), spec); !verdict.Passed {
		t.Fatalf("80 words should pass for target 100: %v", verdict.Reasons)
	}
	if verdict := r.Review(strings.Repeat("w ", 120), spec); !verdict.Passed {
		t.Fatalf("120 words should pass for target 100: %v", verdict.Reasons)
	}
	if verdict := r.Review(strings.Repeat("w ", 79), spec); verdict.Passed {
		t.Fatal("79 words should fail for target 100")
	}
}

func TestReviewRequiresDocumentStructure(t *testing.T) {
	r := NewReviewer(HasDocumentStructure())
	spec := ports.DraftSpec{TargetWords: 0, Format: domain.FormatMarkdown}

	verdict := r.Review("a single paragraph without any structure", spec)
	if verdict.Passed {
		t.Fatal("expected structure failure for single-paragraph draft")
	}

	verdict = r.Review("Intro.\n\nBody.\n\nIn conclusion, done.", spec)
	if !verdict.Passed {
		t.Fatalf("expected three-paragraph draft with conclusion to pass: %v", verdict.Reasons)
	}
}

func TestReviewLengthExemptsNonDocumentFormats(t *testing.T) {
	// A realistic program or slide outline is far shorter than the default
	// word target; the length gate must not bind those formats.
	r := NewReviewer(LengthWithinTolerance(0.2))

	for _, format := range []domain.OutputFormat{domain.FormatCode, domain.FormatImage, domain.FormatPresentation} {
		spec := ports.DraftSpec{TargetWords: 1200, Format: format}
		if verdict := r.Review("def sort(xs):\n    return sorted(xs)", spec); !verdict.Passed {
			t.Fatalf("format %s must be exempt from the word target: %v", format, verdict.Reasons)
		}
	}
}

func TestReviewStructureExemptsCode(t *testing.T) {
	r := NewReviewer(HasDocumentStructure())
	spec := ports.DraftSpec{Format: domain.FormatCode}

	verdict := r.Review("print('hello')", spec)
	if !verdict.Passed {
		t.Fatalf("code drafts are exempt from structure checks: %v", verdict.Reasons)
	}
}

func TestReviewReasonsAreOrdered(t *testing.T) {
	r := NewReviewer(LengthWithinTolerance(0.2), HasDocumentStructure())
	spec := ports.DraftSpec{TargetWords: 1000, Format: domain.FormatMarkdown}

	verdict := r.Review("too short", spec)
	if verdict.Passed {
		t.Fatal("expected failure")
	}
	if len(verdict.Reasons) != 2 {
		t.Fatalf("expected both predicates to report, got %v", verdict.Reasons)
	}
	if !strings.Contains(verdict.Reasons[0], "words") {
		t.Fatalf("expected the length reason first, got %v", verdict.Reasons)
	}
}
