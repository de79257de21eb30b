package usecase

import (
	"fmt"
	"strings"

	"github.com/okolin/scribe/internal/core/domain"
	"github.com/okolin/scribe/internal/core/ports"
)

// QualityPredicate is one deterministic check over a draft. Thresholds are
// policy, not core contract, so the predicate set is pluggable.
type QualityPredicate func(draft string, spec ports.DraftSpec) (ok bool, reason string)

// Reviewer evaluates drafts against its predicate set. The review stage is a
// rule evaluation, never a second model round.
type Reviewer struct {
	predicates []QualityPredicate
}

func NewReviewer(predicates ...QualityPredicate) *Reviewer {
	if len(predicates) == 0 {
		predicates = []QualityPredicate{
			LengthWithinTolerance(0.2),
			HasDocumentStructure(),
		}
	}
	return &Reviewer{predicates: predicates}
}

func (r *Reviewer) Review(draft string, spec ports.DraftSpec) domain.QualityVerdict {
	verdict := domain.QualityVerdict{Passed: true}
	for _, predicate := range r.predicates {
		ok, reason := predicate(draft, spec)
		if !ok {
			verdict.Passed = false
			verdict.Reasons = append(verdict.Reasons, reason)
		}
	}
	return verdict
}

// LengthWithinTolerance checks the word count against the target within the
// given fraction. Word targets only bind prose documents: code, images, and
// slide outlines are exempt, as is a zero target.
func LengthWithinTolerance(tolerance float64) QualityPredicate {
	return func(draft string, spec ports.DraftSpec) (bool, string) {
		switch spec.Format {
		case domain.FormatMarkdown, domain.FormatDocx:
		default:
			return true, ""
		}
		if spec.TargetWords <= 0 {
			return true, ""
		}
		words := len(strings.Fields(draft))
		lower := int(float64(spec.TargetWords) * (1 - tolerance))
		upper := int(float64(spec.TargetWords) * (1 + tolerance))
		if words < lower {
			return false, fmt.Sprintf("draft is %d words, expected at least %d for a %d-word target", words, lower, spec.TargetWords)
		}
		if words > upper {
			return false, fmt.Sprintf("draft is %d words, expected at most %d for a %d-word target", words, upper, spec.TargetWords)
		}
		return true, ""
	}
}

// HasDocumentStructure checks for introduction/body/conclusion markers on
// document formats. Code and image formats are exempt.
func HasDocumentStructure() QualityPredicate {
	return func(draft string, spec ports.DraftSpec) (bool, string) {
		switch spec.Format {
		case domain.FormatMarkdown, domain.FormatDocx, domain.FormatPresentation:
		default:
			return true, ""
		}

		paragraphs := 0
		for _, block := range strings.Split(draft, "\n\n") {
			if strings.TrimSpace(block) != "" {
				paragraphs++
			}
		}
		if paragraphs < 3 {
			return false, fmt.Sprintf("document has %d paragraphs, expected an introduction, body, and conclusion", paragraphs)
		}

		lowered := strings.ToLower(draft)
		if !hasAny(lowered, "conclusion", "in summary", "to conclude", "finally", "in closing") {
			return false, "document lacks a conclusion marker"
		}
		return true, ""
	}
}
