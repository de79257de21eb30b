package usecase

import (
	"strings"

	"github.com/okolin/scribe/internal/core/domain"
)

// Classifier maps raw input text to an action through a prioritized cascade
// of verb/noun co-occurrence predicates. It is a pure function of its input:
// no state, no provider calls, deterministic output.
type Classifier struct {
	rules []actionRule
}

type actionRule struct {
	action  domain.Action
	pattern string
	verbs   []string
	// nouns may be multi-word phrases; single words match on token
	// boundaries, phrases by substring.
	nouns []string
}

func NewClassifier() *Classifier {
	return &Classifier{
		// Priority order is fixed: deictic insertion requests are checked
		// before document so "insert that image in an article" does not
		// misfire, then document > image > code > presentation > analysis.
		// Document-writing verbs dominate because "write an article with an
		// image" must classify as document, not image.
		rules: []actionRule{
			{
				action:  domain.ActionInsertMedia,
				pattern: "insert_deictic",
				verbs:   []string{"insert", "add", "put", "embed", "place"},
				nouns: []string{
					"that image", "the last image", "that picture", "the previous image",
					"that document", "the last document",
				},
			},
			{
				action:  domain.ActionGenerateDocument,
				pattern: "document_verb_noun",
				verbs:   []string{"write", "generate", "create", "compose", "draft", "make"},
				nouns:   []string{"essay", "article", "document", "report", "paper", "thesis", "post", "story"},
			},
			{
				action:  domain.ActionGenerateImage,
				pattern: "image_verb_noun",
				verbs:   []string{"generate", "create", "draw", "make", "render", "show"},
				nouns:   []string{"image", "picture", "photo", "drawing", "illustration", "flag of", "logo"},
			},
			{
				action:  domain.ActionGenerateCode,
				pattern: "code_verb_noun",
				verbs:   []string{"write", "generate", "create", "build", "make"},
				nouns:   []string{"code", "program", "script", "function", "snippet"},
			},
			{
				action:  domain.ActionGeneratePresentation,
				pattern: "presentation_verb_noun",
				verbs:   []string{"write", "generate", "create", "make", "prepare"},
				nouns:   []string{"powerpoint", "presentation", "slides", "slideshow", "deck"},
			},
			{
				action:  domain.ActionAnalyzeData,
				pattern: "analysis_verb_noun",
				verbs:   []string{"analyze", "analyse", "examine", "summarize"},
				nouns:   []string{"data", "dataset", "csv", "spreadsheet", "statistics"},
			},
		},
	}
}

// Classify resolves text to an Intent. Confidence is diagnostic only:
// 2 for verb+noun, 1 for verb without a recognized noun, 0 for no match.
func (c *Classifier) Classify(text string) domain.Intent {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return domain.Intent{Action: domain.ActionChat, Confidence: domain.ConfidenceNone}
	}
	tokens := tokenSet(normalized)

	verbOnly := domain.Intent{}
	for _, rule := range c.rules {
		verbHit := anyToken(tokens, rule.verbs)
		nounHit := anyNoun(normalized, tokens, rule.nouns)
		if verbHit && nounHit {
			return domain.Intent{
				Action:     rule.action,
				Confidence: domain.ConfidenceVerbNoun,
				Pattern:    rule.pattern,
			}
		}
		if verbHit && verbOnly.Action == "" && rule.action != domain.ActionInsertMedia {
			verbOnly = domain.Intent{
				Action:     rule.action,
				Confidence: domain.ConfidenceVerbOnly,
				Pattern:    rule.pattern + "_verb_only",
			}
		}
	}
	if verbOnly.Action != "" {
		return verbOnly
	}
	return domain.Intent{Action: domain.ActionChat, Confidence: domain.ConfidenceNone}
}

func tokenSet(normalized string) map[string]struct{} {
	fields := strings.FieldsFunc(normalized, func(r rune) bool {
		switch {
		case r >= 'a' && r <= 'z':
			return false
		case r >= '0' && r <= '9':
			return false
		case r == '\'' || r == '-':
			return false
		default:
			return true
		}
	})
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

func anyToken(tokens map[string]struct{}, words []string) bool {
	for _, w := range words {
		if _, ok := tokens[w]; ok {
			return true
		}
	}
	return false
}

func anyNoun(normalized string, tokens map[string]struct{}, nouns []string) bool {
	for _, n := range nouns {
		if strings.ContainsRune(n, ' ') {
			if strings.Contains(normalized, n) {
				return true
			}
			continue
		}
		if _, ok := tokens[n]; ok {
			return true
		}
	}
	return false
}
