package usecase

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/okolin/scribe/internal/core/domain"
)

// Subject nouns that anchor a topic-bearing phrase, per descriptor family.
const (
	documentSubjects = `essay|article|paper|document|thesis|report|post|story|analysis|presentation|slideshow|slides|deck|dataset|data`
	imageSubjects    = `image|picture|photo|photograph|drawing|illustration|flag|logo`
	codeSubjects     = `code|program|script|function|snippet`
)

// The boundary set terminates a topic capture so trailing clauses ("with an
// image and a table inside") never leak into the subject.
const topicBoundary = `(?:\s+(?:with|in|and|well)\b|[.!?,;]|$)`

// topicPattern is one branch of the cascade. All branches are always
// evaluated and the first structurally valid capture wins by priority; a
// branch is never suppressed just because another preposition appears
// earlier in the raw text.
type topicPattern struct {
	tag string
	re  *regexp.Regexp
}

func buildTopicCascade(subjects string) []topicPattern {
	prepositions := []string{"about", "of", "on"}
	cascade := make([]topicPattern, 0, len(prepositions))
	for _, prep := range prepositions {
		expr := fmt.Sprintf(`(?:%s)\s+%s\s+(.+?)%s`, subjects, prep, topicBoundary)
		cascade = append(cascade, topicPattern{
			tag: prep,
			re:  regexp.MustCompile(expr),
		})
	}
	return cascade
}

var (
	documentTopicCascade = buildTopicCascade(documentSubjects)
	imageTopicCascade    = buildTopicCascade(imageSubjects)
	codeTopicCascade     = buildTopicCascade(codeSubjects)

	titledPattern     = regexp.MustCompile(`(?:titled|called|named)\s+(.+?)(?:[.!?,;]|$)`)
	wordCountPattern  = regexp.MustCompile(`(\d+)\s*words?\b`)
	languagePattern   = regexp.MustCompile(`\bin\s+(python|go|golang|javascript|typescript|java|rust|ruby|bash|sql|c)\b`)
	leadingArticleRE  = regexp.MustCompile(`^(?:a|an|the)\s+`)
	whitespaceCollaps = regexp.MustCompile(`\s+`)
)

// Extractor turns classified text into a validated TaskDescriptor.
type Extractor struct {
	defaultWords int
}

func NewExtractor(defaultWords int) *Extractor {
	if defaultWords <= 0 {
		defaultWords = 1200
	}
	return &Extractor{defaultWords: defaultWords}
}

func (e *Extractor) Extract(text string, action domain.Action) (domain.TaskDescriptor, error) {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return domain.TaskDescriptor{}, domain.WrapError(domain.ErrInvalidInput, "extract parameters", fmt.Errorf("empty input"))
	}

	desc := domain.TaskDescriptor{
		Action:      action,
		TargetWords: e.targetWords(normalized),
		Format:      formatForAction(action, normalized),
		Media: domain.MediaFlags{
			IncludeImage: hasAny(normalized, "image", "picture", "photo", "illustration"),
			IncludeTable: strings.Contains(normalized, "table"),
		},
	}

	switch action {
	case domain.ActionGenerateDocument, domain.ActionAnalyzeData, domain.ActionGeneratePresentation:
		desc.Topic = firstValidCapture(normalized, documentTopicCascade)
	case domain.ActionGenerateImage:
		desc.Topic = firstValidCapture(normalized, imageTopicCascade)
		desc.Media = domain.MediaFlags{}
	case domain.ActionGenerateCode:
		desc.Topic = firstValidCapture(normalized, codeTopicCascade)
		if match := languagePattern.FindStringSubmatch(normalized); match != nil {
			desc.LanguageHint = match[1]
		}
	case domain.ActionInsertMedia:
		desc.Topic = insertTitle(normalized)
		desc.Media.IncludeImage = true
	default:
		return domain.TaskDescriptor{}, domain.WrapError(domain.ErrInvalidInput, "extract parameters", fmt.Errorf("action %s carries no parameters", action))
	}

	if err := desc.Validate(); err != nil {
		return domain.TaskDescriptor{}, err
	}
	return desc, nil
}

// firstValidCapture evaluates every preposition branch and accepts the first
// structurally valid capture in cascade order. The branches are independent:
// an unrelated "on" earlier in the message cannot suppress a later "of".
func firstValidCapture(normalized string, cascade []topicPattern) string {
	for _, pattern := range cascade {
		match := pattern.re.FindStringSubmatch(normalized)
		if match == nil {
			continue
		}
		topic := cleanTopic(match[1])
		if topic != "" {
			return topic
		}
	}
	return ""
}

// insertTitle resolves the title of the document a prior artifact should be
// inserted into: "titled X" first, then the document topic cascade.
func insertTitle(normalized string) string {
	if match := titledPattern.FindStringSubmatch(normalized); match != nil {
		if topic := cleanTopic(match[1]); topic != "" {
			return topic
		}
	}
	return firstValidCapture(normalized, documentTopicCascade)
}

func (e *Extractor) targetWords(normalized string) int {
	match := wordCountPattern.FindStringSubmatch(normalized)
	if match == nil {
		return e.defaultWords
	}
	n, err := strconv.Atoi(match[1])
	if err != nil || n <= 0 {
		return e.defaultWords
	}
	return n
}

func formatForAction(action domain.Action, normalized string) domain.OutputFormat {
	switch action {
	case domain.ActionGenerateImage:
		return domain.FormatImage
	case domain.ActionGenerateCode:
		return domain.FormatCode
	case domain.ActionGeneratePresentation:
		return domain.FormatPresentation
	default:
		if hasAny(normalized, "docx", "word document") {
			return domain.FormatDocx
		}
		return domain.FormatMarkdown
	}
}

func cleanTopic(raw string) string {
	topic := whitespaceCollaps.ReplaceAllString(strings.TrimSpace(raw), " ")
	topic = leadingArticleRE.ReplaceAllString(topic, "")
	return strings.Trim(topic, `"' `)
}

func hasAny(normalized string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(normalized, kw) {
			return true
		}
	}
	return false
}
