package ollama

import (
	"fmt"
	"strings"

	"github.com/okolin/scribe/internal/core/domain"
	"github.com/okolin/scribe/internal/core/ports"
)

func buildDraftPrompt(spec ports.DraftSpec) string {
	switch spec.Format {
	case domain.FormatCode:
		language := spec.LanguageHint
		if language == "" {
			language = "python"
		}
		return fmt.Sprintf(`Write a complete, runnable %s program for the task below.
Return only the source code, no markdown fences, no commentary.

Task:
%s
`, language, spec.Topic)

	case domain.FormatPresentation:
		return fmt.Sprintf(`Write a slide-by-slide presentation outline in markdown.
Each slide starts with a "## Slide N: title" heading followed by 3-5 bullet points.
Aim for 8-10 slides.

Topic:
%s
`, spec.Topic)

	default:
		return fmt.Sprintf(`Write a well-structured essay in markdown.
Requirements:
- approximately %d words
- an introduction, several body paragraphs separated by blank lines, and a closing paragraph that begins with "In conclusion"
- no preamble before the text and no commentary after it

Topic:
%s
`, spec.TargetWords, spec.Topic)
	}
}

func buildRevisionPrompt(draft string, reasons []string, spec ports.DraftSpec) string {
	var issues strings.Builder
	for _, reason := range reasons {
		issues.WriteString("- ")
		issues.WriteString(reason)
		issues.WriteString("\n")
	}

	return fmt.Sprintf(`Revise the draft below to fix the listed issues.
Keep what already works, aim for approximately %d words, and return only the revised text.

Issues:
%s
Draft:
%s
`, spec.TargetWords, issues.String(), draft)
}
