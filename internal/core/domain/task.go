package domain

import (
	"fmt"
	"strings"
)

type OutputFormat string

const (
	FormatMarkdown     OutputFormat = "document_md"
	FormatDocx         OutputFormat = "document_docx"
	FormatImage        OutputFormat = "image"
	FormatCode         OutputFormat = "code"
	FormatPresentation OutputFormat = "presentation"
)

type MediaFlags struct {
	IncludeImage bool `json:"include_image"`
	IncludeTable bool `json:"include_table"`
}

// TaskDescriptor is the validated representation of what to generate,
// derived from free text. It lives for exactly one pipeline run.
type TaskDescriptor struct {
	Action       Action       `json:"action"`
	Topic        string       `json:"topic,omitempty"`
	TargetWords  int          `json:"target_words,omitempty"`
	Format       OutputFormat `json:"format"`
	Media        MediaFlags   `json:"media"`
	LanguageHint string       `json:"language_hint,omitempty"`
	// AttachedImage carries a resolved deictic reference: the workspace
	// path of a prior image to embed instead of acquiring a new one.
	AttachedImage string `json:"attached_image,omitempty"`
}

// Validate rejects descriptors that must never reach the pipeline. A
// document or code task with an empty subject is the caller's cue to fall
// back to chat.
func (d TaskDescriptor) Validate() error {
	switch d.Action {
	case ActionGenerateDocument, ActionGenerateCode, ActionAnalyzeData, ActionGeneratePresentation:
		if strings.TrimSpace(d.Topic) == "" {
			return WrapError(ErrNoTopic, "validate descriptor", fmt.Errorf("action %s requires a topic", d.Action))
		}
	case ActionGenerateImage, ActionInsertMedia:
		if strings.TrimSpace(d.Topic) == "" {
			return WrapError(ErrNoTopic, "validate descriptor", fmt.Errorf("action %s requires a subject", d.Action))
		}
	case ActionChat:
		return WrapError(ErrInvalidInput, "validate descriptor", fmt.Errorf("chat never carries a descriptor"))
	}
	if d.TargetWords < 0 {
		return WrapError(ErrInvalidInput, "validate descriptor", fmt.Errorf("negative target length %d", d.TargetWords))
	}
	return nil
}
