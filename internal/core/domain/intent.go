package domain

import "time"

type Action string

const (
	ActionGenerateDocument     Action = "generate_document"
	ActionGenerateImage        Action = "generate_image"
	ActionGenerateCode         Action = "generate_code"
	ActionInsertMedia          Action = "insert_media"
	ActionAnalyzeData          Action = "analyze_data"
	ActionGeneratePresentation Action = "generate_presentation"
	ActionChat                 Action = "chat"
)

// Confidence is a three-level diagnostic signal. It never drives branching.
type Confidence int

const (
	ConfidenceNone     Confidence = 0
	ConfidenceVerbOnly Confidence = 1
	ConfidenceVerbNoun Confidence = 2
)

type Intent struct {
	Action     Action     `json:"action"`
	Confidence Confidence `json:"confidence"`
	Pattern    string     `json:"pattern,omitempty"`
}

// ChatRequest is one user turn. It is consumed by classification and
// discarded after dispatch; only derived state is persisted.
type ChatRequest struct {
	UserID     string    `json:"user_id"`
	SessionID  string    `json:"session_id"`
	Text       string    `json:"text"`
	ReceivedAt time.Time `json:"received_at"`
}

// DispatchResult is the caller-facing outcome of one turn: a receipt for a
// completed generation, a stage-tagged failure, or a chat fallback.
type DispatchResult struct {
	Action     Action         `json:"action"`
	Receipt    *Receipt       `json:"receipt,omitempty"`
	Failure    *FailureReport `json:"failure,omitempty"`
	RunID      string         `json:"run_id,omitempty"`
	ChatText   string         `json:"chat_text,omitempty"`
	Diagnostic string         `json:"diagnostic,omitempty"`
}
