package domain

import "time"

type RunState string

const (
	StateDrafting         RunState = "DRAFTING"
	StateReviewing        RunState = "REVIEWING"
	StateRevising         RunState = "REVISING"
	StateMediaIntegration RunState = "MEDIA_INTEGRATION"
	StateAssembling       RunState = "ASSEMBLING"
	StatePersisted        RunState = "PERSISTED"
	StateFailed           RunState = "FAILED"
)

func (s RunState) Terminal() bool {
	return s == StatePersisted || s == StateFailed
}

// QualityVerdict is the outcome of the deterministic review stage. Reasons
// are ordered so a revision prompt can replay them verbatim.
type QualityVerdict struct {
	Passed  bool     `json:"passed"`
	Reasons []string `json:"reasons,omitempty"`
}

// PipelineRun is one execution of the generation state machine.
type PipelineRun struct {
	ID            string          `json:"id"`
	SessionID     string          `json:"session_id"`
	State         RunState        `json:"state"`
	Descriptor    TaskDescriptor  `json:"descriptor"`
	RevisionCount int             `json:"revision_count"`
	Draft         string          `json:"-"`
	Verdict       *QualityVerdict `json:"verdict,omitempty"`
	Warnings      []string        `json:"warnings,omitempty"`
	FailureStage  RunState        `json:"failure_stage,omitempty"`
	FailureReason string          `json:"failure_reason,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// PipelinePolicy bounds one run. Values come from configuration; zero
// fields fall back to defaults at construction.
type PipelinePolicy struct {
	MaxRevisions   int           `json:"max_revisions"`
	DraftTimeout   time.Duration `json:"draft_timeout"`
	MediaTimeout   time.Duration `json:"media_timeout"`
	PersistTimeout time.Duration `json:"persist_timeout"`
}

// FailureReport tags a terminal failure with the stage it was reached in.
type FailureReport struct {
	Stage  RunState `json:"stage"`
	Reason string   `json:"reason"`
}

// RunProgress is emitted at every state transition.
type RunProgress struct {
	RunID       string   `json:"run_id"`
	State       RunState `json:"state"`
	StageIndex  int      `json:"stage_index"`
	TotalStages int      `json:"total_stages"`
	Message     string   `json:"message"`
}

// MediaSource names the acquisition strategy that produced an image.
type MediaSource string

const (
	SourceSynthesized   MediaSource = "synthesized"
	SourceWebSearch     MediaSource = "web_search"
	SourceAIGenerated   MediaSource = "ai_generated"
	SourcePlaceholder   MediaSource = "placeholder"
	SourcePriorArtifact MediaSource = "prior_artifact"
)

type ImageRef struct {
	Path   string      `json:"path"`
	Source MediaSource `json:"source"`
}

type TableRef struct {
	Markdown  string `json:"markdown"`
	SheetPath string `json:"sheet_path,omitempty"`
}

// MediaBundle carries references, never raw bytes, back to the orchestrator.
type MediaBundle struct {
	Images   []ImageRef `json:"images,omitempty"`
	Tables   []TableRef `json:"tables,omitempty"`
	Warnings []string   `json:"warnings,omitempty"`
}
