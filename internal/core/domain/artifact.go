package domain

import "time"

type ArtifactKind string

const (
	KindDocument ArtifactKind = "document"
	KindImage    ArtifactKind = "image"
	KindCodeFile ArtifactKind = "code_file"
)

// Receipt is what the persistence boundary hands back for one write.
type Receipt struct {
	Path      string    `json:"path"`
	SizeBytes int64     `json:"size_bytes"`
	WordCount int       `json:"word_count,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Artifact is a persisted output with provenance. The durable copy lives in
// the workspace; the registry holds a latest-of-kind back-reference only.
type Artifact struct {
	ID         string         `json:"id"`
	SessionID  string         `json:"session_id"`
	Kind       ArtifactKind   `json:"kind"`
	Path       string         `json:"path"`
	SizeBytes  int64          `json:"size_bytes"`
	WordCount  int            `json:"word_count,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	Provenance TaskDescriptor `json:"provenance"`
}
