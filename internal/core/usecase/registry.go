package usecase

import (
	"fmt"
	"sync"

	"github.com/okolin/scribe/internal/core/domain"
)

// SessionRegistry tracks the most recent artifact per kind for one session,
// so deictic references ("that image") resolve without the user restating them.
// It holds back-references only; the durable copy lives in the workspace.
type SessionRegistry struct {
	mu     sync.RWMutex
	latest map[domain.ArtifactKind]*domain.Artifact
}

func newSessionRegistry() *SessionRegistry {
	return &SessionRegistry{latest: make(map[domain.ArtifactKind]*domain.Artifact)}
}

// Record overwrites the latest artifact of its kind.
func (r *SessionRegistry) Record(artifact *domain.Artifact) {
	if artifact == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.latest[artifact.Kind] = artifact
}

// ResolveReference looks up the latest artifact by kind only; phrase content
// never participates in matching.
func (r *SessionRegistry) ResolveReference(kind domain.ArtifactKind) (*domain.Artifact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	artifact, ok := r.latest[kind]
	if !ok {
		return nil, domain.WrapError(domain.ErrNoPriorArtifact, "resolve reference", fmt.Errorf("kind %s", kind))
	}
	return artifact, nil
}

// RegistryManager scopes one registry per session. Concurrent sessions never
// share state; teardown drops the whole registry.
type RegistryManager struct {
	mu       sync.Mutex
	sessions map[string]*SessionRegistry
}

func NewRegistryManager() *RegistryManager {
	return &RegistryManager{sessions: make(map[string]*SessionRegistry)}
}

func (m *RegistryManager) ForSession(sessionID string) *SessionRegistry {
	m.mu.Lock()
	defer m.mu.Unlock()
	registry, ok := m.sessions[sessionID]
	if !ok {
		registry = newSessionRegistry()
		m.sessions[sessionID] = registry
	}
	return registry
}

func (m *RegistryManager) EndSession(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
}
