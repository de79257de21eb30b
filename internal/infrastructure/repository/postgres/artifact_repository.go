package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/okolin/scribe/internal/core/domain"
)

type ArtifactRepository struct {
	db *sql.DB
}

func NewArtifactRepository(db *sql.DB) *ArtifactRepository {
	return &ArtifactRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *ArtifactRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083001)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS artifacts (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	path TEXT NOT NULL,
	size_bytes BIGINT NOT NULL DEFAULT 0,
	word_count INTEGER NOT NULL DEFAULT 0,
	provenance JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_artifacts_session_kind ON artifacts(session_id, kind, created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *ArtifactRepository) Create(ctx context.Context, artifact *domain.Artifact) error {
	provenanceJSON, err := json.Marshal(artifact.Provenance)
	if err != nil {
		return fmt.Errorf("marshal provenance: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO artifacts (
	id, session_id, kind, path, size_bytes, word_count, provenance, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`,
		artifact.ID, artifact.SessionID, string(artifact.Kind), artifact.Path,
		artifact.SizeBytes, artifact.WordCount, provenanceJSON, artifact.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert artifact: %w", err)
	}
	return nil
}

func (r *ArtifactRepository) GetByID(ctx context.Context, id string) (*domain.Artifact, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, session_id, kind, path, size_bytes, word_count, provenance, created_at
FROM artifacts
WHERE id = $1
`, id)

	artifact, err := scanArtifact(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrArtifactNotFound, "get artifact", fmt.Errorf("id %s", id))
		}
		return nil, err
	}
	return artifact, nil
}

func (r *ArtifactRepository) LatestByKind(ctx context.Context, sessionID string, kind domain.ArtifactKind) (*domain.Artifact, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, session_id, kind, path, size_bytes, word_count, provenance, created_at
FROM artifacts
WHERE session_id = $1 AND kind = $2
ORDER BY created_at DESC
LIMIT 1
`, sessionID, string(kind))

	artifact, err := scanArtifact(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrArtifactNotFound, "latest artifact",
				fmt.Errorf("session %s kind %s", sessionID, kind))
		}
		return nil, err
	}
	return artifact, nil
}

func scanArtifact(row *sql.Row) (*domain.Artifact, error) {
	var artifact domain.Artifact
	var kind string
	var provenanceRaw []byte

	err := row.Scan(
		&artifact.ID, &artifact.SessionID, &kind, &artifact.Path,
		&artifact.SizeBytes, &artifact.WordCount, &provenanceRaw, &artifact.CreatedAt,
	)
	if err != nil {
		return nil, scanErr(err)
	}

	if err := json.Unmarshal(provenanceRaw, &artifact.Provenance); err != nil {
		return nil, fmt.Errorf("unmarshal provenance: %w", err)
	}
	artifact.Kind = domain.ArtifactKind(kind)
	return &artifact, nil
}

func scanErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return err
	}
	return fmt.Errorf("scan artifact: %w", err)
}
