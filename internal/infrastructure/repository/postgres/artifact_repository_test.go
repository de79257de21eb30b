package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/okolin/scribe/internal/core/domain"
)

func newArtifactRepoWithMock(t *testing.T) (*ArtifactRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &ArtifactRepository{db: db}, mock, func() { _ = db.Close() }
}

func artifactColumns() []string {
	return []string{"id", "session_id", "kind", "path", "size_bytes", "word_count", "provenance", "created_at"}
}

func TestArtifactGetByIDReturnsDomainNotFound(t *testing.T) {
	repo, mock, done := newArtifactRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT id, session_id, kind, path").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrArtifactNotFound) {
		t.Fatalf("expected ErrArtifactNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestArtifactLatestByKindScansProvenance(t *testing.T) {
	repo, mock, done := newArtifactRepoWithMock(t)
	defer done()

	created := time.Now().UTC()
	rows := sqlmock.NewRows(artifactColumns()).AddRow(
		"art-1", "s1", "image", "/ws/images/japan.png", int64(2048), 0,
		[]byte(`{"action":"generate_image","topic":"japan"}`), created,
	)
	mock.ExpectQuery("SELECT id, session_id, kind, path").
		WithArgs("s1", "image").
		WillReturnRows(rows)

	artifact, err := repo.LatestByKind(context.Background(), "s1", domain.KindImage)
	if err != nil {
		t.Fatalf("LatestByKind() error = %v", err)
	}
	if artifact.Kind != domain.KindImage || artifact.Path != "/ws/images/japan.png" {
		t.Fatalf("unexpected artifact %+v", artifact)
	}
	if artifact.Provenance.Topic != "japan" {
		t.Fatalf("provenance not decoded: %+v", artifact.Provenance)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestArtifactLatestByKindEmptySessionIsNotFound(t *testing.T) {
	repo, mock, done := newArtifactRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT id, session_id, kind, path").
		WithArgs("s1", "image").
		WillReturnRows(sqlmock.NewRows(artifactColumns()))

	_, err := repo.LatestByKind(context.Background(), "s1", domain.KindImage)
	if !domain.IsKind(err, domain.ErrArtifactNotFound) {
		t.Fatalf("expected ErrArtifactNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestArtifactCreateInsertsProvenanceJSON(t *testing.T) {
	repo, mock, done := newArtifactRepoWithMock(t)
	defer done()

	mock.ExpectExec("INSERT INTO artifacts").
		WithArgs("art-1", "s1", "document", "/ws/documents/japan.md", int64(4096), 780, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), &domain.Artifact{
		ID:        "art-1",
		SessionID: "s1",
		Kind:      domain.KindDocument,
		Path:      "/ws/documents/japan.md",
		SizeBytes: 4096,
		WordCount: 780,
		CreatedAt: time.Now().UTC(),
		Provenance: domain.TaskDescriptor{
			Action: domain.ActionGenerateDocument,
			Topic:  "japan",
		},
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
