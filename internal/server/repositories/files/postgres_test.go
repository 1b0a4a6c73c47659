package files

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

// arrayConverter lets []string arguments through the way the pgx driver does.
type arrayConverter struct{}

func (arrayConverter) ConvertValue(v any) (driver.Value, error) {
	if s, ok := v.([]string); ok {
		return s, nil
	}
	return driver.DefaultParameterConverter.ConvertValue(v)
}

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(
		sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp),
		sqlmock.ValueConverterOption(arrayConverter{}),
	)
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

var cols = []string{"id", "name", "owner_id", "folder_id", "mime_type", "size", "private", "created_at"}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^\s*INSERT\s+INTO\s+files\b.*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5,\s*\$6,\s*\$7\)\s*RETURNING\s+created_at\s*$`
	folder := "f1"
	now := time.Now()

	mock.ExpectQuery(q).
		WithArgs("k1", "a.txt", "u1", &folder, "text/plain", int64(3), true).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))

	file := &models.File{ID: "k1", Name: "a.txt", OwnerID: "u1", FolderID: &folder, MimeType: "text/plain", Size: 3, Private: true}
	if err := repo.Create(context.Background(), file); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !file.CreatedAt.Equal(now) {
		t.Fatalf("created_at not set: %v", file.CreatedAt)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreate_ForeignFolder(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)INSERT\s+INTO\s+files`).
		WillReturnError(&pgconn.PgError{Code: "23503", ConstraintName: "files_folder_fk"})

	err := repo.Create(context.Background(), &models.File{ID: "k1", Name: "a", OwnerID: "u1"})
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound, got %v", err)
	}
}

func TestCreate_OwnerGone(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)INSERT\s+INTO\s+files`).
		WillReturnError(&pgconn.PgError{Code: "23503", ConstraintName: "files_owner_fk"})

	err := repo.Create(context.Background(), &models.File{ID: "k1", Name: "a", OwnerID: "u1"})
	if !errors.Is(err, common.ErrorUnauthorized) {
		t.Fatalf("want ErrorUnauthorized, got %v", err)
	}
}

func TestGetByID(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+id,\s*name,.*FROM\s+files\s+WHERE\s+id\s*=\s*\$1$`
	mock.ExpectQuery(q).WithArgs("k1").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("k1", "a.txt", "u1", nil, "text/plain", int64(3), false, time.Now()))
	mock.ExpectQuery(q).WithArgs("k2").WillReturnError(sql.ErrNoRows)

	got, err := repo.GetByID(context.Background(), "k1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.FolderID != nil || got.Private || got.Name != "a.txt" {
		t.Fatalf("unexpected row: %+v", got)
	}

	if _, err := repo.GetByID(context.Background(), "k2"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound, got %v", err)
	}
}

func TestListInFolder(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)FROM\s+files\s+WHERE\s+owner_id\s*=\s*\$1\s+AND\s+folder_id\s+IS\s+NOT\s+DISTINCT\s+FROM\s+\$2\s+ORDER\s+BY\s+name,\s*id`
	folder := "f1"
	rows := sqlmock.NewRows(cols).
		AddRow("k1", "a.txt", "u1", folder, "text/plain", int64(1), true, time.Now()).
		AddRow("k2", "b.txt", "u1", folder, "text/plain", int64(2), true, time.Now())
	mock.ExpectQuery(q).WithArgs("u1", &folder).WillReturnRows(rows)

	got, err := repo.ListInFolder(context.Background(), "u1", &folder)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].ID != "k1" || got[1].ID != "k2" {
		t.Fatalf("unexpected rows: %+v", got)
	}
	if *got[0].FolderID != "f1" {
		t.Fatalf("folder id not scanned")
	}
}

func TestSetPrivacyAndDelete_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE\s+files\s+SET\s+private`).WithArgs("k1", "u1", false).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE\s+FROM\s+files\s+WHERE\s+id`).WithArgs("k1", "u1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.SetPrivacy(context.Background(), "k1", "u1", false); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound, got %v", err)
	}
	if err := repo.Delete(context.Background(), "k1", "u1"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound, got %v", err)
	}
}

func TestDeleteMany(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `DELETE\s+FROM\s+files\s+WHERE\s+owner_id\s*=\s*\$1\s+AND\s+id\s*=\s*ANY\(\$2\)`
	mock.ExpectExec(q).WithArgs("u1", []string{"k1", "k2", "k3"}).
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := repo.DeleteMany(context.Background(), "u1", []string{"k1", "k2", "k3"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Fatalf("want 2 rows, got %d", n)
	}

	n, err = repo.DeleteMany(context.Background(), "u1", nil)
	if err != nil || n != 0 {
		t.Fatalf("empty delete: n=%d err=%v", n, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
