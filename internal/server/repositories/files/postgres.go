package files

import (
	"context"
	"database/sql"
	"errors"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/dbx"
	"github.com/dmitrijs2005/filevault/internal/server/models"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/pgerr"
)

// PostgresRepository implements file storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const fileColumns = `id, name, owner_id, folder_id, mime_type, size, private, created_at`

func scanFile(row interface{ Scan(...any) error }) (*models.File, error) {
	f := &models.File{}
	err := row.Scan(&f.ID, &f.Name, &f.OwnerID, &f.FolderID, &f.MimeType, &f.Size, &f.Private, &f.CreatedAt)
	return f, err
}

// Create inserts file and sets CreatedAt from the database clock.
func (r *PostgresRepository) Create(ctx context.Context, file *models.File) error {
	query := `
		INSERT INTO files (id, name, owner_id, folder_id, mime_type, size, private)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		file.ID, file.Name, file.OwnerID, file.FolderID, file.MimeType, file.Size, file.Private).
		Scan(&file.CreatedAt)
	if err != nil {
		return pgerr.MapInsert("create file", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE id = $1`

	f, err := scanFile(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, pgerr.Map("get file", err)
	}
	return f, nil
}

func (r *PostgresRepository) ListInFolder(ctx context.Context, ownerID string, folderID *string) ([]*models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files
		WHERE owner_id = $1 AND folder_id IS NOT DISTINCT FROM $2
		ORDER BY name, id
	`
	rows, err := r.db.QueryContext(ctx, query, ownerID, folderID)
	if err != nil {
		return nil, pgerr.Map("list files", err)
	}
	defer rows.Close()

	var result []*models.File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, pgerr.Map("scan file", err)
		}
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, pgerr.Map("list files", err)
	}
	return result, nil
}

func (r *PostgresRepository) SetPrivacy(ctx context.Context, id, ownerID string, private bool) error {
	query := `UPDATE files SET private = $3 WHERE id = $1 AND owner_id = $2`
	res, err := r.db.ExecContext(ctx, query, id, ownerID, private)
	if err != nil {
		return pgerr.Map("set file privacy", err)
	}
	return expectOne(res, "set file privacy")
}

func (r *PostgresRepository) Delete(ctx context.Context, id, ownerID string) error {
	query := `DELETE FROM files WHERE id = $1 AND owner_id = $2`
	res, err := r.db.ExecContext(ctx, query, id, ownerID)
	if err != nil {
		return pgerr.Map("delete file", err)
	}
	return expectOne(res, "delete file")
}

func (r *PostgresRepository) DeleteMany(ctx context.Context, ownerID string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query := `DELETE FROM files WHERE owner_id = $1 AND id = ANY($2)`
	res, err := r.db.ExecContext(ctx, query, ownerID, ids)
	if err != nil {
		return 0, pgerr.Map("delete files", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, pgerr.Map("delete files", err)
	}
	return n, nil
}

func expectOne(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return pgerr.Map(op, err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
