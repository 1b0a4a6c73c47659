package folders

import (
	"context"
	"database/sql"
	"errors"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/dbx"
	"github.com/dmitrijs2005/filevault/internal/server/models"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/pgerr"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const folderColumns = `id, name, owner_id, parent_id, private, size, created_at`

func scanFolder(row interface{ Scan(...any) error }) (*models.Folder, error) {
	f := &models.Folder{}
	err := row.Scan(&f.ID, &f.Name, &f.OwnerID, &f.ParentID, &f.Private, &f.Size, &f.CreatedAt)
	return f, err
}

func (r *PostgresRepository) Create(ctx context.Context, folder *models.Folder) error {
	query := `
		INSERT INTO folders (id, name, owner_id, parent_id, private)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING size, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		folder.ID, folder.Name, folder.OwnerID, folder.ParentID, folder.Private).
		Scan(&folder.Size, &folder.CreatedAt)
	if err != nil {
		return pgerr.MapInsert("create folder", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Folder, error) {
	query := `SELECT ` + folderColumns + ` FROM folders WHERE id = $1`
	return r.one(ctx, "get folder", query, id)
}

func (r *PostgresRepository) FindChild(ctx context.Context, ownerID string, parentID *string, name string) (*models.Folder, error) {
	query := `SELECT ` + folderColumns + ` FROM folders
		WHERE owner_id = $1 AND parent_id IS NOT DISTINCT FROM $2 AND name = $3
	`
	return r.one(ctx, "find folder", query, ownerID, parentID, name)
}

func (r *PostgresRepository) one(ctx context.Context, op, query string, args ...any) (*models.Folder, error) {
	f, err := scanFolder(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, pgerr.Map(op, err)
	}
	return f, nil
}

func (r *PostgresRepository) ListChildren(ctx context.Context, ownerID string, parentID *string) ([]*models.Folder, error) {
	query := `SELECT ` + folderColumns + ` FROM folders
		WHERE owner_id = $1 AND parent_id IS NOT DISTINCT FROM $2
		ORDER BY name, id
	`
	rows, err := r.db.QueryContext(ctx, query, ownerID, parentID)
	if err != nil {
		return nil, pgerr.Map("list folders", err)
	}
	defer rows.Close()

	var result []*models.Folder
	for rows.Next() {
		f, err := scanFolder(rows)
		if err != nil {
			return nil, pgerr.Map("scan folder", err)
		}
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, pgerr.Map("list folders", err)
	}
	return result, nil
}

func (r *PostgresRepository) SetPrivacy(ctx context.Context, id, ownerID string, private bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE folders SET private = $3 WHERE id = $1 AND owner_id = $2`, id, ownerID, private)
	if err != nil {
		return pgerr.Map("set folder privacy", err)
	}
	return expectOne(res, "set folder privacy")
}

func (r *PostgresRepository) AddSize(ctx context.Context, id, ownerID string, delta int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE folders SET size = size + $3 WHERE id = $1 AND owner_id = $2`, id, ownerID, delta)
	if err != nil {
		return pgerr.Map("add folder size", err)
	}
	return expectOne(res, "add folder size")
}

func (r *PostgresRepository) Delete(ctx context.Context, id, ownerID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM folders WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return pgerr.Map("delete folder", err)
	}
	return expectOne(res, "delete folder")
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
