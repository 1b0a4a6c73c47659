//go:build integration

package repomanager

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/dbx"
	"github.com/dmitrijs2005/filevault/internal/server/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

var sharedDB *sql.DB

func TestMain(m *testing.M) {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("filevault_test"),
		postgres.WithUsername("filevault_test"),
		postgres.WithPassword("filevault_test"),
		testcontainers.WithWaitStrategyAndDeadline(2*time.Minute,
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			wait.ForListeningPort("5432/tcp"),
		),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start postgres container: %v\n", err)
		os.Exit(1)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err == nil {
		sharedDB, err = sql.Open("pgx", dsn)
	}
	if err == nil {
		err = NewPostgresRepositoryManager().RunMigrations(ctx, sharedDB)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to prepare database: %v\n", err)
		_ = container.Terminate(ctx)
		os.Exit(1)
	}

	code := m.Run()

	_ = sharedDB.Close()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func createUser(t *testing.T, m RepositoryManager, db dbx.DBTX) *models.User {
	t.Helper()
	u, err := m.Users(db).Create(context.Background(), &models.User{
		UserName:     "user-" + uuid.NewString(),
		PasswordHash: []byte("hash"),
	})
	require.NoError(t, err)
	return u
}

func TestPostgres_FolderTree(t *testing.T) {
	ctx := context.Background()
	m := NewPostgresRepositoryManager()
	u := createUser(t, m, sharedDB)
	folders := m.Folders(sharedDB)
	files := m.Files(sharedDB)

	docs := &models.Folder{ID: uuid.NewString(), Name: "docs", OwnerID: u.ID, Private: true}
	require.NoError(t, folders.Create(ctx, docs))

	dup := &models.Folder{ID: uuid.NewString(), Name: "docs", OwnerID: u.ID, Private: true}
	assert.ErrorIs(t, folders.Create(ctx, dup), common.ErrorAlreadyExists)

	imgs := &models.Folder{ID: uuid.NewString(), Name: "imgs", OwnerID: u.ID, ParentID: &docs.ID, Private: true}
	require.NoError(t, folders.Create(ctx, imgs))

	found, err := folders.FindChild(ctx, u.ID, &docs.ID, "imgs")
	require.NoError(t, err)
	assert.Equal(t, imgs.ID, found.ID)

	f := &models.File{ID: uuid.NewString(), Name: "a.png", OwnerID: u.ID, FolderID: &imgs.ID, MimeType: "image/png", Size: 42, Private: true}
	require.NoError(t, files.Create(ctx, f))
	require.NoError(t, folders.AddSize(ctx, imgs.ID, u.ID, 42))
	require.NoError(t, folders.AddSize(ctx, docs.ID, u.ID, 42))

	got, err := folders.GetByID(ctx, docs.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.Size)

	// a folder with children cannot be deleted on its own
	assert.Error(t, folders.Delete(ctx, docs.ID, u.ID))

	n, err := files.DeleteMany(ctx, u.ID, []string{f.ID, "missing"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	require.NoError(t, folders.Delete(ctx, imgs.ID, u.ID))
	require.NoError(t, folders.Delete(ctx, docs.ID, u.ID))

	_, err = folders.GetByID(ctx, docs.ID)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestPostgres_PrivacyIsOwnerScoped(t *testing.T) {
	ctx := context.Background()
	m := NewPostgresRepositoryManager()
	alice := createUser(t, m, sharedDB)
	bob := createUser(t, m, sharedDB)

	f := &models.Folder{ID: uuid.NewString(), Name: "shared", OwnerID: alice.ID, Private: true}
	require.NoError(t, m.Folders(sharedDB).Create(ctx, f))

	assert.ErrorIs(t, m.Folders(sharedDB).SetPrivacy(ctx, f.ID, bob.ID, false), common.ErrorNotFound)
	require.NoError(t, m.Folders(sharedDB).SetPrivacy(ctx, f.ID, alice.ID, false))

	got, err := m.Folders(sharedDB).GetByID(ctx, f.ID)
	require.NoError(t, err)
	assert.False(t, got.Private)
}

func TestPostgres_RunnerRollsBack(t *testing.T) {
	ctx := context.Background()
	m := NewPostgresRepositoryManager()
	u := createUser(t, m, sharedDB)
	runner := dbx.NewSQLRunner(sharedDB)

	err := runner.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := m.RefreshTokens(tx).Create(ctx, u.ID, "tok-"+u.ID, time.Hour); err != nil {
			return err
		}
		return common.ErrorInternal
	})
	require.ErrorIs(t, err, common.ErrorInternal)

	_, err = m.RefreshTokens(sharedDB).Find(ctx, "tok-"+u.ID)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestPostgres_UserDeleteCascadesTokens(t *testing.T) {
	ctx := context.Background()
	m := NewPostgresRepositoryManager()
	u := createUser(t, m, sharedDB)

	require.NoError(t, m.RefreshTokens(sharedDB).Create(ctx, u.ID, "cascade-"+u.ID, time.Hour))
	require.NoError(t, m.Users(sharedDB).Delete(ctx, u.ID))

	_, err := m.RefreshTokens(sharedDB).Find(ctx, "cascade-"+u.ID)
	assert.ErrorIs(t, err, common.ErrorNotFound)
	_, err = m.Users(sharedDB).GetByID(ctx, u.ID)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}
