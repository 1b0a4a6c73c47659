package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedUser(t *testing.T, m *Manager, name string) string {
	t.Helper()
	u, err := m.Users(nil).Create(context.Background(), &models.User{UserName: name, PasswordHash: []byte("h")})
	require.NoError(t, err)
	return u.ID
}

func TestFolders_UniqueSiblingName(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewStore())
	uid := seedUser(t, m, "alice")
	repo := m.Folders(nil)

	require.NoError(t, repo.Create(ctx, &models.Folder{ID: "f1", Name: "docs", OwnerID: uid}))
	err := repo.Create(ctx, &models.Folder{ID: "f2", Name: "docs", OwnerID: uid})
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)

	parent := "f1"
	require.NoError(t, repo.Create(ctx, &models.Folder{ID: "f3", Name: "docs", OwnerID: uid, ParentID: &parent}))

	other := seedUser(t, m, "bob")
	require.NoError(t, repo.Create(ctx, &models.Folder{ID: "f4", Name: "docs", OwnerID: other}))
}

func TestFolders_ParentMustBelongToOwner(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewStore())
	alice := seedUser(t, m, "alice")
	bob := seedUser(t, m, "bob")
	repo := m.Folders(nil)

	require.NoError(t, repo.Create(ctx, &models.Folder{ID: "f1", Name: "docs", OwnerID: alice}))
	parent := "f1"
	err := repo.Create(ctx, &models.Folder{ID: "f2", Name: "x", OwnerID: bob, ParentID: &parent})
	assert.ErrorIs(t, err, common.ErrorNotFound)

	missing := "gone"
	err = m.Files(nil).Create(ctx, &models.File{ID: "k1", Name: "a", OwnerID: alice, FolderID: &missing})
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestCreate_OwnerMustExist(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewStore())
	uid := seedUser(t, m, "alice")
	require.NoError(t, m.Users(nil).Delete(ctx, uid))

	err := m.Folders(nil).Create(ctx, &models.Folder{ID: "f1", Name: "docs", OwnerID: uid})
	assert.ErrorIs(t, err, common.ErrorUnauthorized)

	err = m.Files(nil).Create(ctx, &models.File{ID: "k1", Name: "a", OwnerID: uid})
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
}

func TestFolders_DeleteRejectsNonEmpty(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewStore())
	uid := seedUser(t, m, "alice")
	folders, files := m.Folders(nil), m.Files(nil)

	require.NoError(t, folders.Create(ctx, &models.Folder{ID: "f1", Name: "docs", OwnerID: uid}))
	parent := "f1"
	require.NoError(t, files.Create(ctx, &models.File{ID: "k1", Name: "a.txt", OwnerID: uid, FolderID: &parent}))

	assert.ErrorIs(t, folders.Delete(ctx, "f1", uid), common.ErrorInconsistentState)

	n, err := files.DeleteMany(ctx, uid, []string{"k1", "missing"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, folders.Delete(ctx, "f1", uid))
	assert.ErrorIs(t, folders.Delete(ctx, "f1", uid), common.ErrorNotFound)
}

func TestList_Ordered(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewStore())
	uid := seedUser(t, m, "alice")
	files := m.Files(nil)

	for _, f := range []models.File{{ID: "3", Name: "b"}, {ID: "2", Name: "a"}, {ID: "1", Name: "a"}} {
		f.OwnerID = uid
		require.NoError(t, files.Create(ctx, &f))
	}
	got, err := files.ListInFolder(ctx, uid, nil)
	require.NoError(t, err)
	var ids []string
	for _, f := range got {
		ids = append(ids, f.ID)
	}
	assert.Equal(t, []string{"1", "2", "3"}, ids)
}

func TestUsers_DeleteCascades(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewStore())
	uid := seedUser(t, m, "alice")

	require.NoError(t, m.RefreshTokens(nil).Create(ctx, uid, "tok", 0))
	require.NoError(t, m.Folders(nil).Create(ctx, &models.Folder{ID: "f1", Name: "docs", OwnerID: uid}))
	require.NoError(t, m.Files(nil).Create(ctx, &models.File{ID: "k1", Name: "a", OwnerID: uid}))

	_, err := m.Users(nil).Create(ctx, &models.User{UserName: "alice"})
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)

	require.NoError(t, m.Users(nil).Delete(ctx, uid))

	_, err = m.RefreshTokens(nil).Find(ctx, "tok")
	assert.ErrorIs(t, err, common.ErrorNotFound)
	_, err = m.Folders(nil).GetByID(ctx, "f1")
	assert.ErrorIs(t, err, common.ErrorNotFound)
	_, err = m.Files(nil).GetByID(ctx, "k1")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestSetFault(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	m := NewManager(s)
	uid := seedUser(t, m, "alice")

	boom := errors.New("boom")
	s.SetFault("files.Create", boom)
	err := m.Files(nil).Create(ctx, &models.File{ID: "k1", Name: "a", OwnerID: uid})
	assert.ErrorIs(t, err, boom)

	s.SetFault("files.Create", nil)
	assert.NoError(t, m.Files(nil).Create(ctx, &models.File{ID: "k1", Name: "a", OwnerID: uid}))
}
