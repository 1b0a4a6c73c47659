package services

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"testing"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/server/coordinator"
	"github.com/dmitrijs2005/filevault/internal/server/models"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFolderService_CreateAndList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")

	docs := f.mkdir(t, alice, common.RootFolderID, "  docs ")
	assert.Equal(t, "docs", docs.Name)
	assert.True(t, docs.Private)
	assert.Nil(t, docs.ParentID)

	f.mkdir(t, alice, docs.ID, "imgs")
	f.put(t, alice, docs.ID, "a.txt", "hello")

	_, err := f.folders.Create(ctx, alice, common.RootFolderID, "docs")
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)

	_, err = f.folders.Create(ctx, alice, common.RootFolderID, "a/b")
	assert.ErrorIs(t, err, common.ErrorInvalidInput)

	home, err := f.folders.List(ctx, alice, common.RootFolderID)
	require.NoError(t, err)
	assert.Nil(t, home.Folder)
	require.Len(t, home.Folders, 1)
	assert.Empty(t, home.Files)

	inDocs, err := f.folders.List(ctx, alice, docs.ID)
	require.NoError(t, err)
	assert.Equal(t, docs.ID, inDocs.Folder.ID)
	require.Len(t, inDocs.Folders, 1)
	assert.Equal(t, "imgs", inDocs.Folders[0].Name)
	require.Len(t, inDocs.Files, 1)
	assert.Equal(t, "a.txt", inDocs.Files[0].Name)
}

func TestFolderService_ForeignAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")

	private := f.mkdir(t, alice, common.RootFolderID, "private")

	_, err := f.folders.List(ctx, bob, private.ID)
	assert.ErrorIs(t, err, common.ErrorNotFound)
	_, err = f.folders.Create(ctx, bob, private.ID, "x")
	assert.ErrorIs(t, err, common.ErrorNotFound)
	_, err = f.folders.Delete(ctx, bob, private.ID)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	shared := f.mkdir(t, alice, common.RootFolderID, "shared")
	hidden := f.put(t, alice, shared.ID, "hidden.txt", "h")
	open := f.put(t, alice, shared.ID, "open.txt", "o")
	sub := f.mkdir(t, alice, shared.ID, "sub")
	_, err = f.folders.SetPrivacy(ctx, alice, shared.ID, false)
	require.NoError(t, err)
	_, err = f.files.SetPrivacy(ctx, alice, hidden.ID, true)
	require.NoError(t, err)

	listing, err := f.folders.List(ctx, bob, shared.ID)
	require.NoError(t, err)
	require.Len(t, listing.Files, 1)
	assert.Equal(t, open.ID, listing.Files[0].ID)
	require.Len(t, listing.Folders, 1)
	assert.Equal(t, sub.ID, listing.Folders[0].ID)

	path, err := f.folders.Path(ctx, bob, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.PathElement{models.HomePathElement, {ID: shared.ID, Name: "shared"}, {ID: sub.ID, Name: "sub"}}, path)

	_, err = f.folders.Create(ctx, bob, shared.ID, "x")
	assert.ErrorIs(t, err, common.ErrorForbidden)
	_, err = f.folders.Delete(ctx, bob, shared.ID)
	assert.ErrorIs(t, err, common.ErrorForbidden)
	_, err = f.folders.SetPrivacy(ctx, bob, shared.ID, true)
	assert.ErrorIs(t, err, common.ErrorForbidden)
	_, err = f.folders.Download(ctx, bob, shared.ID)
	assert.ErrorIs(t, err, common.ErrorForbidden)

	mine, err := f.folders.List(ctx, bob, common.RootFolderID)
	require.NoError(t, err)
	assert.Empty(t, mine.Folders)
}

func TestFolderService_PathAndHome(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")

	path, err := f.folders.Path(ctx, alice, common.RootFolderID)
	require.NoError(t, err)
	assert.Equal(t, []models.PathElement{models.HomePathElement}, path)

	_, err = f.folders.Delete(ctx, alice, common.RootFolderID)
	assert.ErrorIs(t, err, common.ErrorInvalidInput)
	_, err = f.folders.SetPrivacy(ctx, alice, common.RootFolderID, false)
	assert.ErrorIs(t, err, common.ErrorInvalidInput)
}

func TestFolderService_DeleteCascade(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")

	docs := f.mkdir(t, alice, common.RootFolderID, "docs")
	imgs := f.mkdir(t, alice, docs.ID, "imgs")
	a := f.put(t, alice, docs.ID, "a.txt", "aaaa")
	b := f.put(t, alice, imgs.ID, "b.png", "bb")
	keep := f.put(t, alice, common.RootFolderID, "keep.txt", "k")

	res, err := f.folders.Delete(ctx, alice, docs.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.FilesDeleted)
	assert.Equal(t, 2, res.FoldersDeleted)

	assert.False(t, f.objects.Has(a.ID))
	assert.False(t, f.objects.Has(b.ID))
	assert.True(t, f.objects.Has(keep.ID))

	_, err = f.folders.List(ctx, alice, docs.ID)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestFolderService_SetPrivacyCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")

	docs := f.mkdir(t, alice, common.RootFolderID, "docs")
	imgs := f.mkdir(t, alice, docs.ID, "imgs")
	b := f.put(t, alice, imgs.ID, "b.png", "bb")

	res, err := f.folders.SetPrivacy(ctx, alice, docs.ID, false)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Updated)

	got, err := f.files.Get(ctx, alice, b.ID)
	require.NoError(t, err)
	assert.False(t, got.Private)

	sub, err := f.mgr.Folders(nil).GetByID(ctx, imgs.ID)
	require.NoError(t, err)
	assert.False(t, sub.Private)
}

func TestFolderService_UploadSizesAndTree(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	target := f.mkdir(t, alice, common.RootFolderID, "target")

	_, err := f.folders.Upload(ctx, alice, target.ID, UploadFile{Name: "empty", Size: 0, Body: strings.NewReader("")})
	assert.ErrorIs(t, err, common.ErrorInvalidInput)

	res, err := f.folders.UploadTree(ctx, alice, target.ID, []coordinator.BulkItem{
		{RelativePath: "docs/a.txt", Size: 3, Body: strings.NewReader("aaa")},
		{RelativePath: "docs/imgs/b.png", Size: 2, Body: strings.NewReader("bb")},
		{RelativePath: "c.txt", Size: 1, Body: strings.NewReader("c")},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.FilesUploaded)
	assert.Equal(t, 2, res.FoldersCreated)
	assert.Equal(t, "Successfully uploaded 3 files and created 2 folders", res.Summary())

	top, err := f.mgr.Folders(nil).GetByID(ctx, target.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(6), top.Size)

	for _, file := range res.Files {
		assert.True(t, file.Private)
		assert.Equal(t, common.DefaultMimeType, file.MimeType)
	}
}

func TestFolderService_Download(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")

	_, err := f.folders.Download(ctx, alice, common.RootFolderID)
	assert.ErrorIs(t, err, common.ErrorEmptySubtree)

	docs := f.mkdir(t, alice, common.RootFolderID, "docs")
	imgs := f.mkdir(t, alice, docs.ID, "imgs")
	f.mkdir(t, alice, docs.ID, "empty")
	f.put(t, alice, docs.ID, "a.txt", "alpha")
	f.put(t, alice, imgs.ID, "b.png", "beta")

	arc, err := f.folders.Download(ctx, alice, docs.ID)
	require.NoError(t, err)
	assert.Equal(t, "docs.zip", arc.Name)

	data, err := io.ReadAll(arc.Body)
	require.NoError(t, err)
	require.NoError(t, arc.Body.Close())
	assert.Equal(t, int64(len(data)), arc.Size)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	var names []string
	contents := map[string]string{}
	for _, zf := range zr.File {
		names = append(names, zf.Name)
		if strings.HasSuffix(zf.Name, "/") {
			continue
		}
		rc, err := zf.Open()
		require.NoError(t, err)
		b, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		contents[zf.Name] = string(b)
	}
	sort.Strings(names)
	assert.Equal(t, []string{"a.txt", "empty/", "imgs/", "imgs/b.png"}, names)
	assert.Equal(t, "alpha", contents["a.txt"])
	assert.Equal(t, "beta", contents["imgs/b.png"])

	home, err := f.folders.Download(ctx, alice, common.RootFolderID)
	require.NoError(t, err)
	assert.Equal(t, "home.zip", home.Name)
	require.NoError(t, home.Body.Close())
}
