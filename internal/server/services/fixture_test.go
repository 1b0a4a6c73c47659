package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/filevault/internal/dbx"
	"github.com/dmitrijs2005/filevault/internal/logging"
	"github.com/dmitrijs2005/filevault/internal/server/archive"
	"github.com/dmitrijs2005/filevault/internal/server/config"
	"github.com/dmitrijs2005/filevault/internal/server/coordinator"
	"github.com/dmitrijs2005/filevault/internal/server/events"
	"github.com/dmitrijs2005/filevault/internal/server/models"
	"github.com/dmitrijs2005/filevault/internal/server/objectstore/memstore"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/memory"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fixture struct {
	store   *memory.Store
	mgr     *memory.Manager
	objects *memstore.Store
	broker  *events.Broker
	coord   *coordinator.Coordinator
	users   *UserService
	folders *FolderService
	files   *FileService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	mgr := memory.NewManager(store)
	objects := memstore.New()
	broker := events.NewBroker(64)
	log := logging.NewNop()

	coord := coordinator.New(coordinator.Deps{
		Folders:       mgr.Folders(nil),
		Files:         mgr.Files(nil),
		Users:         mgr.Users(nil),
		RefreshTokens: mgr.RefreshTokens(nil),
		Objects:       objects,
		Events:        broker,
		Log:           log,
	})
	cfg := &config.Config{
		SecretKey:                    "k",
		AccessTokenValidityDuration:  time.Hour,
		RefreshTokenValidityDuration: 2 * time.Hour,
	}
	us := NewUserService(dbx.NoTxRunner{}, mgr, coord, cfg, log)
	us.bcryptCost = bcrypt.MinCost

	return &fixture{
		store:   store,
		mgr:     mgr,
		objects: objects,
		broker:  broker,
		coord:   coord,
		users:   us,
		folders: NewFolderService(coord, mgr.Folders(nil), archive.NewAssembler(objects, t.TempDir(), log), broker, log),
		files:   NewFileService(coord, mgr.Files(nil), objects, 0, log),
	}
}

func (f *fixture) user(t *testing.T, name string) string {
	t.Helper()
	u, err := f.mgr.Users(nil).Create(context.Background(), &models.User{UserName: name})
	require.NoError(t, err)
	return u.ID
}

func (f *fixture) mkdir(t *testing.T, userID, parent, name string) *models.Folder {
	t.Helper()
	folder, err := f.folders.Create(context.Background(), userID, parent, name)
	require.NoError(t, err)
	return folder
}

func (f *fixture) put(t *testing.T, userID, folder, name, body string) *models.File {
	t.Helper()
	file, err := f.folders.Upload(context.Background(), userID, folder, UploadFile{
		Name: name, MimeType: "text/plain", Size: int64(len(body)), Body: strings.NewReader(body),
	})
	require.NoError(t, err)
	return file
}
