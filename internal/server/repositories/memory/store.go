// Package memory keeps the metadata store in process. It enforces the same
// constraints as the PostgreSQL schema and backs tests and the DSN-less
// development mode.
package memory

import (
	"context"
	"database/sql"
	"sync"

	"github.com/dmitrijs2005/filevault/internal/dbx"
	"github.com/dmitrijs2005/filevault/internal/server/models"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/files"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/folders"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/users"
)

// Store holds every table behind one mutex.
type Store struct {
	mu      sync.RWMutex
	users   map[string]*models.User
	tokens  map[string]*models.RefreshToken
	folders map[string]*models.Folder
	files   map[string]*models.File
	faults  map[string]error
}

func NewStore() *Store {
	return &Store{
		users:   make(map[string]*models.User),
		tokens:  make(map[string]*models.RefreshToken),
		folders: make(map[string]*models.Folder),
		files:   make(map[string]*models.File),
		faults:  make(map[string]error),
	}
}

// SetFault makes the named operation (e.g. "files.Create") fail with err
// until cleared with a nil err.
func (s *Store) SetFault(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.faults, op)
		return
	}
	s.faults[op] = err
}

// fault must be called with mu held.
func (s *Store) fault(op string) error {
	return s.faults[op]
}

// Manager adapts Store to repomanager.RepositoryManager. The DBTX argument
// is ignored.
type Manager struct {
	store *Store
}

var _ repomanager.RepositoryManager = (*Manager)(nil)

func NewManager(store *Store) *Manager {
	return &Manager{store: store}
}

func (m *Manager) RunMigrations(context.Context, *sql.DB) error { return nil }

func (m *Manager) Users(dbx.DBTX) users.Repository {
	return &UserRepository{s: m.store}
}

func (m *Manager) RefreshTokens(dbx.DBTX) refreshtokens.Repository {
	return &RefreshTokenRepository{s: m.store}
}

func (m *Manager) Folders(dbx.DBTX) folders.Repository {
	return &FolderRepository{s: m.store}
}

func (m *Manager) Files(dbx.DBTX) files.Repository {
	return &FileRepository{s: m.store}
}

func sameParent(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func cloneStr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
