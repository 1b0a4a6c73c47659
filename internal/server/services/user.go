// Package services contains server-side business logic. Every operation
// runs the same way: check access, plan against the folder tree, then hand
// the plan to the coordinator. This file implements UserService, which
// handles registration, login, token rotation and account removal.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/dbx"
	"github.com/dmitrijs2005/filevault/internal/logging"
	"github.com/dmitrijs2005/filevault/internal/server/auth"
	"github.com/dmitrijs2005/filevault/internal/server/config"
	"github.com/dmitrijs2005/filevault/internal/server/coordinator"
	"github.com/dmitrijs2005/filevault/internal/server/models"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/repomanager"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLen = 6
	maxUserNameLen = 64
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// AccountRemover deletes a user's tree, objects and row.
type AccountRemover interface {
	DeleteAccount(ctx context.Context, userID string) (*coordinator.DeleteResult, error)
}

// UserService provides authentication-related operations:
//   - Register: create users with a bcrypt password hash
//   - Login: verify credentials and mint tokens
//   - RefreshToken: rotate refresh tokens and mint new access tokens
//   - Logout: revoke a refresh token
//   - DeleteAccount: remove everything the user owns
type UserService struct {
	runner                       dbx.Runner
	repomanager                  repomanager.RepositoryManager
	accounts                     AccountRemover
	log                          logging.Logger
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
	bcryptCost                   int
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(runner dbx.Runner, m repomanager.RepositoryManager, accounts AccountRemover, cfg *config.Config, log logging.Logger) *UserService {
	return &UserService{
		runner:                       runner,
		repomanager:                  m,
		accounts:                     accounts,
		log:                          log.With("module", "users"),
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		bcryptCost:                   bcrypt.DefaultCost,
	}
}

// Register creates a new user. The password is hashed with bcrypt and the
// plaintext buffer is wiped.
func (s *UserService) Register(ctx context.Context, username string, password []byte, email *string) (*models.User, error) {
	defer common.WipeByteArray(password)

	username = strings.TrimSpace(username)
	if username == "" || len(username) > maxUserNameLen {
		return nil, fmt.Errorf("username: %w", common.ErrorInvalidInput)
	}
	if len(password) < minPasswordLen {
		return nil, fmt.Errorf("password too short: %w", common.ErrorInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword(password, s.bcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, fmt.Errorf("password too long: %w", common.ErrorInvalidInput)
		}
		return nil, common.ErrorInternal
	}

	user := &models.User{UserName: username, PasswordHash: hash, Email: email}
	u, err := s.repomanager.Users(s.runner.Conn()).Create(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	s.log.Info(ctx, "user registered", "user_id", u.ID)
	return u, nil
}

// Login verifies the password against the stored hash and, on success,
// returns a new TokenPair. Unknown users and wrong passwords are
// indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, userName string, password []byte) (*TokenPair, error) {
	defer common.WipeByteArray(password)

	user, err := s.repomanager.Users(s.runner.Conn()).GetUserByLogin(ctx, strings.TrimSpace(userName))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummyHash(), password)
			return nil, common.ErrorUnauthorized
		}
		return nil, common.ErrorInternal
	}
	if bcrypt.CompareHashAndPassword(user.PasswordHash, password) != nil {
		return nil, common.ErrorUnauthorized
	}
	return s.generateTokenPair(ctx, user.ID, s.runner.Conn())
}

// RefreshToken validates a refresh token, rotates it transactionally, and
// returns a fresh TokenPair. Expired tokens yield ErrRefreshTokenExpired.
func (s *UserService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	repo := s.repomanager.RefreshTokens(s.runner.Conn())

	token, err := repo.Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidToken
		}
		return nil, fmt.Errorf("error searching refresh token: %w", err)
	}
	if token.Expires.Before(time.Now()) {
		_ = repo.Delete(ctx, refreshToken)
		return nil, common.ErrRefreshTokenExpired
	}

	var pair *TokenPair
	if err := s.runner.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.RefreshTokens(tx).Delete(ctx, refreshToken); err != nil {
			return fmt.Errorf("error deleting refresh token: %w", err)
		}
		var genErr error
		pair, genErr = s.generateTokenPair(ctx, token.UserID, tx)
		if genErr != nil {
			return fmt.Errorf("error generating token pair: %w", genErr)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return pair, nil
}

// Logout revokes refreshToken. Unknown tokens are ignored.
func (s *UserService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := s.repomanager.RefreshTokens(s.runner.Conn()).Delete(ctx, refreshToken); err != nil {
		return fmt.Errorf("error deleting refresh token: %w", err)
	}
	return nil
}

// Me returns the caller's account.
func (s *UserService) Me(ctx context.Context, userID string) (*models.User, error) {
	u, err := s.repomanager.Users(s.runner.Conn()).GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// DeleteAccount removes every folder, file and object the user owns, then
// the user itself.
func (s *UserService) DeleteAccount(ctx context.Context, userID string) (*coordinator.DeleteResult, error) {
	res, err := s.accounts.DeleteAccount(ctx, userID)
	if err != nil {
		return res, err
	}
	s.log.Info(ctx, "account deleted", "user_id", userID,
		"files", res.FilesDeleted, "folders", res.FoldersDeleted)
	return res, nil
}

// --- helpers below ---

var (
	dummyHashOnce sync.Once
	dummyHashVal  []byte
)

// dummyHash keeps the unknown-user path as slow as a real comparison.
func (s *UserService) dummyHash() []byte {
	dummyHashOnce.Do(func() {
		dummyHashVal, _ = bcrypt.GenerateFromPassword([]byte("filevault-dummy"), s.bcryptCost)
	})
	return dummyHashVal
}

func (s *UserService) generateAccessToken(userID string) (string, error) {
	return auth.GenerateToken(userID, s.jwtSecret, s.accessTokenValidityDuration)
}

func (s *UserService) generateRefreshToken() (string, error) {
	return common.MakeRandHexString(32)
}

func (s *UserService) generateTokenPair(ctx context.Context, userID string, tx dbx.DBTX) (*TokenPair, error) {
	access, err := s.generateAccessToken(userID)
	if err != nil {
		return nil, common.ErrorInternal
	}
	refresh, err := s.generateRefreshToken()
	if err != nil {
		return nil, common.ErrorInternal
	}
	refreshRepo := s.repomanager.RefreshTokens(tx)
	if err := refreshRepo.Create(ctx, userID, refresh, s.refreshTokenValidityDuration); err != nil {
		return nil, common.ErrorInternal
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
