package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fairpipe/fairpipe-api/internal/apperr"
	"github.com/fairpipe/fairpipe-api/internal/auth"
	"github.com/fairpipe/fairpipe-api/internal/db"
	"github.com/fairpipe/fairpipe-api/internal/db/models"
	"github.com/fairpipe/fairpipe-api/internal/db/repository"
	"github.com/fairpipe/fairpipe-api/internal/media"
	"github.com/fairpipe/fairpipe-api/internal/storage"
	"github.com/fairpipe/fairpipe-api/pkg/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const anonymousEmailDomain = "anonym.com"

// RegisterInput is a validated registration form.
type RegisterInput struct {
	Email       string
	Username    string
	Password    string
	DisplayName string
}

// SessionResult is a signed-in user and the token for its session cookie.
type SessionResult struct {
	User  *models.User
	Token string
}

// AnonymousResult carries the generated credentials, shown exactly once.
type AnonymousResult struct {
	SessionResult
	Password string
}

// UserService implements accounts, sessions and profiles.
type UserService struct {
	db         Database
	store      storage.ObjectStore
	bucket     string
	cdnBaseURL string
	hasher     *auth.Hasher
	tokens     *auth.TokenManager
}

// NewUserService creates a new UserService. Profile pictures go to bucket
// and are served below cdnBaseURL.
func NewUserService(database Database, store storage.ObjectStore, bucket, cdnBaseURL string, hasher *auth.Hasher, tokens *auth.TokenManager) *UserService {
	return &UserService{
		db:         database,
		store:      store,
		bucket:     bucket,
		cdnBaseURL: strings.TrimRight(cdnBaseURL, "/"),
		hasher:     hasher,
		tokens:     tokens,
	}
}

// Register creates an account with a bcrypt-hashed password.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	user := models.NewUser(normalizeEmail(in.Email), strings.TrimSpace(in.Username), strings.TrimSpace(in.DisplayName), hash)
	if err := s.create(ctx, user); err != nil {
		return nil, err
	}

	logger.Log.Info("User registered", zap.String("userId", user.ID.String()))
	return user, nil
}

func (s *UserService) create(ctx context.Context, user *models.User) error {
	err := repository.NewUserRepository(s.db).Create(ctx, user)
	if err == nil {
		return nil
	}
	if db.IsDuplicateKey(err) {
		if strings.Contains(err.Error(), "users_username_key") {
			return apperr.Wrap(apperr.KindConflict, "username already taken", err)
		}
		return apperr.Wrap(apperr.KindConflict, "email already registered", err)
	}
	return apperr.Internal(err)
}

// Login checks credentials and issues a session token. Unknown email and
// wrong password are indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, email, password string) (*SessionResult, error) {
	invalid := apperr.Unauthorized("invalid email or password")

	user, err := repository.NewUserRepository(s.db).GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if db.IsNotFound(err) {
			return nil, invalid
		}
		return nil, apperr.Internal(err)
	}

	if err := s.hasher.Compare(user.HashedPassword, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, invalid
		}
		return nil, apperr.Internal(err)
	}

	return s.session(user)
}

// AnonymousLogin creates a throwaway account with random credentials and signs it in.
func (s *UserService) AnonymousLogin(ctx context.Context) (*AnonymousResult, error) {
	suffix, err := auth.RandomSecret(8)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	password, err := auth.RandomSecret(16)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	username := "anonym_" + suffix
	user := models.NewUser(username+"@"+anonymousEmailDomain, username, username, hash)
	user.Anonym = true
	if err := s.create(ctx, user); err != nil {
		return nil, err
	}

	session, err := s.session(user)
	if err != nil {
		return nil, err
	}

	return &AnonymousResult{SessionResult: *session, Password: password}, nil
}

func (s *UserService) session(user *models.User) (*SessionResult, error) {
	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &SessionResult{User: user, Token: token}, nil
}

// Get returns a user's public profile.
func (s *UserService) Get(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := repository.NewUserRepository(s.db).GetByID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, "user not found")
	}
	return user, nil
}

// UpdateProfile sets the given profile fields of the signed-in user.
func (s *UserService) UpdateProfile(ctx context.Context, userID uuid.UUID, displayName, bio *string) error {
	if displayName == nil && bio == nil {
		return apperr.BadRequest("nothing to update")
	}
	if displayName != nil {
		trimmed := strings.TrimSpace(*displayName)
		if trimmed == "" {
			return apperr.BadRequest("display name must not be empty")
		}
		displayName = &trimmed
	}

	err := repository.NewUserRepository(s.db).UpdateProfile(ctx, userID, displayName, bio)
	return notFoundOr(err, "user not found")
}

// PictureURL returns the public URL of a user's profile picture.
func (s *UserService) PictureURL(ctx context.Context, userID uuid.UUID) (string, error) {
	path, err := repository.NewUserRepository(s.db).GetPicturePath(ctx, userID)
	if err != nil {
		return "", notFoundOr(err, "user not found")
	}
	if path == nil {
		return "", apperr.NotFound("no profile picture")
	}
	return fmt.Sprintf("%s/%s/%s", s.cdnBaseURL, s.bucket, *path), nil
}

// UploadPicture stores a new profile picture and makes it the current one.
func (s *UserService) UploadPicture(ctx context.Context, userID uuid.UUID, in UploadImageInput) (string, error) {
	if !media.IsImage(in.ContentType) {
		return "", apperr.BadRequest("file must be an image")
	}

	now := time.Now()
	photo := &models.Photo{ID: uuid.New(), CreatedAt: now}
	photo.Path = fmt.Sprintf("%s/%s.%s", userID, photo.ID, media.Extension(in.FileName, in.ContentType))
	picture := &models.ProfilePicture{ID: uuid.New(), PhotoID: photo.ID, CreatedAt: now}

	stored := false
	err := db.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		photos := repository.NewPhotoRepository(tx)
		if err := photos.Create(ctx, photo); err != nil {
			return apperr.Internal(err)
		}
		if err := photos.CreateProfilePicture(ctx, picture); err != nil {
			return apperr.Internal(err)
		}
		if err := repository.NewUserRepository(tx).SetPicture(ctx, userID, picture.ID); err != nil {
			return notFoundOr(err, "user not found")
		}

		if err := s.store.Put(ctx, s.bucket, photo.Path, in.File, in.Size, in.ContentType); err != nil {
			return apperr.Internal(fmt.Errorf("store profile picture: %w", err))
		}
		stored = true
		return nil
	})
	if err != nil {
		if stored {
			if delErr := s.store.Delete(context.Background(), s.bucket, photo.Path); delErr != nil {
				logger.Log.Error("Failed to remove orphaned picture", zap.String("key", photo.Path), zap.Error(delErr))
			}
		}
		return "", err
	}

	return fmt.Sprintf("%s/%s/%s", s.cdnBaseURL, s.bucket, photo.Path), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
