package repository

import (
	"context"
	"fmt"

	"github.com/fairpipe/fairpipe-api/internal/db"
	"github.com/fairpipe/fairpipe-api/internal/db/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const userColumns = `user_id, user_email, username, display_name, bio, hashed_password, picture_id, anonym, created_at, updated_at`

// UserRepository defines operations for managing users.
type UserRepository interface {
	// Create inserts a new user.
	Create(ctx context.Context, user *models.User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, userID uuid.UUID) (*models.User, error)

	// GetByEmail retrieves a user by email address.
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// Exists reports whether a user row exists.
	Exists(ctx context.Context, userID uuid.UUID) (bool, error)

	// UpdateProfile sets the non-nil profile fields.
	UpdateProfile(ctx context.Context, userID uuid.UUID, displayName, bio *string) error

	// SetPicture points the user at a profile picture.
	SetPicture(ctx context.Context, userID, pictureID uuid.UUID) error

	// GetPicturePath returns the object path of the user's profile picture, or nil.
	GetPicturePath(ctx context.Context, userID uuid.UUID) (*string, error)
}

type userRepository struct {
	q db.DBTX
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(q db.DBTX) UserRepository {
	return &userRepository{q: q}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (user_id, user_email, username, display_name, bio, hashed_password, anonym, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.q.Exec(ctx, query,
		user.ID,
		user.Email,
		user.Username,
		user.DisplayName,
		user.Bio,
		user.HashedPassword,
		user.Anonym,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return db.WrapError(err, "create user")
	}

	return nil
}

func (r *userRepository) GetByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE user_id = $1`

	user, err := scanUser(r.q.QueryRow(ctx, query, userID))
	if err != nil {
		return nil, db.WrapError(err, "get user by id")
	}

	return user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE user_email = $1`

	user, err := scanUser(r.q.QueryRow(ctx, query, email))
	if err != nil {
		return nil, db.WrapError(err, "get user by email")
	}

	return user, nil
}

func (r *userRepository) Exists(ctx context.Context, userID uuid.UUID) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE user_id = $1)`, userID).Scan(&exists)
	if err != nil {
		return false, db.WrapError(err, "check user exists")
	}
	return exists, nil
}

func (r *userRepository) UpdateProfile(ctx context.Context, userID uuid.UUID, displayName, bio *string) error {
	query := `
		UPDATE users
		SET display_name = COALESCE($2, display_name),
		    bio = COALESCE($3, bio),
		    updated_at = NOW()
		WHERE user_id = $1
	`

	result, err := r.q.Exec(ctx, query, userID, displayName, bio)
	if err != nil {
		return db.WrapError(err, "update user profile")
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("update user profile: %w", db.ErrNotFound)
	}

	return nil
}

func (r *userRepository) SetPicture(ctx context.Context, userID, pictureID uuid.UUID) error {
	query := `UPDATE users SET picture_id = $2, updated_at = NOW() WHERE user_id = $1`

	result, err := r.q.Exec(ctx, query, userID, pictureID)
	if err != nil {
		return db.WrapError(err, "set user picture")
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("set user picture: %w", db.ErrNotFound)
	}

	return nil
}

func (r *userRepository) GetPicturePath(ctx context.Context, userID uuid.UUID) (*string, error) {
	query := `
		SELECT p.path
		FROM users u
		LEFT JOIN profile_picture pp ON pp.profile_picture_id = u.picture_id
		LEFT JOIN photo p ON p.photo_id = pp.photo_id
		WHERE u.user_id = $1
	`

	var path *string
	if err := r.q.QueryRow(ctx, query, userID).Scan(&path); err != nil {
		return nil, db.WrapError(err, "get user picture path")
	}

	return path, nil
}

func scanUser(row pgx.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Username,
		&user.DisplayName,
		&user.Bio,
		&user.HashedPassword,
		&user.PictureID,
		&user.Anonym,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}
