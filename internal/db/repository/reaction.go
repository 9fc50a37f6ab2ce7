package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/fairpipe/fairpipe-api/internal/db"
	"github.com/fairpipe/fairpipe-api/internal/db/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ReactionRepository defines operations on video_reactions rows.
type ReactionRepository interface {
	// GetForUpdate returns the reaction row under a lock, or nil when none exists.
	GetForUpdate(ctx context.Context, userID, videoID uuid.UUID) (*models.Reaction, error)

	// Insert creates a reaction row.
	Insert(ctx context.Context, userID, videoID uuid.UUID, isLike bool) error

	// SetLike flips an existing reaction row.
	SetLike(ctx context.Context, userID, videoID uuid.UUID, isLike bool) error

	// Delete removes a reaction row.
	Delete(ctx context.Context, userID, videoID uuid.UUID) error

	// Status returns the user's state and the video's counters without locking.
	Status(ctx context.Context, userID, videoID uuid.UUID) (*models.ReactionStatus, error)

	// CountForVideo counts likes and dislikes rows for a video.
	CountForVideo(ctx context.Context, videoID uuid.UUID) (likes, dislikes int64, err error)
}

type reactionRepository struct {
	q db.DBTX
}

// NewReactionRepository creates a new ReactionRepository.
func NewReactionRepository(q db.DBTX) ReactionRepository {
	return &reactionRepository{q: q}
}

func (r *reactionRepository) GetForUpdate(ctx context.Context, userID, videoID uuid.UUID) (*models.Reaction, error) {
	query := `
		SELECT user_id, video_id, is_like, created_at, updated_at
		FROM video_reactions
		WHERE user_id = $1 AND video_id = $2
		FOR UPDATE
	`

	reaction := &models.Reaction{}
	err := r.q.QueryRow(ctx, query, userID, videoID).Scan(
		&reaction.UserID,
		&reaction.VideoID,
		&reaction.IsLike,
		&reaction.CreatedAt,
		&reaction.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, db.WrapError(err, "get reaction")
	}

	return reaction, nil
}

func (r *reactionRepository) Insert(ctx context.Context, userID, videoID uuid.UUID, isLike bool) error {
	query := `INSERT INTO video_reactions (user_id, video_id, is_like) VALUES ($1, $2, $3)`

	if _, err := r.q.Exec(ctx, query, userID, videoID, isLike); err != nil {
		return db.WrapError(err, "insert reaction")
	}

	return nil
}

func (r *reactionRepository) SetLike(ctx context.Context, userID, videoID uuid.UUID, isLike bool) error {
	query := `
		UPDATE video_reactions
		SET is_like = $3, updated_at = NOW()
		WHERE user_id = $1 AND video_id = $2
	`

	result, err := r.q.Exec(ctx, query, userID, videoID, isLike)
	if err != nil {
		return db.WrapError(err, "update reaction")
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("update reaction: %w", db.ErrNotFound)
	}

	return nil
}

func (r *reactionRepository) Delete(ctx context.Context, userID, videoID uuid.UUID) error {
	query := `DELETE FROM video_reactions WHERE user_id = $1 AND video_id = $2`

	result, err := r.q.Exec(ctx, query, userID, videoID)
	if err != nil {
		return db.WrapError(err, "delete reaction")
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("delete reaction: %w", db.ErrNotFound)
	}

	return nil
}

func (r *reactionRepository) Status(ctx context.Context, userID, videoID uuid.UUID) (*models.ReactionStatus, error) {
	query := `
		SELECT v.likes, v.dislikes, vr.is_like
		FROM videos v
		LEFT JOIN video_reactions vr ON vr.video_id = v.video_id AND vr.user_id = $2
		WHERE v.video_id = $1
	`

	var likes, dislikes int64
	var isLike *bool
	if err := r.q.QueryRow(ctx, query, videoID, userID).Scan(&likes, &dislikes, &isLike); err != nil {
		return nil, db.WrapError(err, "get reaction status")
	}

	state := models.ReactionNone
	if isLike != nil {
		state = (&models.Reaction{IsLike: *isLike}).State()
	}

	return models.NewReactionStatus(state, likes, dislikes), nil
}

func (r *reactionRepository) CountForVideo(ctx context.Context, videoID uuid.UUID) (int64, int64, error) {
	query := `
		SELECT COUNT(*) FILTER (WHERE is_like), COUNT(*) FILTER (WHERE NOT is_like)
		FROM video_reactions
		WHERE video_id = $1
	`

	var likes, dislikes int64
	if err := r.q.QueryRow(ctx, query, videoID).Scan(&likes, &dislikes); err != nil {
		return 0, 0, db.WrapError(err, "count reactions")
	}

	return likes, dislikes, nil
}
