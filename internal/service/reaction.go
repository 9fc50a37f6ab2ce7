package service

import (
	"context"

	"github.com/fairpipe/fairpipe-api/internal/apperr"
	"github.com/fairpipe/fairpipe-api/internal/db"
	"github.com/fairpipe/fairpipe-api/internal/db/models"
	"github.com/fairpipe/fairpipe-api/internal/db/repository"
	"github.com/fairpipe/fairpipe-api/internal/metrics"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// RowOp is the change a reaction toggle makes to the video_reactions row.
type RowOp int

const (
	RowInsert RowOp = iota + 1
	RowUpdate
	RowDelete
)

// Transition is the outcome of applying an action to a reaction state.
type Transition struct {
	Next          models.ReactionState
	Op            RowOp
	LikesDelta    int64
	DislikesDelta int64
}

// NextReaction applies action to the current state. Repeating the current
// reaction clears it, the opposite reaction switches it.
func NextReaction(current models.ReactionState, action models.ReactionAction) Transition {
	switch current {
	case models.ReactionLiked:
		if action == models.ActionLike {
			return Transition{Next: models.ReactionNone, Op: RowDelete, LikesDelta: -1}
		}
		return Transition{Next: models.ReactionDisliked, Op: RowUpdate, LikesDelta: -1, DislikesDelta: 1}
	case models.ReactionDisliked:
		if action == models.ActionDislike {
			return Transition{Next: models.ReactionNone, Op: RowDelete, DislikesDelta: -1}
		}
		return Transition{Next: models.ReactionLiked, Op: RowUpdate, LikesDelta: 1, DislikesDelta: -1}
	default:
		if action == models.ActionLike {
			return Transition{Next: models.ReactionLiked, Op: RowInsert, LikesDelta: 1}
		}
		return Transition{Next: models.ReactionDisliked, Op: RowInsert, DislikesDelta: 1}
	}
}

// ReactionService toggles likes and dislikes and keeps the video counters
// equal to the number of reaction rows.
type ReactionService struct {
	db Database
}

// NewReactionService creates a new ReactionService.
func NewReactionService(database Database) *ReactionService {
	return &ReactionService{db: database}
}

// React applies action for the user on the video in one transaction. The
// video row lock serializes concurrent toggles on the same video.
func (s *ReactionService) React(ctx context.Context, userID uuid.UUID, rawVideoID string, action models.ReactionAction) (*models.ReactionStatus, error) {
	videoID, err := ParseID(rawVideoID, "video id")
	if err != nil {
		return nil, err
	}
	if action != models.ActionLike && action != models.ActionDislike {
		return nil, apperr.BadRequest("unknown reaction")
	}

	var status *models.ReactionStatus
	err = db.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		videos := repository.NewVideoRepository(tx)
		users := repository.NewUserRepository(tx)
		reactions := repository.NewReactionRepository(tx)

		if _, _, err := videos.LockCounters(ctx, videoID); err != nil {
			return notFoundOr(err, "video not found")
		}

		exists, err := users.Exists(ctx, userID)
		if err != nil {
			return apperr.Internal(err)
		}
		if !exists {
			return apperr.NotFound("user not found")
		}

		current, err := reactions.GetForUpdate(ctx, userID, videoID)
		if err != nil {
			return apperr.Internal(err)
		}

		t := NextReaction(current.State(), action)
		switch t.Op {
		case RowInsert:
			err = reactions.Insert(ctx, userID, videoID, t.Next == models.ReactionLiked)
		case RowUpdate:
			err = reactions.SetLike(ctx, userID, videoID, t.Next == models.ReactionLiked)
		case RowDelete:
			err = reactions.Delete(ctx, userID, videoID)
		}
		if err != nil {
			return apperr.Internal(err)
		}

		likes, dislikes, err := videos.AddCounters(ctx, videoID, t.LikesDelta, t.DislikesDelta)
		if err != nil {
			return apperr.Internal(err)
		}

		status = models.NewReactionStatus(t.Next, likes, dislikes)
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.ReactionsTotal.WithLabelValues(action.String(), stateOf(status).String()).Inc()
	return status, nil
}

// Status reports the user's reaction and the video's counters without mutating anything.
func (s *ReactionService) Status(ctx context.Context, userID uuid.UUID, rawVideoID string) (*models.ReactionStatus, error) {
	videoID, err := ParseID(rawVideoID, "video id")
	if err != nil {
		return nil, err
	}

	status, err := repository.NewReactionRepository(s.db).Status(ctx, userID, videoID)
	if err != nil {
		return nil, notFoundOr(err, "video not found")
	}

	return status, nil
}

func stateOf(status *models.ReactionStatus) models.ReactionState {
	switch {
	case status.Liked:
		return models.ReactionLiked
	case status.Disliked:
		return models.ReactionDisliked
	default:
		return models.ReactionNone
	}
}
