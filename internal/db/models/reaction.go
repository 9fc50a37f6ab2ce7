package models

import (
	"time"

	"github.com/google/uuid"
)

// ReactionState is a user's reaction to a video. None means no row exists.
type ReactionState int

const (
	ReactionNone ReactionState = iota
	ReactionLiked
	ReactionDisliked
)

func (s ReactionState) String() string {
	switch s {
	case ReactionLiked:
		return "liked"
	case ReactionDisliked:
		return "disliked"
	default:
		return "none"
	}
}

// ReactionAction is what the user asked for.
type ReactionAction int

const (
	ActionLike ReactionAction = iota + 1
	ActionDislike
)

func (a ReactionAction) String() string {
	if a == ActionDislike {
		return "dislike"
	}
	return "like"
}

// Reaction is a stored row of video_reactions.
type Reaction struct {
	UserID    uuid.UUID `db:"user_id"`
	VideoID   uuid.UUID `db:"video_id"`
	IsLike    bool      `db:"is_like"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// State maps the row to a ReactionState.
func (r *Reaction) State() ReactionState {
	if r == nil {
		return ReactionNone
	}
	if r.IsLike {
		return ReactionLiked
	}
	return ReactionDisliked
}

// ReactionStatus is what a client sees for one (user, video) pair.
type ReactionStatus struct {
	Liked    bool  `json:"liked"`
	Disliked bool  `json:"disliked"`
	Likes    int64 `json:"likes"`
	Dislikes int64 `json:"dislikes"`
}

// NewReactionStatus builds a status from a state and the video counters.
func NewReactionStatus(state ReactionState, likes, dislikes int64) *ReactionStatus {
	return &ReactionStatus{
		Liked:    state == ReactionLiked,
		Disliked: state == ReactionDisliked,
		Likes:    likes,
		Dislikes: dislikes,
	}
}
