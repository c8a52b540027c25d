package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/templui/photowall/internal/model"
)

// ModerationEventRepository is an append-only log of photo state transitions.
type ModerationEventRepository interface {
	Append(ctx context.Context, event *model.ModerationEvent) error
	ByPhoto(ctx context.Context, photoID string) ([]*model.ModerationEvent, error)
	Latest(ctx context.Context, limit int) ([]*model.ModerationEvent, error)
}

type moderationEventRepository struct {
	db *sqlx.DB
}

func NewModerationEventRepository(db *sqlx.DB) *moderationEventRepository {
	return &moderationEventRepository{db: db}
}

func (r *moderationEventRepository) Append(ctx context.Context, event *model.ModerationEvent) error {
	query := `INSERT INTO moderation_events (id, photo_id, from_state, to_state, actor, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.ExecContext(ctx, query,
		event.ID,
		event.PhotoID,
		event.FromState,
		event.ToState,
		event.Actor,
		event.CreatedAt,
	)

	return err
}

// ByPhoto returns the events of one photo, oldest first.
func (r *moderationEventRepository) ByPhoto(ctx context.Context, photoID string) ([]*model.ModerationEvent, error) {
	events := []*model.ModerationEvent{}
	query := `SELECT * FROM moderation_events WHERE photo_id = $1 ORDER BY created_at ASC, id ASC`

	err := r.db.SelectContext(ctx, &events, query, photoID)
	return events, err
}

// Latest returns the most recent events across all photos, newest first.
func (r *moderationEventRepository) Latest(ctx context.Context, limit int) ([]*model.ModerationEvent, error) {
	events := []*model.ModerationEvent{}
	query := `SELECT * FROM moderation_events ORDER BY created_at DESC, id DESC LIMIT $1`

	err := r.db.SelectContext(ctx, &events, query, limit)
	return events, err
}
