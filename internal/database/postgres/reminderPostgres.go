package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Emmanuelayeni3000/ELIVRA-sub000/internal/entity"
	"github.com/google/uuid"
)

type reminderRepository struct {
	db *sql.DB
}

func NewReminderRepository(db *sql.DB) ReminderRepository {
	return &reminderRepository{db: db}
}

func (r *reminderRepository) Create(ctx context.Context, reminder *entity.Reminder) error {
	if reminder.ID == "" {
		reminder.ID = uuid.NewString()
	}
	if reminder.SentAt.IsZero() {
		reminder.SentAt = time.Now()
	}
	reminder.SentAt = reminder.SentAt.UTC()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO reminders (id, invite_id, event_id, type, message, status, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		reminder.ID,
		reminder.InviteID,
		reminder.EventID,
		string(reminder.Type),
		reminder.Message,
		string(reminder.Status),
		reminder.SentAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create reminder: %w", err)
	}
	return nil
}

func (r *reminderRepository) GetByEvent(ctx context.Context, eventID string) ([]*entity.Reminder, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, invite_id, event_id, type, message, status, sent_at
		FROM reminders
		WHERE event_id = $1
		ORDER BY sent_at DESC, id
	`, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to query reminders: %w", err)
	}
	defer rows.Close()

	reminders := make([]*entity.Reminder, 0)
	for rows.Next() {
		var (
			reminder     entity.Reminder
			kind, status string
		)
		err := rows.Scan(
			&reminder.ID,
			&reminder.InviteID,
			&reminder.EventID,
			&kind,
			&reminder.Message,
			&status,
			&reminder.SentAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reminder: %w", err)
		}
		reminder.Type = entity.ReminderType(kind)
		reminder.Status = entity.ReminderStatus(status)
		reminders = append(reminders, &reminder)
	}

	return reminders, rows.Err()
}
