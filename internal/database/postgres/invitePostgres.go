package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Emmanuelayeni3000/ELIVRA-sub000/internal/entity"
	"github.com/google/uuid"
)

type inviteRepository struct {
	db *sql.DB
}

func NewInviteRepository(db *sql.DB) InviteRepository {
	return &inviteRepository{db: db}
}

const inviteColumns = `id, event_id, guest_name, email, phone, qr_code, guest_limit, guest_count,
	rsvp_status, message, sent_at, viewed_at, rsvp_at, created_at, updated_at`

func scanInvite(s scanner) (*entity.Invite, error) {
	var (
		invite entity.Invite
		status string
	)
	err := s.Scan(
		&invite.ID,
		&invite.EventID,
		&invite.GuestName,
		&invite.Email,
		&invite.Phone,
		&invite.QRCode,
		&invite.GuestLimit,
		&invite.GuestCount,
		&status,
		&invite.Message,
		&invite.SentAt,
		&invite.ViewedAt,
		&invite.RSVPAt,
		&invite.CreatedAt,
		&invite.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	invite.RSVPStatus = entity.NormalizeRSVPStatus(status)
	return &invite, nil
}

func (r *inviteRepository) queryInvites(ctx context.Context, query string, args ...interface{}) ([]*entity.Invite, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query invites: %w", err)
	}
	defer rows.Close()

	invites := make([]*entity.Invite, 0)
	for rows.Next() {
		invite, err := scanInvite(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invite: %w", err)
		}
		invites = append(invites, invite)
	}

	return invites, rows.Err()
}

func (r *inviteRepository) getOne(ctx context.Context, query string, args ...interface{}) (*entity.Invite, error) {
	invite, err := scanInvite(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrInviteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invite: %w", err)
	}
	return invite, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func insertInvite(ctx context.Context, db execer, invite *entity.Invite) error {
	if invite.ID == "" {
		invite.ID = uuid.NewString()
	}
	if invite.RSVPStatus == "" {
		invite.RSVPStatus = entity.RSVPPending
	}
	now := time.Now().UTC()
	invite.CreatedAt = now
	invite.UpdatedAt = now

	query := `
		INSERT INTO invites (` + inviteColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := db.ExecContext(ctx, query,
		invite.ID,
		invite.EventID,
		invite.GuestName,
		invite.Email,
		invite.Phone,
		invite.QRCode,
		invite.GuestLimit,
		invite.GuestCount,
		string(invite.RSVPStatus),
		invite.Message,
		invite.SentAt,
		invite.ViewedAt,
		invite.RSVPAt,
		invite.CreatedAt,
		invite.UpdatedAt,
	)
	return err
}

func (r *inviteRepository) Create(ctx context.Context, invite *entity.Invite) error {
	if err := insertInvite(ctx, r.db, invite); err != nil {
		return fmt.Errorf("failed to create invite: %w", err)
	}
	return nil
}

// CreateBatch inserts all invites or none.
func (r *inviteRepository) CreateBatch(ctx context.Context, invites []*entity.Invite) error {
	if len(invites) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, invite := range invites {
		if err := insertInvite(ctx, tx, invite); err != nil {
			return fmt.Errorf("failed to create invite %q: %w", invite.GuestName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *inviteRepository) GetByID(ctx context.Context, id string) (*entity.Invite, error) {
	return r.getOne(ctx, `SELECT `+inviteColumns+` FROM invites WHERE id = $1`, id)
}

func (r *inviteRepository) GetByIDs(ctx context.Context, ids []string) ([]*entity.Invite, error) {
	if len(ids) == 0 {
		return []*entity.Invite{}, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	query := `SELECT ` + inviteColumns + ` FROM invites WHERE id IN (` + strings.Join(placeholders, ", ") + `) ORDER BY created_at, id`
	return r.queryInvites(ctx, query, args...)
}

func (r *inviteRepository) GetByEvent(ctx context.Context, eventID string) ([]*entity.Invite, error) {
	query := `SELECT ` + inviteColumns + ` FROM invites WHERE event_id = $1 ORDER BY created_at, id`
	return r.queryInvites(ctx, query, eventID)
}

func (r *inviteRepository) Update(ctx context.Context, invite *entity.Invite) error {
	invite.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE invites
		SET guest_name = $1, email = $2, phone = $3, guest_limit = $4, updated_at = $5
		WHERE id = $6
	`

	result, err := r.db.ExecContext(ctx, query,
		invite.GuestName,
		invite.Email,
		invite.Phone,
		invite.GuestLimit,
		invite.UpdatedAt,
		invite.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update invite: %w", err)
	}
	return expectOneRow(result, entity.ErrInviteNotFound)
}

func (r *inviteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM invites WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete invite: %w", err)
	}
	return expectOneRow(result, entity.ErrInviteNotFound)
}

func (r *inviteRepository) FindByQRCode(ctx context.Context, token string) (*entity.Invite, error) {
	return r.getOne(ctx, `SELECT `+inviteColumns+` FROM invites WHERE qr_code = $1 ORDER BY created_at LIMIT 1`, token)
}

// FindByQRCodeContaining matches legacy rows whose qr_code stores a full
// URL ending in the token. LIKE narrows the candidates; the case-sensitive
// check runs in Go since SQLite LIKE ignores ASCII case.
func (r *inviteRepository) FindByQRCodeContaining(ctx context.Context, token string) (*entity.Invite, error) {
	query := `SELECT ` + inviteColumns + ` FROM invites WHERE qr_code LIKE $1 ESCAPE '\' ORDER BY created_at, id`

	candidates, err := r.queryInvites(ctx, query, "%"+escapeLike(token)+"%")
	if err != nil {
		return nil, err
	}
	for _, invite := range candidates {
		if strings.Contains(invite.QRCode, token) {
			return invite, nil
		}
	}
	return nil, entity.ErrInviteNotFound
}

func (r *inviteRepository) MarkSent(ctx context.Context, id string, at time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE invites SET sent_at = $1, updated_at = $1 WHERE id = $2`, at.UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to mark invite sent: %w", err)
	}
	return expectOneRow(result, entity.ErrInviteNotFound)
}

// MarkViewed stamps the first view only.
func (r *inviteRepository) MarkViewed(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE invites SET viewed_at = $1 WHERE id = $2 AND viewed_at IS NULL`, at.UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to mark invite viewed: %w", err)
	}
	return nil
}

func expectOneRow(result sql.Result, notFound error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return notFound
	}
	return nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// ApplyRSVP updates the invite row first, which takes its row lock on
// PostgreSQL (and the write lock on SQLite) before companions are read,
// so concurrent submissions for one invite serialize.
func (r *inviteRepository) ApplyRSVP(ctx context.Context, update *entity.RSVPUpdate) ([]entity.CompanionLink, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	respondedAt := update.RespondedAt.UTC()
	result, err := tx.ExecContext(ctx, `
		UPDATE invites
		SET rsvp_status = $1, guest_count = $2, message = $3, rsvp_at = $4, updated_at = $5
		WHERE id = $6
	`,
		string(update.Status),
		update.GuestCount,
		update.Message,
		respondedAt,
		respondedAt,
		update.InviteID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update rsvp: %w", err)
	}
	if err := expectOneRow(result, entity.ErrInviteNotFound); err != nil {
		return nil, err
	}

	existing, err := companionsByInvite(ctx, tx, update.InviteID)
	if err != nil {
		return nil, err
	}

	plan, err := entity.PlanCompanions(update.InviteID, existing, update.CompanionEmails, update.ResetsCompanions(), update.NewToken)
	if err != nil {
		return nil, fmt.Errorf("failed to plan companion invites: %w", err)
	}

	for _, c := range plan.Delete {
		if _, err := tx.ExecContext(ctx, `DELETE FROM companion_invites WHERE id = $1`, c.ID); err != nil {
			return nil, fmt.Errorf("failed to delete companion invite: %w", err)
		}
	}

	now := time.Now().UTC()
	for _, c := range plan.Create {
		c.ID = uuid.NewString()
		c.CreatedAt = now
		_, err := tx.ExecContext(ctx,
			`INSERT INTO companion_invites (id, invite_id, email, token, created_at) VALUES ($1, $2, $3, $4, $5)`,
			c.ID, c.InviteID, c.Email, c.Token, c.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to create companion invite: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if plan.Links == nil {
		return []entity.CompanionLink{}, nil
	}
	return plan.Links, nil
}
