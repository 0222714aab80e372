package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Emmanuelayeni3000/ELIVRA-sub000/internal/entity"
)

type companionRepository struct {
	db *sql.DB
}

func NewCompanionRepository(db *sql.DB) CompanionRepository {
	return &companionRepository{db: db}
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

func scanCompanion(s scanner) (*entity.CompanionInvite, error) {
	var c entity.CompanionInvite
	if err := s.Scan(&c.ID, &c.InviteID, &c.Email, &c.Token, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func companionsByInvite(ctx context.Context, db querier, inviteID string) ([]*entity.CompanionInvite, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, invite_id, email, token, created_at FROM companion_invites WHERE invite_id = $1 ORDER BY created_at, email`,
		inviteID)
	if err != nil {
		return nil, fmt.Errorf("failed to query companion invites: %w", err)
	}
	defer rows.Close()

	companions := make([]*entity.CompanionInvite, 0)
	for rows.Next() {
		c, err := scanCompanion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan companion invite: %w", err)
		}
		companions = append(companions, c)
	}
	return companions, rows.Err()
}

func (r *companionRepository) GetByInvite(ctx context.Context, inviteID string) ([]*entity.CompanionInvite, error) {
	return companionsByInvite(ctx, r.db, inviteID)
}

func (r *companionRepository) GetByToken(ctx context.Context, token string) (*entity.CompanionInvite, error) {
	c, err := scanCompanion(r.db.QueryRowContext(ctx,
		`SELECT id, invite_id, email, token, created_at FROM companion_invites WHERE token = $1`, token))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get companion invite: %w", err)
	}
	return c, nil
}
