package repository

import (
	"context"
	"time"

	"github.com/Emmanuelayeni3000/ELIVRA-sub000/internal/entity"
)

type EventRepository interface {
	Create(ctx context.Context, event *entity.Event) error
	GetByID(ctx context.Context, id string) (*entity.Event, error)
	GetByUser(ctx context.Context, userID string) ([]*entity.Event, error)
	Update(ctx context.Context, event *entity.Event) error
	Delete(ctx context.Context, id string) error
}

type InviteRepository interface {
	Create(ctx context.Context, invite *entity.Invite) error
	CreateBatch(ctx context.Context, invites []*entity.Invite) error
	GetByID(ctx context.Context, id string) (*entity.Invite, error)
	GetByIDs(ctx context.Context, ids []string) ([]*entity.Invite, error)
	GetByEvent(ctx context.Context, eventID string) ([]*entity.Invite, error)
	Update(ctx context.Context, invite *entity.Invite) error
	Delete(ctx context.Context, id string) error

	// Token lookups
	FindByQRCode(ctx context.Context, token string) (*entity.Invite, error)
	FindByQRCodeContaining(ctx context.Context, token string) (*entity.Invite, error)

	MarkSent(ctx context.Context, id string, at time.Time) error
	MarkViewed(ctx context.Context, id string, at time.Time) error

	// ApplyRSVP writes the response and reconciles companion invites in
	// one transaction.
	ApplyRSVP(ctx context.Context, update *entity.RSVPUpdate) ([]entity.CompanionLink, error)
}

type CompanionRepository interface {
	GetByInvite(ctx context.Context, inviteID string) ([]*entity.CompanionInvite, error)
	GetByToken(ctx context.Context, token string) (*entity.CompanionInvite, error)
}

type ReminderRepository interface {
	Create(ctx context.Context, reminder *entity.Reminder) error
	GetByEvent(ctx context.Context, eventID string) ([]*entity.Reminder, error)
}

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}
