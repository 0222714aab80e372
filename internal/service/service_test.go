package service

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Emmanuelayeni3000/ELIVRA-sub000/config"
	repository "github.com/Emmanuelayeni3000/ELIVRA-sub000/internal/database/postgres"
	"github.com/Emmanuelayeni3000/ELIVRA-sub000/internal/entity"
	"github.com/Emmanuelayeni3000/ELIVRA-sub000/pkg/broker"
	"github.com/Emmanuelayeni3000/ELIVRA-sub000/pkg/mailer"
	"github.com/Emmanuelayeni3000/ELIVRA-sub000/pkg/postgres"
	"github.com/Emmanuelayeni3000/ELIVRA-sub000/pkg/sqlite"
	"github.com/stretchr/testify/require"
)

type fakeMailer struct {
	mu   sync.Mutex
	sent []*mailer.Message
	fail map[string]error // recipient -> error
	err  error            // applies to every recipient

	onSend func() // runs before each delivery attempt
}

func (m *fakeMailer) Send(ctx context.Context, msg *mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.onSend != nil {
		m.onSend()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.err != nil {
		return m.err
	}
	if err, ok := m.fail[msg.To]; ok {
		return err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *fakeMailer) messages() []*mailer.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*mailer.Message(nil), m.sent...)
}

func (m *fakeMailer) byType(kind NotificationType) []*mailer.Message {
	var out []*mailer.Message
	for _, msg := range m.messages() {
		if msg.Type == string(kind) {
			out = append(out, msg)
		}
	}
	return out
}

type fakeTasks struct {
	mu    sync.Mutex
	tasks []*Task
}

func (q *fakeTasks) Publish(ctx context.Context, task *Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, task)
	return nil
}

func (q *fakeTasks) count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

type fakePublisher struct {
	mu     sync.Mutex
	events []*broker.Event
}

func (p *fakePublisher) Publish(ctx context.Context, event *broker.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

type testEnv struct {
	db         *sql.DB
	events     repository.EventRepository
	invites    repository.InviteRepository
	companions repository.CompanionRepository
	reminders  repository.ReminderRepository
	users      repository.UserRepository

	mailer    *fakeMailer
	tasks     *fakeTasks
	publisher *fakePublisher
	app       *config.AppConfig

	notifications NotificationService
	owner         *entity.User
	event         *entity.Event
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := sqlite.NewSQLiteDB(filepath.Join(t.TempDir(), "elivra.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, postgres.RunMigrations(db))

	env := &testEnv{
		db:         db,
		events:     repository.NewEventRepository(db),
		invites:    repository.NewInviteRepository(db),
		companions: repository.NewCompanionRepository(db),
		reminders:  repository.NewReminderRepository(db),
		users:      repository.NewUserRepository(db),
		mailer:     &fakeMailer{fail: map[string]error{}},
		tasks:      &fakeTasks{},
		publisher:  &fakePublisher{},
		app: &config.AppConfig{
			BaseURL:       "https://elivra.test/",
			RSVPPath:      "/rsvp",
			CompanionPath: "/companion-invite",
			QRSize:        128,
		},
	}
	env.notifications = NewNotificationService(env.mailer, env.tasks, env.app, 3)

	ctx := context.Background()
	env.owner = &entity.User{Email: "owner@elivra.test", Name: "Owner", PasswordHash: "x"}
	require.NoError(t, env.users.Create(ctx, env.owner))
	env.event = env.addEvent(t, env.owner.ID, time.Now().Add(30*24*time.Hour), nil)

	return env
}

func (env *testEnv) addEvent(t *testing.T, userID string, date time.Time, guestLimit *int) *entity.Event {
	t.Helper()
	event := &entity.Event{
		UserID:     userID,
		Title:      "Ada & Bola",
		Date:       date,
		Time:       "4:00 PM",
		Location:   "Lagos",
		GuestLimit: guestLimit,
	}
	require.NoError(t, env.events.Create(context.Background(), event))
	return event
}

func (env *testEnv) addInvite(t *testing.T, event *entity.Event, name, email, qr string, guestLimit *int) *entity.Invite {
	t.Helper()
	invite := &entity.Invite{
		EventID:    event.ID,
		GuestName:  name,
		Email:      email,
		QRCode:     qr,
		GuestLimit: guestLimit,
	}
	require.NoError(t, env.invites.Create(context.Background(), invite))
	return invite
}

func (env *testEnv) rsvpService() RSVPService {
	return NewRSVPService(env.events, env.invites, env.companions, env.users, env.notifications, env.publisher)
}

func (env *testEnv) inviteService() InviteService {
	return NewInviteService(env.events, env.invites, env.notifications, env.app)
}

func intPtr(n int) *int { return &n }

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	require.True(t, errors.Is(err, entity.ErrValidation), "want validation error, got %v", err)
	require.Equal(t, code, entity.ValidationCode(err))
}
