package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Emmanuelayeni3000/ELIVRA-sub000/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventServiceLifecycle(t *testing.T) {
	env := newTestEnv(t)
	svc := NewEventService(env.events, env.invites)
	ctx := context.Background()

	date := entity.CustomTime{Time: time.Now().Add(60 * 24 * time.Hour).UTC().Truncate(time.Second)}
	event, err := svc.CreateEvent(ctx, env.owner.ID, &CreateEventRequest{
		Title:      "  Garden Party ",
		Date:       date,
		Location:   "Abuja",
		GuestLimit: intPtr(3),
	})
	require.NoError(t, err)
	assert.Equal(t, "Garden Party", event.Title)
	assert.Equal(t, env.owner.ID, event.UserID)

	got, err := svc.GetEvent(ctx, env.owner.ID, event.ID)
	require.NoError(t, err)
	assert.Equal(t, "Abuja", got.Location)

	title := "Garden Party II"
	updated, err := svc.UpdateEvent(ctx, env.owner.ID, event.ID, &UpdateEventRequest{Title: &title, GuestLimit: intPtr(0)})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)
	require.NotNil(t, updated.GuestLimit)
	assert.Equal(t, 0, *updated.GuestLimit)
	assert.Equal(t, "Abuja", updated.Location)

	list, err := svc.GetUserEvents(ctx, env.owner.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, svc.DeleteEvent(ctx, env.owner.ID, event.ID))
	_, err = svc.GetEvent(ctx, env.owner.ID, event.ID)
	assert.True(t, errors.Is(err, entity.ErrNotFound))
}

func TestEventServiceRejectsPastDates(t *testing.T) {
	env := newTestEnv(t)
	svc := NewEventService(env.events, env.invites)
	ctx := context.Background()

	_, err := svc.CreateEvent(ctx, env.owner.ID, &CreateEventRequest{Title: "Late"})
	requireCode(t, err, entity.CodeInvalidInput)

	past := entity.CustomTime{Time: time.Now().Add(-time.Hour)}
	_, err = svc.CreateEvent(ctx, env.owner.ID, &CreateEventRequest{Title: "Late", Date: past})
	requireCode(t, err, entity.CodeInvalidInput)

	_, err = svc.UpdateEvent(ctx, env.owner.ID, env.event.ID, &UpdateEventRequest{Date: &past})
	requireCode(t, err, entity.CodeInvalidInput)
}

func TestEventServiceHidesOtherOwnersEvents(t *testing.T) {
	env := newTestEnv(t)
	svc := NewEventService(env.events, env.invites)
	ctx := context.Background()

	stranger := "someone-else"
	_, err := svc.GetEvent(ctx, stranger, env.event.ID)
	assert.True(t, errors.Is(err, entity.ErrNotFound))

	title := "Hijacked"
	_, err = svc.UpdateEvent(ctx, stranger, env.event.ID, &UpdateEventRequest{Title: &title})
	assert.True(t, errors.Is(err, entity.ErrNotFound))

	assert.True(t, errors.Is(svc.DeleteEvent(ctx, stranger, env.event.ID), entity.ErrNotFound))

	_, err = svc.GetEventStats(ctx, stranger, env.event.ID)
	assert.True(t, errors.Is(err, entity.ErrNotFound))

	list, err := svc.GetUserEvents(ctx, stranger)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestEventServiceStats(t *testing.T) {
	env := newTestEnv(t)
	svc := NewEventService(env.events, env.invites)
	rsvp := env.rsvpService()
	ctx := context.Background()

	env.addInvite(t, env.event, "Ada", "", "AdaTok", intPtr(2))
	env.addInvite(t, env.event, "Bola", "", "BolaTok", nil)
	env.addInvite(t, env.event, "Chi", "", "ChiTok", nil)

	_, err := rsvp.SubmitRSVP(ctx, "AdaTok", &SubmitRSVPRequest{
		Response: "attending", BringingGuests: "yes", GuestCount: 2, GuestEmails: []string{"a@x.com", "b@x.com"},
	})
	require.NoError(t, err)
	_, err = rsvp.SubmitRSVP(ctx, "BolaTok", &SubmitRSVPRequest{Response: "declined"})
	require.NoError(t, err)

	stats, err := svc.GetEventStats(ctx, env.owner.ID, env.event.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalInvites)
	assert.Equal(t, 1, stats.Attending)
	assert.Equal(t, 1, stats.NotAttending)
	assert.Equal(t, 1, stats.Pending)
	assert.Equal(t, 2, stats.Companions)
	assert.Equal(t, 3, stats.ExpectedGuests)
	assert.InDelta(t, 2.0/3.0, stats.ResponseRate, 0.001)
	assert.NotNil(t, stats.LastResponseAt)
}

func TestEventServiceLimitCannotDropBelowConfirmedGuests(t *testing.T) {
	env := newTestEnv(t)
	svc := NewEventService(env.events, env.invites)
	rsvp := env.rsvpService()
	ctx := context.Background()

	limited := env.addEvent(t, env.owner.ID, env.event.Date, intPtr(3))
	env.addInvite(t, limited, "Ada", "", "AdaTok", nil)
	env.addInvite(t, limited, "Bola", "", "BolaTok", intPtr(3))
	_, err := rsvp.SubmitRSVP(ctx, "AdaTok", &SubmitRSVPRequest{
		Response: "attending", BringingGuests: "yes", GuestCount: 2, GuestEmails: []string{"a@x.com", "b@x.com"},
	})
	require.NoError(t, err)
	_, err = rsvp.SubmitRSVP(ctx, "BolaTok", &SubmitRSVPRequest{
		Response: "attending", BringingGuests: "yes", GuestCount: 3,
		GuestEmails: []string{"c@x.com", "d@x.com", "e@x.com"},
	})
	require.NoError(t, err)

	_, err = svc.UpdateEvent(ctx, env.owner.ID, limited.ID, &UpdateEventRequest{GuestLimit: intPtr(1)})
	requireCode(t, err, entity.CodeGuestLimitExceeded)
	assert.Contains(t, err.Error(), "Ada")
	assert.NotContains(t, err.Error(), "Bola")

	got, err := svc.GetEvent(ctx, env.owner.ID, limited.ID)
	require.NoError(t, err)
	require.NotNil(t, got.GuestLimit)
	assert.Equal(t, 3, *got.GuestLimit)

	// Bola's own override keeps their count valid
	updated, err := svc.UpdateEvent(ctx, env.owner.ID, limited.ID, &UpdateEventRequest{GuestLimit: intPtr(2)})
	require.NoError(t, err)
	assert.Equal(t, 2, *updated.GuestLimit)
}
