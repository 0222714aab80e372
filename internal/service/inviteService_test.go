package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"strings"
	"testing"

	"github.com/Emmanuelayeni3000/ELIVRA-sub000/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInviteServiceCRUD(t *testing.T) {
	env := newTestEnv(t)
	svc := env.inviteService()
	ctx := context.Background()

	invite, err := svc.CreateInvite(ctx, env.owner.ID, env.event.ID, &CreateInviteRequest{
		GuestName:  " Ada ",
		Email:      " Ada@X.com ",
		GuestLimit: intPtr(2),
	})
	require.NoError(t, err)
	assert.Equal(t, "Ada", invite.GuestName)
	assert.Equal(t, "ada@x.com", invite.Email)
	assert.Len(t, invite.QRCode, 32)
	assert.Equal(t, entity.RSVPPending, invite.RSVPStatus)

	_, err = svc.CreateInvite(ctx, env.owner.ID, env.event.ID, &CreateInviteRequest{GuestName: "Bad", Email: "not-an-email"})
	requireCode(t, err, entity.CodeInvalidInput)

	phone := "+234 800 000 0000"
	updated, err := svc.UpdateInvite(ctx, env.owner.ID, invite.ID, &UpdateInviteRequest{Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, phone, updated.Phone)
	assert.Equal(t, "ada@x.com", updated.Email)

	list, err := svc.GetEventInvites(ctx, env.owner.ID, env.event.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = svc.UpdateInvite(ctx, "stranger", invite.ID, &UpdateInviteRequest{Phone: &phone})
	assert.True(t, errors.Is(err, entity.ErrNotFound))
	assert.True(t, errors.Is(svc.DeleteInvite(ctx, "stranger", invite.ID), entity.ErrNotFound))

	require.NoError(t, svc.DeleteInvite(ctx, env.owner.ID, invite.ID))
	_, err = env.invites.GetByID(ctx, invite.ID)
	assert.True(t, errors.Is(err, entity.ErrNotFound))
}

func TestInviteServiceLimitCannotDropBelowConfirmedGuests(t *testing.T) {
	env := newTestEnv(t)
	svc := env.inviteService()
	ctx := context.Background()

	ada := env.addInvite(t, env.event, "Ada", "", "AdaTok", intPtr(2))
	_, err := env.rsvpService().SubmitRSVP(ctx, "AdaTok", &SubmitRSVPRequest{
		Response: "attending", BringingGuests: "yes", GuestCount: 2, GuestEmails: []string{"a@x.com", "b@x.com"},
	})
	require.NoError(t, err)

	_, err = svc.UpdateInvite(ctx, env.owner.ID, ada.ID, &UpdateInviteRequest{GuestLimit: intPtr(1)})
	requireCode(t, err, entity.CodeGuestLimitExceeded)

	got, err := env.invites.GetByID(ctx, ada.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, *got.GuestLimit)

	updated, err := svc.UpdateInvite(ctx, env.owner.ID, ada.ID, &UpdateInviteRequest{GuestLimit: intPtr(4)})
	require.NoError(t, err)
	assert.Equal(t, 4, *updated.GuestLimit)

	// pending guests have nothing confirmed yet
	bola := env.addInvite(t, env.event, "Bola", "", "BolaTok", intPtr(2))
	_, err = svc.UpdateInvite(ctx, env.owner.ID, bola.ID, &UpdateInviteRequest{GuestLimit: intPtr(0)})
	require.NoError(t, err)
}

func TestInviteServiceQR(t *testing.T) {
	env := newTestEnv(t)
	svc := env.inviteService()
	ctx := context.Background()

	canonical := env.addInvite(t, env.event, "Ada", "", "AdaTok", nil)
	legacy := env.addInvite(t, env.event, "Bola", "", "https://old.elivra.test/rsvp/BolaTok/", nil)

	qr, err := svc.GetInviteQR(ctx, env.owner.ID, canonical.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://elivra.test/rsvp/AdaTok", qr.Link)
	assert.True(t, strings.HasPrefix(qr.QRCode, "data:image/png;base64,"))

	qr, err = svc.GetInviteQR(ctx, env.owner.ID, legacy.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://elivra.test/rsvp/BolaTok", qr.Link)

	_, err = svc.GetInviteQR(ctx, "stranger", canonical.ID)
	assert.True(t, errors.Is(err, entity.ErrNotFound))
}

func TestInviteToken(t *testing.T) {
	tests := []struct {
		qr, id, want string
	}{
		{"AbC123", "id-1", "AbC123"},
		{"https://old.test/rsvp/Tok", "id-2", "Tok"},
		{"https://old.test/rsvp/Tok/", "id-3", "Tok"},
		{"", "id-4", "id-4"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, InviteToken(&entity.Invite{ID: tt.id, QRCode: tt.qr}))
	}
}

func TestImportInvites(t *testing.T) {
	env := newTestEnv(t)
	svc := env.inviteService()
	ctx := context.Background()
	env.addInvite(t, env.event, "Existing", "taken@x.com", "Tok1", nil)

	input := strings.Join([]string{
		"Name,Email,Phone",
		"Ada,ada@x.com,0801",
		"Bola,,",
		",nobody@x.com,",
		"Chi,not-an-email,",
		"Dupe,TAKEN@x.com,",
		"Eze,ada@X.com,",
		"",
		"Femi,femi@x.com",
	}, "\n")

	result, err := svc.ImportInvites(ctx, env.owner.ID, env.event.ID, strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 3, result.Imported)
	assert.Equal(t, 4, result.Skipped)
	require.Len(t, result.Errors, 4)
	assert.Contains(t, result.Errors[0], "name is required")
	assert.Contains(t, result.Errors[1], "not-an-email")
	assert.Contains(t, result.Errors[2], "duplicate email taken@x.com")
	assert.Contains(t, result.Errors[3], "duplicate email ada@x.com")

	invites, err := env.invites.GetByEvent(ctx, env.event.ID)
	require.NoError(t, err)
	require.Len(t, invites, 4)
	byName := map[string]*entity.Invite{}
	for _, invite := range invites {
		byName[invite.GuestName] = invite
	}
	assert.Equal(t, "0801", byName["Ada"].Phone)
	assert.Equal(t, "", byName["Bola"].Email)
	assert.NotEmpty(t, byName["Femi"].QRCode)
	assert.NotEqual(t, byName["Ada"].QRCode, byName["Femi"].QRCode)
}

func TestImportInvitesWithoutHeader(t *testing.T) {
	env := newTestEnv(t)
	svc := env.inviteService()

	result, err := svc.ImportInvites(context.Background(), env.owner.ID, env.event.ID, strings.NewReader("Ada,ada@x.com\nBola,bola@x.com\n"))
	require.NoError(t, err)
	assert.Equal(t, 2, result.Imported)
	assert.Zero(t, result.Skipped)
	assert.Empty(t, result.Errors)

	_, err = svc.ImportInvites(context.Background(), "stranger", env.event.ID, strings.NewReader("Ada"))
	assert.True(t, errors.Is(err, entity.ErrNotFound))
}

func TestExportInvites(t *testing.T) {
	env := newTestEnv(t)
	svc := env.inviteService()
	rsvp := env.rsvpService()
	ctx := context.Background()

	ada := env.addInvite(t, env.event, "Ada, Jr.", "ada@x.com", "AdaTok", intPtr(1))
	env.addInvite(t, env.event, "Bola", "", "BolaTok", nil)
	_, err := rsvp.SubmitRSVP(ctx, "AdaTok", &SubmitRSVPRequest{
		Response: "attending", BringingGuests: "yes", GuestCount: 1, GuestEmails: []string{"a@x.com"},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, svc.ExportInvites(ctx, env.owner.ID, env.event.ID, &buf))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, exportHeader, records[0])
	assert.Equal(t, ada.ID, records[1][0])
	assert.Equal(t, "Ada, Jr.", records[1][1])
	assert.Equal(t, "1", records[1][3])
	assert.Equal(t, "attending", records[1][4])
	assert.NotEmpty(t, records[1][7])
	assert.Equal(t, "pending", records[2][4])
	assert.Equal(t, "", records[2][7])
}

func TestExportInvitesNeutralizesFormulas(t *testing.T) {
	env := newTestEnv(t)
	svc := env.inviteService()
	ctx := context.Background()

	env.addInvite(t, env.event, `=HYPERLINK("http://evil.test","Ada")`, "", "Tok1", nil)
	env.addInvite(t, env.event, "-Bola", "@bola@x.com", "Tok2", nil)
	env.addInvite(t, env.event, "Chi-Chi", "chi@x.com", "Tok3", nil)

	var buf bytes.Buffer
	require.NoError(t, svc.ExportInvites(ctx, env.owner.ID, env.event.ID, &buf))
	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)

	names := map[string]string{}
	for _, r := range records[1:] {
		names[r[1]] = r[2]
	}
	assert.Contains(t, names, `'=HYPERLINK("http://evil.test","Ada")`)
	assert.Equal(t, "'@bola@x.com", names["'-Bola"])
	assert.Equal(t, "chi@x.com", names["Chi-Chi"])
}

func TestSendEventInvitations(t *testing.T) {
	env := newTestEnv(t)
	svc := env.inviteService()
	ctx := context.Background()

	ada := env.addInvite(t, env.event, "Ada", "ada@x.com", "AdaTok", nil)
	bola := env.addInvite(t, env.event, "Bola", "", "BolaTok", nil)
	chi := env.addInvite(t, env.event, "Chi", "chi@x.com", "ChiTok", nil)
	env.mailer.fail["chi@x.com"] = errors.New("mailbox full")

	result, err := svc.SendEventInvitations(ctx, env.owner.ID, env.event.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Sent)
	assert.Equal(t, 2, result.Failed)
	require.Len(t, result.Details, 3)

	statuses := map[string]string{}
	for _, d := range result.Details {
		statuses[d.InviteID] = d.Status
	}
	assert.Equal(t, "sent", statuses[ada.ID])
	assert.Equal(t, "failed", statuses[bola.ID])
	assert.Equal(t, "failed", statuses[chi.ID])

	sent := env.mailer.byType(NotifyInvitation)
	require.Len(t, sent, 1)
	assert.Equal(t, "https://elivra.test/rsvp/AdaTok", sent[0].Data["rsvpLink"])
	assert.True(t, strings.HasPrefix(sent[0].Data["qrCode"], "data:image/png;base64,"))

	got, err := env.invites.GetByID(ctx, ada.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.SentAt)
	got, err = env.invites.GetByID(ctx, chi.ID)
	require.NoError(t, err)
	assert.Nil(t, got.SentAt)

	// bulk sends report; they do not queue retries
	assert.Zero(t, env.tasks.count())
}

func TestSendBulkInvitations(t *testing.T) {
	env := newTestEnv(t)
	svc := env.inviteService()
	ctx := context.Background()

	mine := env.addInvite(t, env.event, "Ada", "ada@x.com", "AdaTok", nil)

	other := &entity.User{Email: "other@x.com", Name: "Other", PasswordHash: "x"}
	require.NoError(t, env.users.Create(ctx, other))
	theirEvent := env.addEvent(t, other.ID, env.event.Date, nil)
	theirs := env.addInvite(t, theirEvent, "Zed", "zed@x.com", "ZedTok", nil)

	result, err := svc.SendBulkInvitations(ctx, env.owner.ID, []string{mine.ID, theirs.ID, "missing"})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Sent)
	assert.Equal(t, 2, result.Failed)
	for _, msg := range env.mailer.messages() {
		assert.NotEqual(t, "zed@x.com", msg.To)
	}

	_, err = svc.SendBulkInvitations(ctx, env.owner.ID, nil)
	requireCode(t, err, entity.CodeInvalidInput)
}
