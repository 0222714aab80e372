package transport

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Emmanuelayeni3000/ELIVRA-sub000/config"
	repository "github.com/Emmanuelayeni3000/ELIVRA-sub000/internal/database/postgres"
	"github.com/Emmanuelayeni3000/ELIVRA-sub000/internal/service"
	"github.com/Emmanuelayeni3000/ELIVRA-sub000/pkg/mailer"
	"github.com/Emmanuelayeni3000/ELIVRA-sub000/pkg/postgres"
	"github.com/Emmanuelayeni3000/ELIVRA-sub000/pkg/sqlite"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type api struct {
	t      *testing.T
	router *gin.Engine
}

func newAPI(t *testing.T) *api {
	t.Helper()

	db, err := sqlite.NewSQLiteDB(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, postgres.RunMigrations(db))

	eventRepo := repository.NewEventRepository(db)
	inviteRepo := repository.NewInviteRepository(db)
	companionRepo := repository.NewCompanionRepository(db)
	reminderRepo := repository.NewReminderRepository(db)
	userRepo := repository.NewUserRepository(db)

	app := &config.AppConfig{
		BaseURL:       "https://elivra.test",
		RSVPPath:      "/rsvp",
		CompanionPath: "/companion-invite",
		QRSize:        128,
	}
	notifications := service.NewNotificationService(mailer.LogMailer{}, nil, app, 3)
	authService := service.NewAuthService(userRepo, &config.JWTConfig{Secret: "test-secret", Expiration: time.Hour})

	handlers := &Handlers{
		RSVP:     NewRSVPHandler(service.NewRSVPService(eventRepo, inviteRepo, companionRepo, userRepo, notifications, nil)),
		Event:    NewEventHandler(service.NewEventService(eventRepo, inviteRepo)),
		Invite:   NewInviteHandler(service.NewInviteService(eventRepo, inviteRepo, notifications, app)),
		Reminder: NewReminderHandler(service.NewReminderService(eventRepo, inviteRepo, reminderRepo, notifications, app)),
		Auth:     NewAuthHandler(authService),
	}

	return &api{t: t, router: InitRoutes(handlers, authService, RouterConfig{Timeout: 5 * time.Second})}
}

func (a *api) do(method, path, session string, body interface{}) *httptest.ResponseRecorder {
	a.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if session != "" {
		req.Header.Set("Authorization", "Bearer "+session)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *api) decode(w *httptest.ResponseRecorder, v interface{}) {
	a.t.Helper()
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func (a *api) register(email string) string {
	a.t.Helper()
	w := a.do(http.MethodPost, "/api/auth/register", "", gin.H{"email": email, "name": "Host", "password": "long enough"})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	a.decode(w, &resp)
	return resp.Token
}

type eventJSON struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type inviteJSON struct {
	ID         string `json:"id"`
	GuestName  string `json:"guestName"`
	QRCode     string `json:"qrCode"`
	RSVPStatus string `json:"rsvpStatus"`
	GuestCount int    `json:"guestCount"`
}

func (a *api) createEvent(session string) eventJSON {
	a.t.Helper()
	date := time.Now().Add(30 * 24 * time.Hour).UTC().Format("2006-01-02T15:04")
	w := a.do(http.MethodPost, "/api/events", session, gin.H{"title": "Wedding", "date": date, "location": "Lagos"})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())

	var event eventJSON
	a.decode(w, &event)
	return event
}

func (a *api) createInvite(session, eventID string, body gin.H) inviteJSON {
	a.t.Helper()
	w := a.do(http.MethodPost, "/api/events/"+eventID+"/invites", session, body)
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())

	var invite inviteJSON
	a.decode(w, &invite)
	return invite
}

func TestHealth(t *testing.T) {
	a := newAPI(t)
	w := a.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestAuthRoutes(t *testing.T) {
	a := newAPI(t)
	a.register("host@elivra.test")

	w := a.do(http.MethodPost, "/api/auth/register", "", gin.H{"email": "host@elivra.test", "name": "Again", "password": "long enough"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = a.do(http.MethodPost, "/api/auth/register", "", gin.H{"email": "not-an-email", "name": "X", "password": "long enough"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_input")

	w = a.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "host@elivra.test", "password": "long enough"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"token"`)

	w = a.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "host@elivra.test", "password": "wrong password"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOwnerRoutesRequireSession(t *testing.T) {
	a := newAPI(t)

	w := a.do(http.MethodGet, "/api/events", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = a.do(http.MethodGet, "/api/events", "forged", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestEventsAreScopedToOwner(t *testing.T) {
	a := newAPI(t)
	host := a.register("host@elivra.test")
	other := a.register("other@elivra.test")
	event := a.createEvent(host)

	w := a.do(http.MethodGet, "/api/events/"+event.ID, other, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = a.do(http.MethodDelete, "/api/events/"+event.ID, other, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = a.do(http.MethodGet, "/api/events", other, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = a.do(http.MethodPut, "/api/events/"+event.ID, host, gin.H{"title": "Reception"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Reception")

	w = a.do(http.MethodDelete, "/api/events/"+event.ID, host, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = a.do(http.MethodGet, "/api/events/"+event.ID, host, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRSVPFlow(t *testing.T) {
	a := newAPI(t)
	host := a.register("host@elivra.test")
	event := a.createEvent(host)
	invite := a.createInvite(host, event.ID, gin.H{"guestName": "Ada", "email": "ada@x.com", "guestLimit": 1})

	w := a.do(http.MethodGet, "/api/rsvp/unknown-token", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = a.do(http.MethodGet, "/api/rsvp/"+invite.QRCode, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"guestName":"Ada"`)

	// the invite id resolves to the same guest
	w = a.do(http.MethodGet, "/api/rsvp/"+invite.ID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), invite.ID)

	w = a.do(http.MethodPost, "/api/rsvp/"+invite.QRCode, "", gin.H{"response": "maybe"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_response")

	w = a.do(http.MethodPost, "/api/rsvp/"+invite.QRCode, "", gin.H{
		"response": "attending", "bringingGuests": "yes", "guestCount": 2,
		"guestEmails": []string{"a@x.com", "b@x.com"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "guest_limit_exceeded")

	w = a.do(http.MethodPost, "/api/rsvp/"+invite.QRCode, "", gin.H{
		"response": "attending", "bringingGuests": "yes", "guestCount": 1,
		"guestEmails": []string{"Plus.One@x.com"}, "message": "Can't wait",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var result struct {
		Message string     `json:"message"`
		Guest   inviteJSON `json:"guest"`
	}
	a.decode(w, &result)
	assert.NotEmpty(t, result.Message)
	assert.Equal(t, "attending", result.Guest.RSVPStatus)
	assert.Equal(t, 1, result.Guest.GuestCount)

	w = a.do(http.MethodGet, "/api/rsvp/"+invite.QRCode, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var details struct {
		Companions []struct {
			Email string `json:"email"`
			Token string `json:"token"`
		} `json:"companions"`
	}
	a.decode(w, &details)
	require.Len(t, details.Companions, 1)
	assert.Equal(t, "plus.one@x.com", details.Companions[0].Email)

	w = a.do(http.MethodGet, "/api/companion-invite/"+details.Companions[0].Token, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"guestName":"Ada"`)
	assert.Contains(t, w.Body.String(), `"title":"Wedding"`)

	w = a.do(http.MethodGet, "/api/companion-invite/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = a.do(http.MethodGet, "/api/events/"+event.ID+"/stats", host, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats struct {
		Attending      int `json:"attending"`
		ExpectedGuests int `json:"expectedGuests"`
	}
	a.decode(w, &stats)
	assert.Equal(t, 1, stats.Attending)
	assert.Equal(t, 2, stats.ExpectedGuests)
}

func TestInviteRoutes(t *testing.T) {
	a := newAPI(t)
	host := a.register("host@elivra.test")
	other := a.register("other@elivra.test")
	event := a.createEvent(host)
	invite := a.createInvite(host, event.ID, gin.H{"guestName": "Ada", "email": "ada@x.com"})

	w := a.do(http.MethodPost, "/api/events/"+event.ID+"/invites", host, gin.H{"email": "nameless@x.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(http.MethodPut, "/api/invites/"+invite.ID, host, gin.H{"phone": "0801"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"phone":"0801"`)

	w = a.do(http.MethodPut, "/api/invites/"+invite.ID, other, gin.H{"phone": "0802"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = a.do(http.MethodGet, "/api/invites/"+invite.ID+"/qr", host, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "data:image/png;base64,")
	assert.Contains(t, w.Body.String(), "https://elivra.test/rsvp/"+invite.QRCode)

	w = a.do(http.MethodPost, "/api/events/"+event.ID+"/invites/send", host, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"sent":1`)

	w = a.do(http.MethodPost, "/api/invites/send-bulk", host, gin.H{"inviteIds": []string{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(http.MethodPost, "/api/invites/send-bulk", host, gin.H{"inviteIds": []string{invite.ID, "missing"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"failed":1`)

	w = a.do(http.MethodGet, "/api/events/"+event.ID+"/invites", host, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"sentAt":"`)

	w = a.do(http.MethodDelete, "/api/invites/"+invite.ID, host, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = a.do(http.MethodGet, "/api/events/"+event.ID+"/invites", host, nil)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestImportAndExport(t *testing.T) {
	a := newAPI(t)
	host := a.register("host@elivra.test")
	event := a.createEvent(host)

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", "guests.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte("name,email,phone\nAda,ada@x.com,0801\n,missing@x.com,\nBola,,\n"))
	require.NoError(t, err)
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/events/"+event.ID+"/invites/import", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+host)
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result struct {
		Imported int      `json:"imported"`
		Skipped  int      `json:"skipped"`
		Errors   []string `json:"errors"`
	}
	a.decode(w, &result)
	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 1, result.Skipped)

	// raw text/csv body
	req = httptest.NewRequest(http.MethodPost, "/api/events/"+event.ID+"/invites/import", strings.NewReader("Chi,chi@x.com\n"))
	req.Header.Set("Content-Type", "text/csv")
	req.Header.Set("Authorization", "Bearer "+host)
	w = httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"imported":1`)

	w = a.do(http.MethodGet, "/api/events/"+event.ID+"/invites/export", host, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "guests-"+event.ID+".csv")
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	assert.Len(t, lines, 4)
}

func TestReminderRoutes(t *testing.T) {
	a := newAPI(t)
	host := a.register("host@elivra.test")
	event := a.createEvent(host)
	a.createInvite(host, event.ID, gin.H{"guestName": "Ada", "email": "ada@x.com"})

	w := a.do(http.MethodPost, "/api/reminders", host, gin.H{"eventId": event.ID, "type": "nag"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(http.MethodPost, "/api/reminders", host, gin.H{"eventId": event.ID, "type": "rsvp", "message": "Reply soon"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"sent":1`)

	w = a.do(http.MethodGet, "/api/events/"+event.ID+"/reminders", host, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var reminders []struct {
		Type   string `json:"type"`
		Status string `json:"status"`
	}
	a.decode(w, &reminders)
	require.Len(t, reminders, 1)
	assert.Equal(t, "rsvp", reminders[0].Type)
	assert.Equal(t, "sent", reminders[0].Status)
}
