package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Emmanuelayeni3000/ELIVRA-sub000/internal/entity"
	"github.com/sirupsen/logrus"
)

// ImportResult reports a CSV import. Rows with errors are skipped; the
// rest are written together.
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors"`
}

var exportHeader = []string{
	"invite_id", "guest_name", "email", "guest_count", "rsvp_status", "sent_at", "viewed_at", "rsvp_at",
}

// isImportHeader reports whether the first row names its columns.
func isImportHeader(record []string) bool {
	if len(record) == 0 {
		return false
	}
	first := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(record[0], "\ufeff")))
	return first == "name" || first == "guest_name" || first == "guestname"
}

func column(record []string, i int) string {
	if i < len(record) {
		return strings.TrimSpace(record[i])
	}
	return ""
}

// ImportInvites reads name,email,phone rows. Emails already on the guest
// list, or repeated within the file, are skipped.
func (s *inviteService) ImportInvites(ctx context.Context, userID, eventID string, r io.Reader) (*ImportResult, error) {
	if _, err := ownedEvent(ctx, s.eventRepo, userID, eventID); err != nil {
		return nil, err
	}

	existing, err := s.inviteRepo.GetByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get invites: %w", err)
	}
	seen := make(map[string]struct{}, len(existing))
	for _, invite := range existing {
		if invite.Email != "" {
			seen[entity.NormalizeEmail(invite.Email)] = struct{}{}
		}
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	result := &ImportResult{Errors: make([]string, 0)}
	batch := make([]*entity.Invite, 0)
	skip := func(line int, format string, args ...interface{}) {
		result.Skipped++
		result.Errors = append(result.Errors, fmt.Sprintf("line %d: ", line)+fmt.Sprintf(format, args...))
	}

	for line := 1; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				skip(line, "%v", parseErr.Err)
				continue
			}
			return nil, entity.NewValidationError(entity.CodeInvalidInput, "failed to read csv: %v", err)
		}

		if line == 1 && isImportHeader(record) {
			continue
		}

		name := column(record, 0)
		if name == "" && column(record, 1) == "" && column(record, 2) == "" {
			continue
		}
		if name == "" {
			skip(line, "name is required")
			continue
		}

		email, err := cleanEmail(column(record, 1))
		if err != nil {
			skip(line, "%v", err)
			continue
		}
		if email != "" {
			if _, dup := seen[email]; dup {
				skip(line, "duplicate email %s", email)
				continue
			}
			seen[email] = struct{}{}
		}

		invite, err := newInvite(eventID, name, email, column(record, 2), nil)
		if err != nil {
			return nil, err
		}
		batch = append(batch, invite)
	}

	if err := s.inviteRepo.CreateBatch(ctx, batch); err != nil {
		return nil, fmt.Errorf("failed to import invites: %w", err)
	}
	result.Imported = len(batch)

	logrus.WithFields(logrus.Fields{
		"event_id": eventID,
		"imported": result.Imported,
		"skipped":  result.Skipped,
	}).Info("Guest list imported")

	return result, nil
}

// cellText keeps spreadsheet apps from evaluating guest-supplied text as a
// formula.
func cellText(s string) string {
	if s != "" && strings.ContainsRune("=+-@\t\r", rune(s[0])) {
		return "'" + s
	}
	return s
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func (s *inviteService) ExportInvites(ctx context.Context, userID, eventID string, w io.Writer) error {
	if _, err := ownedEvent(ctx, s.eventRepo, userID, eventID); err != nil {
		return err
	}

	invites, err := s.inviteRepo.GetByEvent(ctx, eventID)
	if err != nil {
		return fmt.Errorf("failed to get invites: %w", err)
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(exportHeader); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	for _, invite := range invites {
		err := writer.Write([]string{
			invite.ID,
			cellText(invite.GuestName),
			cellText(invite.Email),
			fmt.Sprint(invite.GuestCount),
			string(invite.RSVPStatus),
			formatOptionalTime(invite.SentAt),
			formatOptionalTime(invite.ViewedAt),
			formatOptionalTime(invite.RSVPAt),
		})
		if err != nil {
			return fmt.Errorf("failed to write csv: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}
