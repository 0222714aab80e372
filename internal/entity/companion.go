package entity

import "time"

// CompanionInvite is an additional guest named by the primary invitee.
type CompanionInvite struct {
	ID        string    `json:"id" db:"id"`
	InviteID  string    `json:"inviteId" db:"invite_id"`
	Email     string    `json:"email" db:"email"`
	Token     string    `json:"token" db:"token"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// CompanionLink addresses one outbound companion invitation.
type CompanionLink struct {
	Email string `json:"email"` // as submitted
	Token string `json:"token"`
}

// CompanionPlan is the set of writes that converges stored companions
// to the submitted list.
type CompanionPlan struct {
	Keep   []*CompanionInvite
	Create []*CompanionInvite
	Delete []*CompanionInvite
	Links  []CompanionLink
}

// PlanCompanions reconciles existing rows against target emails. With
// reset set every existing row is deleted. Rows whose email survives keep
// their token; new emails get one from newToken. Links follow the order
// of emails.
func PlanCompanions(inviteID string, existing []*CompanionInvite, emails []string, reset bool, newToken func() (string, error)) (*CompanionPlan, error) {
	plan := &CompanionPlan{}

	if reset {
		plan.Delete = append(plan.Delete, existing...)
		return plan, nil
	}

	byEmail := make(map[string]*CompanionInvite, len(existing))
	for _, c := range existing {
		key := NormalizeEmail(c.Email)
		if _, dup := byEmail[key]; dup {
			plan.Delete = append(plan.Delete, c)
			continue
		}
		byEmail[key] = c
	}

	wanted := make(map[string]struct{}, len(emails))
	for _, original := range emails {
		key := NormalizeEmail(original)
		if _, seen := wanted[key]; seen {
			continue
		}
		wanted[key] = struct{}{}

		if c, ok := byEmail[key]; ok {
			plan.Keep = append(plan.Keep, c)
			plan.Links = append(plan.Links, CompanionLink{Email: original, Token: c.Token})
			continue
		}

		token, err := newToken()
		if err != nil {
			return nil, err
		}
		created := &CompanionInvite{InviteID: inviteID, Email: key, Token: token}
		plan.Create = append(plan.Create, created)
		plan.Links = append(plan.Links, CompanionLink{Email: original, Token: token})
	}

	for key, c := range byEmail {
		if _, ok := wanted[key]; !ok {
			plan.Delete = append(plan.Delete, c)
		}
	}

	return plan, nil
}
