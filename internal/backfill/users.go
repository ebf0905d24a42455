package backfill

import (
	"context"
	"errors"
	"strings"

	"github.com/planeseed/planeseed/internal/plane"
	"github.com/planeseed/planeseed/internal/seed"
)

var profileRoles = []string{
	"Individual contributor", "Manager", "Senior Leader", "Executive", "Freelancer", "Student",
}

var profileUseCases = []string{
	"Engineering", "Product", "Marketing", "Sales", "Operations",
	"Human Resources", "Finance", "Legal", "Project", "Design",
}

// Users signs up every generated account, invites them all into every
// workspace, and then acts as each user to accept the invitations and fill
// in a believable profile. Accounts that already exist are skips; their
// invitation and profile steps still run so a resumed run converges.
func (b *Backfiller) Users(ctx context.Context) error {
	var users []seed.User
	if err := seed.Load(b.dir.Users(), &users); err != nil {
		return err
	}

	counters := &Counters{}
	results := &resultBuffer{}

	// Sign-ups first, in parallel.
	err := b.workerPool(ctx, len(users), func(ctx context.Context, i int) error {
		user := users[i]
		if b.seen("user", user.Email) {
			counters.skipped()
			results.add(user.Email, "ledger", nil)
			return nil
		}
		err := b.client.SignUp(ctx, user.Email, user.Password)
		b.outcome(counters, results, "user", user.Email, err)
		return nil
	})
	if err != nil {
		return err
	}

	// Invite everyone into every workspace as the admin.
	workspaces, err := b.client.Workspaces(ctx)
	if err != nil {
		return err
	}
	invites := make([]plane.InviteEmail, 0, len(users))
	for _, user := range users {
		invites = append(invites, plane.InviteEmail{Email: user.Email, Role: plane.RoleMember})
	}
	for _, ws := range workspaces {
		if err := b.client.InviteMembers(ctx, ws.Slug, invites); err != nil &&
			!errors.Is(err, plane.ErrAlreadyExists) {
			b.log.WithError(err).WithField("workspace", ws.Slug).Warn("Inviting members failed")
		}
	}

	// Act as each user: accept invitations, set name and profile.
	err = b.workerPool(ctx, len(users), func(ctx context.Context, i int) error {
		user := users[i]
		if err := b.onboardUser(ctx, user); err != nil {
			b.log.WithError(err).WithField("user", user.Email).Warn("Onboarding failed")
			results.add(user.Email, "onboarding-failed", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	counters.Log(b.log, "users")
	return results.flush(b.dir.Results("users"))
}

func (b *Backfiller) onboardUser(ctx context.Context, user seed.User) error {
	session, err := b.client.LoginAs(ctx, user.Email, user.Password)
	if err != nil {
		return err
	}

	invitations, err := b.client.MyInvitations(ctx, session)
	if err != nil {
		return err
	}
	if len(invitations) > 0 {
		ids := make([]string, 0, len(invitations))
		for _, inv := range invitations {
			ids = append(ids, inv.ID)
		}
		if err := b.client.AcceptInvitations(ctx, session, ids); err != nil {
			return err
		}
	}

	if err := b.client.UpdateMe(ctx, session, map[string]any{
		"first_name": user.FirstName,
		"last_name":  user.LastName,
	}); err != nil {
		return err
	}

	role, useCase := b.profileFor(user.Email)
	return b.client.UpdateMyProfile(ctx, session, map[string]any{
		"role":     role,
		"use_case": useCase,
	})
}

// profileFor infers role and use case from the email where it can, and draws
// randomly otherwise, skewed toward individual contributors in engineering.
func (b *Backfiller) profileFor(email string) (string, string) {
	lower := strings.ToLower(email)

	role := ""
	switch {
	case containsAny(lower, "ceo", "founder", "president", "chief"):
		role = "Executive"
	case containsAny(lower, "manager", "lead", "head", "director"):
		role = "Manager"
	case containsAny(lower, "senior", "principal"):
		role = "Senior Leader"
	case containsAny(lower, "intern", "junior"):
		role = "Individual contributor"
	default:
		if b.intn(10) < 6 {
			role = "Individual contributor"
		} else {
			role = profileRoles[b.intn(len(profileRoles))]
		}
	}

	useCase := ""
	switch {
	case containsAny(lower, "dev", "engineer", "tech", "code"):
		useCase = "Engineering"
	case containsAny(lower, "product", "pm"):
		useCase = "Product"
	case containsAny(lower, "sales", "revenue"):
		useCase = "Sales"
	default:
		if b.intn(10) < 4 {
			useCase = "Engineering"
		} else {
			useCase = profileUseCases[b.intn(len(profileUseCases))]
		}
	}
	return role, useCase
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
