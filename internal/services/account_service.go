// AccountService implements staff and customer administration: listing and
// modifying accounts, adjusting store credit, and appending to the remote
// audit log on every mutation.
//
// Audit appends are best-effort: a failed append never rolls back the
// mutation, but it is logged and surfaced as a notification so the operator
// knows the trail has a gap.
package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/avlonitis/go-shop-backend/internal/domain"
)

// AccountAPI is the slice of the remote client the service needs.
type AccountAPI interface {
	ListStaff(ctx context.Context) ([]domain.StaffMember, error)
	UpdateStaff(ctx context.Context, m domain.StaffMember) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUser(ctx context.Context, u domain.UserAccount) error
	AdjustCredit(ctx context.Context, userID string, delta float64) (float64, error)
	AppendAudit(ctx context.Context, actor, action, detail string) error
	ListAudit(ctx context.Context) ([]domain.AuditEntry, error)
}

// Notifier delivers the user-visible failure signals.
type Notifier interface {
	Notify(message string, kind domain.NotificationKind)
}

// AccountService implements the administration use-cases.
type AccountService struct {
	API    AccountAPI
	Notify Notifier
	Log    zerolog.Logger
}

// Staff returns all back-office accounts.
func (s *AccountService) Staff(ctx context.Context) ([]domain.StaffMember, error) {
	return s.API.ListStaff(ctx)
}

// UpdateStaff overwrites a staff member and audits the change under actor.
func (s *AccountService) UpdateStaff(ctx context.Context, actor string, m domain.StaffMember) error {
	if err := s.API.UpdateStaff(ctx, m); err != nil {
		return err
	}
	s.audit(ctx, actor, "staff.update", fmt.Sprintf("staff %s role=%s", m.ID, m.Role))
	return nil
}

// Users returns all customer accounts.
func (s *AccountService) Users(ctx context.Context) ([]domain.UserAccount, error) {
	return s.API.ListUsers(ctx)
}

// UpdateUser overwrites a customer account and audits the change.
func (s *AccountService) UpdateUser(ctx context.Context, actor string, u domain.UserAccount) error {
	if err := s.API.UpdateUser(ctx, u); err != nil {
		return err
	}
	s.audit(ctx, actor, "user.update", fmt.Sprintf("user %s blocked=%t", u.ID, u.Blocked))
	return nil
}

// AdjustCredit adds or removes store credit and audits the change. The delta
// must be non-zero; the resulting balance is returned.
func (s *AccountService) AdjustCredit(ctx context.Context, actor, userID string, delta float64) (float64, error) {
	if delta == 0 {
		return 0, ErrZeroCredit
	}
	balance, err := s.API.AdjustCredit(ctx, userID, delta)
	if err != nil {
		return 0, err
	}
	s.audit(ctx, actor, "credit.adjust", fmt.Sprintf("user %s delta=%+.2f balance=%.2f", userID, delta, balance))
	return balance, nil
}

// Audit returns the remote audit log, newest first.
func (s *AccountService) Audit(ctx context.Context) ([]domain.AuditEntry, error) {
	return s.API.ListAudit(ctx)
}

// audit appends one line, surfacing failures without failing the mutation.
func (s *AccountService) audit(ctx context.Context, actor, action, detail string) {
	if err := s.API.AppendAudit(ctx, actor, action, detail); err != nil {
		s.Log.Error().Err(err).Str("action", action).Msg("accounts: audit append failed")
		if s.Notify != nil {
			s.Notify.Notify("Audit log entry could not be written.", domain.KindError)
		}
	}
}
