package controller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/clinicware/hms/internal/entity"
	"github.com/clinicware/hms/internal/journal"
	"github.com/clinicware/hms/internal/store"
)

// PasswordResets holds the queue of forgotten-password requests. Users file
// them from the login screen; an administrator resolves them by setting a
// fresh password.
type PasswordResets struct {
	requests store.Table
	accounts *Accounts
	journal  *journal.Journal
	logger   *zap.Logger
	clock    func() time.Time
}

// NewPasswordResets creates the reset queue controller.
func NewPasswordResets(s store.Store, accounts *Accounts, jrnl *journal.Journal, logger *zap.Logger) *PasswordResets {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PasswordResets{
		requests: s.Table(store.TableForgetPassword),
		accounts: accounts,
		journal:  jrnl,
		logger:   logger,
		clock:    time.Now,
	}
}

// WithClock overrides the time source. For tests.
func (p *PasswordResets) WithClock(clock func() time.Time) *PasswordResets {
	p.clock = clock
	return p
}

// Submit files a reset request for an existing user. At most one open
// request per user.
func (p *PasswordResets) Submit(ctx context.Context, userID, message string) (entity.ForgetPassword, error) {
	if _, err := p.accounts.Lookup(ctx, userID); err != nil {
		return entity.ForgetPassword{}, err
	}
	if _, err := p.requests.Find(ctx, userID); err == nil {
		return entity.ForgetPassword{}, fmt.Errorf("user %s: %w", userID, ErrResetOpen)
	} else if !errors.Is(err, store.ErrNotFound) {
		return entity.ForgetPassword{}, err
	}

	req := entity.ForgetPassword{
		UserID:      userID,
		Message:     message,
		RequestedAt: p.clock(),
	}
	if err := p.requests.Append(ctx, req.Record()); err != nil {
		return entity.ForgetPassword{}, err
	}
	audit(ctx, p.journal, p.logger, userID, store.TableForgetPassword, journal.ActionCreate, userID, "password reset requested")
	return req, nil
}

// ListOpen returns every unresolved request, oldest first.
func (p *PasswordResets) ListOpen(ctx context.Context) ([]entity.ForgetPassword, error) {
	recs, err := p.requests.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	reqs := make([]entity.ForgetPassword, 0, len(recs))
	for _, rec := range recs {
		req, err := entity.ParseForgetPassword(rec)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

// Resolve sets a new password for the requester and closes the request.
func (p *PasswordResets) Resolve(ctx context.Context, actor, userID, newPassword string) error {
	if _, err := p.requests.Find(ctx, userID); err != nil {
		return fmt.Errorf("reset request for %s: %w", userID, err)
	}
	if err := p.accounts.ResetPassword(ctx, userID, newPassword); err != nil {
		return err
	}
	if err := p.requests.Delete(ctx, userID); err != nil {
		return err
	}
	audit(ctx, p.journal, p.logger, actor, store.TableForgetPassword, journal.ActionDelete, userID, "password reset resolved")
	return nil
}
