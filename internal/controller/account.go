package controller

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/clinicware/hms/internal/entity"
	"github.com/clinicware/hms/internal/journal"
	"github.com/clinicware/hms/internal/store"
	"github.com/clinicware/hms/pkg/uniq"
)

// MinPasswordLength is the shortest password Register accepts.
const MinPasswordLength = 8

// Accounts manages users and their credentials. User records live in one
// table per role; credentials live in the accounts table, keyed by user ID.
type Accounts struct {
	store    store.Store
	accounts store.Table
	guard    *uniq.Guard
	journal  *journal.Journal
	logger   *zap.Logger
}

// NewAccounts creates the account controller.
func NewAccounts(s store.Store, jrnl *journal.Journal, logger *zap.Logger) *Accounts {
	if logger == nil {
		logger = zap.NewNop()
	}
	accounts := s.Table(store.TableAccounts)
	return &Accounts{
		store:    s,
		accounts: accounts,
		guard:    uniq.NewGuard(accounts, store.TableAccounts, logger),
		journal:  jrnl,
		logger:   logger,
	}
}

// Register creates a user record in its role table plus a credential record.
// The user ID must be unused across all roles.
func (a *Accounts) Register(ctx context.Context, u entity.User, password string) error {
	if u.ID == "" {
		return fmt.Errorf("%w: user id is required", store.ErrInvalidFormat)
	}
	if len(password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	// The accounts table spans every role, so reserving there is what makes
	// the ID globally unique.
	acct := entity.Account{UserID: u.ID, PasswordHash: string(hash), Role: u.Role}
	if err := a.guard.Reserve(ctx, acct.Record()); err != nil {
		return err
	}
	if err := a.store.Table(u.Role.UserTable()).Append(ctx, u.Record()); err != nil {
		return fmt.Errorf("append user: %w", err)
	}

	audit(ctx, a.journal, a.logger, u.ID, u.Role.UserTable(), journal.ActionCreate, u.ID, "user registered")
	a.logger.Info("user registered",
		zap.String("user_id", u.ID),
		zap.String("role", string(u.Role)))
	return nil
}

// Authenticate verifies credentials and returns the user. Unknown IDs and
// wrong passwords are indistinguishable to the caller.
func (a *Accounts) Authenticate(ctx context.Context, userID, password string) (entity.User, error) {
	rec, err := a.accounts.Find(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return entity.User{}, ErrBadCredentials
		}
		return entity.User{}, err
	}
	acct, err := entity.ParseAccount(rec)
	if err != nil {
		return entity.User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)) != nil {
		return entity.User{}, ErrBadCredentials
	}
	return a.Lookup(ctx, userID)
}

// Lookup returns the user behind an ID, whatever its role.
func (a *Accounts) Lookup(ctx context.Context, userID string) (entity.User, error) {
	rec, err := a.accounts.Find(ctx, userID)
	if err != nil {
		return entity.User{}, fmt.Errorf("account %s: %w", userID, err)
	}
	acct, err := entity.ParseAccount(rec)
	if err != nil {
		return entity.User{}, err
	}
	userRec, err := a.store.Table(acct.Role.UserTable()).Find(ctx, userID)
	if err != nil {
		return entity.User{}, fmt.Errorf("user %s: %w", userID, err)
	}
	return entity.ParseUser(userRec)
}

// UpdateContact changes the two mutable profile fields. Identity fields
// never change after registration.
func (a *Accounts) UpdateContact(ctx context.Context, userID, contactNumber, emailAddress string) (entity.User, error) {
	u, err := a.Lookup(ctx, userID)
	if err != nil {
		return entity.User{}, err
	}
	u.ContactNumber = contactNumber
	u.EmailAddress = emailAddress
	table := u.Role.UserTable()
	if err := a.store.Table(table).Update(ctx, userID, u.Record()); err != nil {
		return entity.User{}, err
	}
	audit(ctx, a.journal, a.logger, userID, table, journal.ActionUpdate, userID, "contact details updated")
	return u, nil
}

// ChangePassword rotates a credential after verifying the current one.
func (a *Accounts) ChangePassword(ctx context.Context, userID, current, next string) error {
	if _, err := a.Authenticate(ctx, userID, current); err != nil {
		return err
	}
	return a.setPassword(ctx, userID, next)
}

// ResetPassword rotates a credential without the current one. Administrator
// path, reached through an approved reset request.
func (a *Accounts) ResetPassword(ctx context.Context, userID, next string) error {
	if _, err := a.accounts.Find(ctx, userID); err != nil {
		return fmt.Errorf("account %s: %w", userID, err)
	}
	return a.setPassword(ctx, userID, next)
}

func (a *Accounts) setPassword(ctx context.Context, userID, password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := a.accounts.UpdateField(ctx, userID, 1, string(hash)); err != nil {
		return err
	}
	audit(ctx, a.journal, a.logger, userID, store.TableAccounts, journal.ActionUpdate, userID, "password rotated")
	return nil
}

// ListByRole returns every registered user of one role, in registration order.
func (a *Accounts) ListByRole(ctx context.Context, role entity.Role) ([]entity.User, error) {
	recs, err := a.store.Table(role.UserTable()).ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	users := make([]entity.User, 0, len(recs))
	for _, rec := range recs {
		u, err := entity.ParseUser(rec)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}
