// Package controller implements the role-facing operations on top of the
// store: registration and login, inventory, dispensing, billing, medical
// records, feedback and password resets. Appointment lifecycle transitions
// live in the workflow package.
package controller

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/clinicware/hms/internal/journal"
)

var (
	// ErrBadCredentials covers both unknown user and wrong password.
	ErrBadCredentials = errors.New("invalid user id or password")
	// ErrInsufficientStock means dispensing would drive stock below zero.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrAlreadyDispensed means the prescription was handed out before.
	ErrAlreadyDispensed = errors.New("prescription already dispensed")
	// ErrReplenishOpen means a replenishment request is already pending.
	ErrReplenishOpen = errors.New("replenishment request already open")
	// ErrResetOpen means a password reset request is already pending.
	ErrResetOpen = errors.New("password reset request already open")
	// ErrBillState means the bill is not in the status the operation needs.
	ErrBillState = errors.New("bill is not in the required status")
)

// audit writes a journal entry, logging instead of failing when the journal
// itself cannot be written.
func audit(ctx context.Context, j *journal.Journal, logger *zap.Logger, actor, table string, action journal.Action, key, detail string) {
	if j == nil {
		return
	}
	if err := j.Record(ctx, actor, table, action, key, detail); err != nil {
		logger.Warn("journal write failed", zap.Error(err))
	}
}
