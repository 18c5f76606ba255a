package controller

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicware/hms/internal/store"
)

func testResets(t *testing.T) (*PasswordResets, *Accounts) {
	t.Helper()
	s := store.NewMemStore()
	accounts := NewAccounts(s, nil, nil)
	return NewPasswordResets(s, accounts, nil, nil).WithClock(fixedClock), accounts
}

func TestPasswordResetFlow(t *testing.T) {
	ctx := context.Background()
	resets, accounts := testResets(t)

	require.NoError(t, accounts.Register(ctx, testPatient("P200"), "hunter2hunter2"))

	_, err := resets.Submit(ctx, "P999", "who am i")
	assert.ErrorIs(t, err, store.ErrNotFound, "only known users may file requests")

	req, err := resets.Submit(ctx, "P200", "forgot it")
	require.NoError(t, err)
	assert.Equal(t, "P200", req.UserID)

	_, err = resets.Submit(ctx, "P200", "again")
	assert.ErrorIs(t, err, ErrResetOpen)

	open, err := resets.ListOpen(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)

	require.NoError(t, resets.Resolve(ctx, "AD1", "P200", "freshpassword1"))

	open, err = resets.ListOpen(ctx)
	require.NoError(t, err)
	assert.Empty(t, open, "resolving closes the request")

	_, err = accounts.Authenticate(ctx, "P200", "freshpassword1")
	assert.NoError(t, err)
	_, err = accounts.Authenticate(ctx, "P200", "hunter2hunter2")
	assert.ErrorIs(t, err, ErrBadCredentials)

	err = resets.Resolve(ctx, "AD1", "P200", "anotherpassword")
	assert.ErrorIs(t, err, store.ErrNotFound, "no open request to resolve")
}
