package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/untapped/internal/untis"
	appErrors "github.com/noah-isme/untapped/pkg/errors"
)

var defaultCreds = untis.Credentials{Server: "arche.webuntis.com", School: "demo"}

func TestLoginWithoutResetIsNoOp(t *testing.T) {
	gw := newFakeGateway()
	factory, seen := factoryFor(gw)
	sessions := NewSessionService(factory, defaultCreds, nil)
	ctx := context.Background()

	first, err := sessions.Login(ctx, untis.Credentials{User: "jdoe", Password: "secret"}, false)
	require.NoError(t, err)
	second, err := sessions.Login(ctx, untis.Credentials{User: "other", Password: "x"}, false)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, gw.count("Login"))
	require.Len(t, *seen, 1)
	assert.Equal(t, "arche.webuntis.com", (*seen)[0].Server, "blank fields fall back to defaults")

	status := sessions.Status()
	assert.True(t, status.LoggedIn)
	assert.Equal(t, "jdoe", status.User)
}

func TestLoginResetReauthenticates(t *testing.T) {
	first, second := newFakeGateway(), newFakeGateway()
	factory, _ := factoryFor(first, second)
	sessions := NewSessionService(factory, defaultCreds, nil)
	resets := 0
	sessions.OnReset(func() { resets++ })
	ctx := context.Background()

	_, err := sessions.Login(ctx, untis.Credentials{User: "jdoe", Password: "secret"}, false)
	require.NoError(t, err)
	gw, err := sessions.Login(ctx, untis.Credentials{User: "jdoe", Password: "secret"}, true)
	require.NoError(t, err)
	assert.Same(t, second, gw)
	assert.True(t, first.loggedOut)
	assert.Zero(t, resets, "same school keeps caches")

	_, err = sessions.Login(ctx, untis.Credentials{School: "elsewhere", User: "jdoe", Password: "secret"}, true)
	require.NoError(t, err)
	assert.Equal(t, 1, resets)
}

func TestLoginBadCredentialsLeavesNoSession(t *testing.T) {
	gw := newFakeGateway()
	gw.loginErr = appErrors.Clone(appErrors.ErrBadCredentials, "bad credentials")
	factory, _ := factoryFor(gw)
	sessions := NewSessionService(factory, defaultCreds, nil)

	_, err := sessions.Login(context.Background(), untis.Credentials{User: "jdoe", Password: "wrong"}, false)
	assert.True(t, errors.Is(err, appErrors.ErrBadCredentials))
	assert.False(t, sessions.Status().LoggedIn)

	_, err = sessions.Require()
	assert.True(t, errors.Is(err, appErrors.ErrSessionRequired))
}

func TestLoginMissingField(t *testing.T) {
	factory, seen := factoryFor(newFakeGateway())
	sessions := NewSessionService(factory, defaultCreds, nil)

	_, err := sessions.Login(context.Background(), untis.Credentials{User: "jdoe"}, false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	assert.Contains(t, err.Error(), "password")
	assert.Empty(t, *seen)
}

func TestLogoutClearsSessionAndCaches(t *testing.T) {
	gw := newFakeGateway()
	gw.entities["rooms"] = nil
	factory, _ := factoryFor(gw)
	sessions := NewSessionService(factory, defaultCreds, nil)
	refs := NewReferenceService(sessions, nil, nil)
	sessions.OnReset(refs.Reset)
	ctx := context.Background()

	_, err := sessions.Require()
	assert.True(t, errors.Is(err, appErrors.ErrSessionRequired))

	_, err = sessions.Login(ctx, untis.Credentials{User: "jdoe", Password: "secret"}, false)
	require.NoError(t, err)
	_, err = refs.List(ctx, "rooms", false)
	require.NoError(t, err)

	require.NoError(t, sessions.Logout(ctx))
	assert.True(t, gw.loggedOut)
	assert.False(t, sessions.Status().LoggedIn)

	_, err = refs.List(ctx, "rooms", false)
	assert.True(t, errors.Is(err, appErrors.ErrSessionRequired), "caches were dropped with the session")

	require.NoError(t, sessions.Logout(ctx))
}
