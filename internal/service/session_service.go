package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/noah-isme/untapped/internal/models"
	"github.com/noah-isme/untapped/internal/untis"
	appErrors "github.com/noah-isme/untapped/pkg/errors"
)

// SessionService owns the single authenticated session of the process.
type SessionService struct {
	factory  GatewayFactory
	defaults untis.Credentials
	logger   *zap.Logger

	mu      sync.Mutex
	gateway Gateway
	creds   untis.Credentials
	onReset []func()
	onLogin []func()
}

// NewSessionService constructs a SessionService. defaults fill in blank
// fields of the credentials passed to Login.
func NewSessionService(factory GatewayFactory, defaults untis.Credentials, logger *zap.Logger) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{factory: factory, defaults: defaults, logger: logger}
}

// OnReset registers fn to run after logout or when a login switches server or school.
func (s *SessionService) OnReset(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onReset = append(s.onReset, fn)
}

// OnLogin registers fn to run after a new session was established.
func (s *SessionService) OnLogin(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onLogin = append(s.onLogin, fn)
}

// Login returns the current session unless reset is set or none exists, in
// which case it authenticates with creds merged over the defaults. On
// failure no session is kept.
func (s *SessionService) Login(ctx context.Context, creds untis.Credentials, reset bool) (Gateway, error) {
	gw, hooks, err := s.login(ctx, creds, reset)
	// Hooks take cache locks whose holders may be waiting in Require.
	for _, fn := range hooks {
		fn()
	}
	return gw, err
}

func (s *SessionService) login(ctx context.Context, creds untis.Credentials, reset bool) (Gateway, []func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gateway != nil && !reset {
		return s.gateway, nil, nil
	}

	merged := mergeCredentials(creds, s.defaults)
	if err := requireCredentialFields(merged); err != nil {
		return nil, nil, err
	}

	previous := s.gateway
	prevCreds := s.creds
	s.gateway = nil
	if previous != nil {
		if err := previous.Logout(ctx); err != nil {
			s.logger.Warn("logout of previous session failed", zap.Error(err))
		}
	}

	var hooks []func()
	if previous != nil && (prevCreds.Server != merged.Server || prevCreds.School != merged.School) {
		hooks = s.resetHooksLocked()
	}

	gw, err := s.factory(merged)
	if err != nil {
		return nil, hooks, err
	}
	if err := gw.Login(ctx); err != nil {
		if errors.Is(err, appErrors.ErrBadCredentials) {
			s.logger.Warn("login rejected", zap.String("user", merged.User), zap.String("school", merged.School))
		}
		return nil, hooks, err
	}

	s.gateway = gw
	s.creds = merged
	s.creds.Password = ""
	s.logger.Info("session established", zap.String("user", merged.User), zap.String("school", merged.School))
	hooks = append(hooks, s.onLogin...)
	return gw, hooks, nil
}

// Logout ends the session and clears everything cached under it.
func (s *SessionService) Logout(ctx context.Context) error {
	s.mu.Lock()
	if s.gateway == nil {
		s.mu.Unlock()
		return nil
	}
	err := s.gateway.Logout(ctx)
	s.gateway = nil
	s.creds = untis.Credentials{}
	hooks := s.resetHooksLocked()
	s.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
	if err != nil {
		s.logger.Warn("remote logout failed", zap.Error(err))
	}
	return err
}

// Require returns the active gateway or ErrSessionRequired.
func (s *SessionService) Require() (Gateway, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gateway == nil {
		return nil, appErrors.ErrSessionRequired
	}
	return s.gateway, nil
}

// Status describes the current session without secrets.
func (s *SessionService) Status() models.SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.SessionStatus{
		LoggedIn: s.gateway != nil,
		Server:   s.creds.Server,
		School:   s.creds.School,
		User:     s.creds.User,
	}
}

func (s *SessionService) resetHooksLocked() []func() {
	hooks := make([]func(), len(s.onReset))
	copy(hooks, s.onReset)
	return hooks
}

func mergeCredentials(creds, defaults untis.Credentials) untis.Credentials {
	pick := func(v, fallback string) string {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return fallback
	}
	return untis.Credentials{
		Server:    pick(creds.Server, defaults.Server),
		School:    pick(creds.School, defaults.School),
		User:      pick(creds.User, defaults.User),
		Password:  pick(creds.Password, defaults.Password),
		UserAgent: pick(creds.UserAgent, defaults.UserAgent),
	}
}

func requireCredentialFields(c untis.Credentials) error {
	fields := []struct{ name, value string }{
		{"server", c.Server},
		{"school", c.School},
		{"user", c.User},
		{"password", c.Password},
	}
	for _, f := range fields {
		if f.value == "" {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("a value for %s is required", f.name))
		}
	}
	return nil
}
