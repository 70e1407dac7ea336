package service

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/untapped/pkg/errors"
	"github.com/noah-isme/untapped/pkg/settings"
)

// TeachersSettingKey holds the remembered teachers inside the settings file.
const TeachersSettingKey = "teachers"

type settingsStore interface {
	Get(key string) (any, bool)
	Set(key string, value any) (bool, error)
}

// SettingsService exposes the settings file to the UI.
type SettingsService struct {
	store  settingsStore
	logger *zap.Logger
}

// NewSettingsService constructs a SettingsService.
func NewSettingsService(store settingsStore, logger *zap.Logger) *SettingsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettingsService{store: store, logger: logger}
}

// Get returns the value stored under key.
func (s *SettingsService) Get(key string) (any, error) {
	key, err := cleanSettingKey(key)
	if err != nil {
		return nil, err
	}
	v, ok := s.store.Get(key)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("no setting %q", key))
	}
	return v, nil
}

// Set stores value under key. Keys maintained by the application itself are
// read-only here. The flag reports whether the file was written.
func (s *SettingsService) Set(key string, value any) (bool, error) {
	key, err := cleanSettingKey(key)
	if err != nil {
		return false, err
	}
	if key == settings.VersionKey || key == TeachersSettingKey {
		return false, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("setting %q is read-only", key))
	}
	saved, err := s.store.Set(key, value)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "save settings")
	}
	if saved {
		s.logger.Debug("setting saved", zap.String("key", key))
	}
	return saved, nil
}

func cleanSettingKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", appErrors.Clone(appErrors.ErrValidation, "a setting key is required")
	}
	return key, nil
}
