package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/noah-isme/untapped/internal/models"
)

type settingsStore interface {
	Decode(key string, dest any) (bool, error)
	Set(key string, value any) (bool, error)
	Delete(key string) error
}

// SettingsTeacherMemo remembers teachers inside the settings file, as a list
// under a single key.
type SettingsTeacherMemo struct {
	store settingsStore
	key   string
	mu    sync.Mutex
}

// NewSettingsTeacherMemo constructs a memo writing to key in store.
func NewSettingsTeacherMemo(store settingsStore, key string) *SettingsTeacherMemo {
	return &SettingsTeacherMemo{store: store, key: key}
}

// Load returns the remembered teachers ordered by id.
func (m *SettingsTeacherMemo) Load(ctx context.Context) ([]models.Teacher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadLocked()
}

// Remember adds or replaces teacher.
func (m *SettingsTeacherMemo) Remember(ctx context.Context, teacher models.Teacher) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	teachers, err := m.loadLocked()
	if err != nil {
		return err
	}
	replaced := false
	for i := range teachers {
		if teachers[i].ID == teacher.ID {
			teachers[i] = teacher
			replaced = true
			break
		}
	}
	if !replaced {
		teachers = append(teachers, teacher)
		sortTeachers(teachers)
	}
	if _, err := m.store.Set(m.key, teachers); err != nil {
		return fmt.Errorf("remember teacher %d: %w", teacher.ID, err)
	}
	return nil
}

// Forget drops every remembered teacher.
func (m *SettingsTeacherMemo) Forget(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.store.Delete(m.key); err != nil {
		return fmt.Errorf("forget teachers: %w", err)
	}
	return nil
}

func (m *SettingsTeacherMemo) loadLocked() ([]models.Teacher, error) {
	var teachers []models.Teacher
	if _, err := m.store.Decode(m.key, &teachers); err != nil {
		return nil, fmt.Errorf("load remembered teachers: %w", err)
	}
	sortTeachers(teachers)
	return teachers, nil
}

func sortTeachers(teachers []models.Teacher) {
	sort.Slice(teachers, func(i, j int) bool { return teachers[i].ID < teachers[j].ID })
}
