package storage

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveStreamAndOpen(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	name, err := s.SaveStream("timetable.csv", strings.NewReader("a,b\n"))
	require.NoError(t, err)
	assert.Equal(t, "timetable.csv", name)

	f, err := s.Open(name)
	require.NoError(t, err)
	defer f.Close()
	body, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n", string(body))

	files, err := s.List()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "timetable.csv", files[0].Name)
}

func TestResolveRejectsEscapes(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	for _, bad := range []string{"", "../x.csv", "/etc/passwd", ".."} {
		_, err := s.SaveStream(bad, strings.NewReader("x"))
		assert.Error(t, err, bad)
	}
}

func TestCleanupOlderThan(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStorage(dir)
	require.NoError(t, err)

	_, err = s.SaveStream("old.csv", strings.NewReader("x"))
	require.NoError(t, err)
	_, err = s.SaveStream("new.csv", strings.NewReader("y"))
	require.NoError(t, err)
	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "old.csv"), past, past))

	deleted, err := s.CleanupOlderThan(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{"old.csv"}, deleted)

	require.NoError(t, s.Delete("new.csv"))
	require.NoError(t, s.Delete("new.csv"))
}
