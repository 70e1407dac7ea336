package repository

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/untapped/internal/models"
	"github.com/noah-isme/untapped/pkg/settings"
)

func TestSettingsTeacherMemo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	store, err := settings.Open(path)
	require.NoError(t, err)
	memo := NewSettingsTeacherMemo(store, "teachers")
	ctx := context.Background()

	teachers, err := memo.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, teachers)

	require.NoError(t, memo.Remember(ctx, models.Teacher{ID: 42, Surname: "Doe", Forename: "Jane"}))
	require.NoError(t, memo.Remember(ctx, models.Teacher{ID: 7, Surname: "Roe", Forename: "Rick"}))
	require.NoError(t, memo.Remember(ctx, models.Teacher{ID: 42, Surname: "Doe", Forename: "Janet"}))

	reopened, err := settings.Open(path)
	require.NoError(t, err)
	teachers, err = NewSettingsTeacherMemo(reopened, "teachers").Load(ctx)
	require.NoError(t, err)
	require.Len(t, teachers, 2)
	assert.Equal(t, int64(7), teachers[0].ID)
	assert.Equal(t, "Janet Doe", teachers[1].FullName())

	require.NoError(t, memo.Forget(ctx))
	teachers, err = memo.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, teachers)
}

func TestSettingsTeacherMemoRetriesAfterFailedSave(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "profile")
	path := filepath.Join(dir, "config.json")
	store, err := settings.Open(path)
	require.NoError(t, err)
	memo := NewSettingsTeacherMemo(store, "teachers")
	ctx := context.Background()
	jane := models.Teacher{ID: 42, Surname: "Doe", Forename: "Jane"}

	require.NoError(t, os.WriteFile(dir, []byte("blocker"), 0o600))
	require.Error(t, memo.Remember(ctx, jane))

	require.NoError(t, os.Remove(dir))
	require.NoError(t, memo.Remember(ctx, jane))

	reopened, err := settings.Open(path)
	require.NoError(t, err)
	teachers, err := NewSettingsTeacherMemo(reopened, "teachers").Load(ctx)
	require.NoError(t, err)
	require.Len(t, teachers, 1)
	assert.Equal(t, "Jane Doe", teachers[0].FullName())
}

type fakeHash struct {
	fields  map[string]string
	expires []time.Duration
	deleted bool
}

func (f *fakeHash) HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd {
	out := make(map[string]string, len(f.fields))
	for k, v := range f.fields {
		out[k] = v
	}
	return redis.NewMapStringStringResult(out, nil)
}

func (f *fakeHash) HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd {
	for i := 0; i+1 < len(values); i += 2 {
		var payload string
		switch v := values[i+1].(type) {
		case []byte:
			payload = string(v)
		case string:
			payload = v
		}
		f.fields[values[i].(string)] = payload
	}
	return redis.NewIntResult(int64(len(values)/2), nil)
}

func (f *fakeHash) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	f.expires = append(f.expires, expiration)
	return redis.NewBoolResult(true, nil)
}

func (f *fakeHash) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	f.fields = map[string]string{}
	f.deleted = true
	return redis.NewIntResult(1, nil)
}

func TestRedisTeacherMemo(t *testing.T) {
	client := &fakeHash{fields: map[string]string{"bad": "{"}}
	memo := NewRedisTeacherMemo(client, "untapped:teachers", time.Hour, nil)
	ctx := context.Background()

	require.NoError(t, memo.Remember(ctx, models.Teacher{ID: 42, Surname: "Doe", Forename: "Jane"}))
	require.NoError(t, memo.Remember(ctx, models.Teacher{ID: 3, Surname: "Roe", Forename: "Rick"}))
	assert.Equal(t, []time.Duration{time.Hour, time.Hour}, client.expires)

	var stored models.Teacher
	require.NoError(t, json.Unmarshal([]byte(client.fields[strconv.Itoa(42)]), &stored))
	assert.Equal(t, "Jane", stored.Forename)

	teachers, err := memo.Load(ctx)
	require.NoError(t, err)
	require.Len(t, teachers, 2, "undecodable entries are skipped")
	assert.Equal(t, int64(3), teachers[0].ID)
	assert.Equal(t, int64(42), teachers[1].ID)

	require.NoError(t, memo.Forget(ctx))
	assert.True(t, client.deleted)
}

func TestRedisTeacherMemoWithoutClient(t *testing.T) {
	memo := NewRedisTeacherMemo(nil, "k", 0, nil)
	teachers, err := memo.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, teachers)
	require.NoError(t, memo.Remember(context.Background(), models.Teacher{ID: 1}))
	require.NoError(t, memo.Forget(context.Background()))
}
