package session

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginRestoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()

	require.NoError(t, NewStore(kv).Login(ctx, Driver{ID: "D1"}))

	// A fresh store over the same storage stands in for a process restart
	restarted := NewStore(kv)
	_, ok := restarted.Current()
	assert.False(t, ok)

	sess, ok, err := restarted.Restore(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Driver{ID: "D1"}, sess)

	current, ok := restarted.Current()
	require.True(t, ok)
	assert.Equal(t, Record{Role: RoleDriver, ID: "D1"}, ToRecord(current))
}

func TestPersistedFormat(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()

	require.NoError(t, NewStore(kv).Login(ctx, Admin{}))

	raw, ok, err := kv.Get(ctx, StorageKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"role":"ADMIN"}`, raw)

	require.NoError(t, NewStore(kv).Login(ctx, Driver{ID: "D2"}))
	raw, _, _ = kv.Get(ctx, StorageKey)
	var rec Record
	require.NoError(t, json.Unmarshal([]byte(raw), &rec))
	assert.Equal(t, Record{Role: RoleDriver, ID: "D2"}, rec)
}

func TestLogoutClearsBoth(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	s := NewStore(kv)

	require.NoError(t, s.Login(ctx, Admin{}))
	require.NoError(t, s.Logout(ctx))

	_, ok := s.Current()
	assert.False(t, ok)

	_, ok, err := NewStore(kv).Restore(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRestoreRejectsCorruptRecord(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	require.NoError(t, kv.Set(ctx, StorageKey, `{"role":"DRIVER"}`))

	_, ok, err := NewStore(kv).Restore(ctx)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrInvalidSession)

	require.NoError(t, kv.Set(ctx, StorageKey, `not json`))
	_, _, err = NewStore(kv).Restore(ctx)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestMatch(t *testing.T) {
	describe := func(s Session) string {
		return Match(s,
			func(Admin) string { return "admin" },
			func(d Driver) string { return "driver " + d.ID },
		)
	}
	assert.Equal(t, "admin", describe(Admin{}))
	assert.Equal(t, "driver D3", describe(Driver{ID: "D3"}))
}

func TestNew(t *testing.T) {
	_, err := New("MANAGER", "")
	assert.ErrorIs(t, err, ErrInvalidSession)

	s, err := New(RoleAdmin, "ignored")
	require.NoError(t, err)
	assert.Equal(t, Admin{}, s)
}

func TestMemoryDevicesAreIsolated(t *testing.T) {
	ctx := context.Background()
	devices := NewMemoryDevices()

	require.NoError(t, NewStore(devices.Device("tab-a")).Login(ctx, Admin{}))

	_, ok, err := NewStore(devices.Device("tab-b")).Restore(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	sess, ok, err := NewStore(devices.Device("tab-a")).Restore(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, RoleAdmin, sess.Role())
}
