package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemory_RoundTrip(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	payload, found, err := m.Get(ctx, Key("market", "ACME"))
	require.NoError(t, err)
	require.False(t, found)
	require.Nil(t, payload)

	require.NoError(t, m.Set(ctx, Key("market", "ACME"), []byte(`{"ticker":"ACME"}`), time.Minute))

	payload, found, err = m.Get(ctx, Key("market", "ACME"))
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte(`{"ticker":"ACME"}`), payload)
}

func TestMemory_NegativeEntry(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, Key("sec", "GHOST"), nil, time.Minute))

	payload, found, err := m.Get(ctx, Key("sec", "GHOST"))
	require.NoError(t, err)
	require.True(t, found, "negative entry should count as found")
	require.Nil(t, payload)
}

func TestMemory_EmptyPayloadIsNotNegative(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "k", []byte{}, time.Minute))

	payload, found, err := m.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)
	require.NotNil(t, payload)
	require.Empty(t, payload)
}

func TestMemory_Expiry(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	m := NewMemory().WithClock(func() time.Time { return now })
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "k", []byte("v"), time.Minute))

	_, found, err := m.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)

	now = now.Add(2 * time.Minute)

	_, found, err = m.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, found)
	require.Equal(t, 0, m.Len(), "expired entry should be dropped on read")
}

func TestMemory_ZeroTTLNeverExpires(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	m := NewMemory().WithClock(func() time.Time { return now })
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "k", []byte("v"), 0))

	now = now.Add(1000 * time.Hour)

	_, found, err := m.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)
}

func TestMemory_OverwriteReplacesEntry(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "k", []byte("old"), time.Minute))
	require.NoError(t, m.Set(ctx, "k", nil, time.Minute))

	payload, found, err := m.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)
	require.Nil(t, payload, "overwrite with negative should stick")
}

func TestKey(t *testing.T) {
	require.Equal(t, "aperture:market:ACME", Key("market", "ACME"))
	require.Equal(t, "aperture:sec:BOLT", Key("sec", "BOLT"))
}
