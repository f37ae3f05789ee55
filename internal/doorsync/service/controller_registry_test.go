package service_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/Portunus/doorsync/internal/doorsync/service"
	"github.com/BrandonDHaskell/Portunus/doorsync/internal/doorsync/types"
)

func TestParseControllerTimestamp(t *testing.T) {
	chicago, err := time.LoadLocation("America/Chicago")
	require.NoError(t, err)

	tests := []struct {
		name    string
		in      string
		loc     *time.Location
		want    time.Time
		wantErr bool
	}{
		{"utc no zone", "2026-02-15 08:00:00", time.UTC, time.Date(2026, 2, 15, 8, 0, 0, 0, time.UTC), false},
		{"zone suffix ignored", "2026-02-15 12:00:00 CST", chicago, time.Date(2026, 2, 15, 18, 0, 0, 0, time.UTC), false},
		{"iana suffix", "2026-07-01 12:00:00 America/Chicago", chicago, time.Date(2026, 7, 1, 17, 0, 0, 0, time.UTC), false},
		{"offset-like suffix", "2026-02-15 08:00:00 UTC+1", time.UTC, time.Date(2026, 2, 15, 8, 0, 0, 0, time.UTC), false},
		{"surrounding space", "  2026-02-15 08:00:00  ", time.UTC, time.Date(2026, 2, 15, 8, 0, 0, 0, time.UTC), false},
		{"too short", "2026-02-15 08:00", time.UTC, time.Time{}, true},
		{"wrong layout", "15/02/2026 08:00:00", time.UTC, time.Time{}, true},
		{"bad suffix", "2026-02-15 08:00:00 +0100", time.UTC, time.Time{}, true},
		{"empty", "", time.UTC, time.Time{}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := service.ParseControllerTimestamp(tc.in, tc.loc)
			if tc.wantErr {
				assert.ErrorIs(t, err, service.ErrMalformedTimestamp)
				return
			}
			require.NoError(t, err)
			assert.True(t, tc.want.Equal(got), "got %s want %s", got, tc.want)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestRegistry_LocationFallback(t *testing.T) {
	reg := service.NewControllerRegistry([]types.Controller{
		{ID: 1, Timezone: "America/Chicago"},
		{ID: 2},
		{ID: 3, Timezone: "Mars/Olympus"},
	}, "Europe/Berlin", silentLogger())

	assert.Equal(t, "America/Chicago", reg.Location(1).String())
	assert.Equal(t, "Europe/Berlin", reg.Location(2).String())
	assert.Equal(t, "Europe/Berlin", reg.Location(3).String())
	assert.Equal(t, time.UTC, reg.Location(99))
}

func TestRegistry_BadFallbackUsesUTC(t *testing.T) {
	reg := service.NewControllerRegistry([]types.Controller{{ID: 1}}, "Nowhere/Land", silentLogger())
	assert.Equal(t, time.UTC, reg.Location(1))
}

func TestRegistry_GetAndList(t *testing.T) {
	reg := service.NewControllerRegistry([]types.Controller{
		{ID: 7, Name: "Seven"},
		{ID: 3, Name: "Three"},
		{ID: 7, Name: "Dup"},
	}, "", silentLogger())

	list := reg.List()
	require.Len(t, list, 2)
	assert.Equal(t, uint32(7), list[0].ID)

	c, err := reg.Get(7)
	require.NoError(t, err)
	assert.Equal(t, "Seven", c.Name)

	_, err = reg.Get(42)
	assert.ErrorIs(t, err, service.ErrUnknownController)
}
