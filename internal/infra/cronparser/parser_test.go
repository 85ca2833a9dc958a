package cronparser_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/snps-steve/bd-selfscan-sub001/internal/infra/cronparser"
)

func TestParser_NextAfter(t *testing.T) {
	t.Parallel()

	p := cronparser.New()

	t.Run("standard spec returns next occurrence", func(t *testing.T) {
		t.Parallel()

		after := time.Date(2026, 2, 15, 7, 0, 0, 0, time.UTC)
		next, err := p.NextAfter("40 7 * * *", "", after)
		require.NoError(t, err)
		require.True(t, next.After(after))
		require.Equal(t, 7, next.Hour())
		require.Equal(t, 40, next.Minute())
	})

	t.Run("with tz uses timezone", func(t *testing.T) {
		t.Parallel()

		after := time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC)
		next, err := p.NextAfter("0 8 * * *", "America/New_York", after)
		require.NoError(t, err)
		require.True(t, next.After(after))
	})

	t.Run("inline CRON_TZ ignores tz param", func(t *testing.T) {
		t.Parallel()

		after := time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC)
		next, err := p.NextAfter("CRON_TZ=UTC 0 14 * * *", "America/New_York", after)
		require.NoError(t, err)
		require.True(t, next.After(after))
		require.Equal(t, 14, next.Hour())
	})

	t.Run("malformed spec returns error", func(t *testing.T) {
		t.Parallel()

		_, err := p.NextAfter("invalid", "", time.Now())
		require.Error(t, err)
	})

	t.Run("every descriptor adds the interval", func(t *testing.T) {
		t.Parallel()

		after := time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC)
		next, err := p.NextAfter("@every 10m", "", after)
		require.NoError(t, err)
		require.Equal(t, after.Add(10*time.Minute), next)
	})

	t.Run("hourly descriptor", func(t *testing.T) {
		t.Parallel()

		after := time.Date(2026, 2, 15, 12, 30, 0, 0, time.UTC)
		next, err := p.NextAfter("@hourly", "", after)
		require.NoError(t, err)
		require.Equal(t, time.Date(2026, 2, 15, 13, 0, 0, 0, time.UTC), next)
	})

	t.Run("empty spec returns error", func(t *testing.T) {
		t.Parallel()

		_, err := p.NextAfter("  ", "", time.Now())
		require.ErrorIs(t, err, cronparser.ErrEmptySpec)
	})
}

func TestParser_Validate(t *testing.T) {
	t.Parallel()

	p := cronparser.New()

	tests := []struct {
		give    string
		wantErr bool
	}{
		{give: "*/10 * * * *"},
		{give: "0 * * * *"},
		{give: "@every 1h"},
		{give: "@daily"},
		{give: "", wantErr: true},
		{give: "61 * * * *", wantErr: true},
		{give: "@every nope", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.give, func(t *testing.T) {
			t.Parallel()

			err := p.Validate(tt.give)
			if tt.wantErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
		})
	}
}
