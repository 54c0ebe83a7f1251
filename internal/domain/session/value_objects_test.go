//go:build unit

package session_test

import (
	"testing"

	"groupbuy-coordinator/internal/domain/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus(t *testing.T) {
	t.Run("valid values", func(t *testing.T) {
		for _, value := range []string{"open", "completed", "expired"} {
			status, err := session.NewStatus(value)
			require.NoError(t, err)
			assert.Equal(t, value, status.String())
		}
	})

	t.Run("invalid value", func(t *testing.T) {
		_, err := session.NewStatus("pending")
		assert.Error(t, err)
	})

	t.Run("terminal statuses", func(t *testing.T) {
		assert.False(t, session.StatusOpen.IsTerminal())
		assert.True(t, session.StatusCompleted.IsTerminal())
		assert.True(t, session.StatusExpired.IsTerminal())
	})
}

func TestMoney(t *testing.T) {
	t.Run("accepts zero and positive amounts", func(t *testing.T) {
		zero, err := session.NewMoney(0)
		require.NoError(t, err)
		assert.Equal(t, int64(0), zero.Cents())

		m, err := session.NewMoney(12345)
		require.NoError(t, err)
		assert.Equal(t, int64(12345), m.Cents())
	})

	t.Run("rejects negative amounts", func(t *testing.T) {
		_, err := session.NewMoney(-1)
		assert.Error(t, err)
	})
}

func TestFraction(t *testing.T) {
	t.Run("bounds", func(t *testing.T) {
		_, err := session.NewFraction(0)
		assert.NoError(t, err)

		_, err = session.NewFraction(9999)
		assert.NoError(t, err)

		_, err = session.NewFraction(-1)
		assert.Error(t, err)

		_, err = session.NewFraction(10000)
		assert.Error(t, err)
	})

	t.Run("apply rounds half up exactly once", func(t *testing.T) {
		tests := []struct {
			name     string
			cents    int64
			bps      int32
			expected int64
		}{
			{name: "exact result", cents: 10000, bps: 1000, expected: 9000},
			{name: "half rounds up", cents: 101, bps: 5000, expected: 51},
			{name: "below half rounds down", cents: 999, bps: 1500, expected: 849},
			{name: "zero discount", cents: 777, bps: 0, expected: 777},
			{name: "zero amount", cents: 0, bps: 2500, expected: 0},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				m, err := session.NewMoney(tt.cents)
				require.NoError(t, err)
				f, err := session.NewFraction(tt.bps)
				require.NoError(t, err)

				assert.Equal(t, tt.expected, f.ApplyTo(m).Cents())
			})
		}
	})
}

func TestTierTable(t *testing.T) {
	mustFraction := func(bps int32) session.Fraction {
		f, err := session.NewFraction(bps)
		require.NoError(t, err)
		return f
	}

	tests := []struct {
		name    string
		tiers   []session.Tier
		wantErr bool
	}{
		{
			name: "valid ascending table",
			tiers: []session.Tier{
				{MinParticipants: 3, Discount: mustFraction(1000)},
				{MinParticipants: 5, Discount: mustFraction(2000)},
			},
		},
		{
			name:  "empty table",
			tiers: nil,
		},
		{
			name: "single tier at one participant",
			tiers: []session.Tier{
				{MinParticipants: 1, Discount: mustFraction(500)},
			},
		},
		{
			name: "equal discounts across tiers",
			tiers: []session.Tier{
				{MinParticipants: 2, Discount: mustFraction(1000)},
				{MinParticipants: 4, Discount: mustFraction(1000)},
			},
		},
		{
			name: "threshold below one",
			tiers: []session.Tier{
				{MinParticipants: 0, Discount: mustFraction(1000)},
			},
			wantErr: true,
		},
		{
			name: "duplicate thresholds",
			tiers: []session.Tier{
				{MinParticipants: 3, Discount: mustFraction(1000)},
				{MinParticipants: 3, Discount: mustFraction(2000)},
			},
			wantErr: true,
		},
		{
			name: "unsorted thresholds",
			tiers: []session.Tier{
				{MinParticipants: 5, Discount: mustFraction(2000)},
				{MinParticipants: 3, Discount: mustFraction(1000)},
			},
			wantErr: true,
		},
		{
			name: "decreasing discounts",
			tiers: []session.Tier{
				{MinParticipants: 3, Discount: mustFraction(2000)},
				{MinParticipants: 5, Discount: mustFraction(1000)},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := session.NewTierTable(tt.tiers)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, table.Tiers(), len(tt.tiers))
		})
	}

	t.Run("table copies input slice", func(t *testing.T) {
		tiers := []session.Tier{{MinParticipants: 3, Discount: mustFraction(1000)}}
		table, err := session.NewTierTable(tiers)
		require.NoError(t, err)

		tiers[0].MinParticipants = 99
		assert.Equal(t, 3, table.Tiers()[0].MinParticipants)
	})
}
