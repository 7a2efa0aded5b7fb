package job

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLeasePolicy(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		policy, err := NewLeasePolicy(30 * time.Second)
		require.NoError(t, err)
		assert.Equal(t, 30*time.Second, policy.Default())
	})

	t.Run("short default is raised to the minimum", func(t *testing.T) {
		policy, err := NewLeasePolicy(time.Second)
		require.NoError(t, err)
		assert.Equal(t, MinLease, policy.Default())
	})

	t.Run("invalid default lease", func(t *testing.T) {
		policy, err := NewLeasePolicy(0)
		require.ErrorIs(t, err, ErrInvalidDefaultLease)
		assert.Nil(t, policy)
	})
}

func TestLeasePolicy_Resolve(t *testing.T) {
	policy, err := NewLeasePolicy(30 * time.Second)
	require.NoError(t, err)

	tests := []struct {
		name    string
		request time.Duration
		want    time.Duration
		source  LeaseSource
		seconds int
	}{
		{name: "explicit", request: 45 * time.Second, want: 45 * time.Second, source: LeaseSourceExplicit, seconds: 45},
		{name: "zero uses default", request: 0, want: 30 * time.Second, source: LeaseSourceDefault, seconds: 30},
		{name: "sub-second truncation is not clamping", request: 45*time.Second + 300*time.Millisecond, want: 45 * time.Second, source: LeaseSourceExplicit, seconds: 45},
		{name: "below minimum", request: 500 * time.Millisecond, want: MinLease, source: LeaseSourceClamped, seconds: 5},
		{name: "negative", request: -5 * time.Second, want: MinLease, source: LeaseSourceClamped, seconds: 5},
		{name: "above maximum", request: 3 * time.Hour, want: MaxLease, source: LeaseSourceClamped, seconds: 3600},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := policy.Resolve(tt.request)
			assert.Equal(t, tt.want, decision.Duration)
			assert.Equal(t, tt.source, decision.Source)
			assert.Equal(t, tt.seconds, decision.Seconds())
			assert.Equal(t, tt.request, decision.Requested)
		})
	}

	t.Run("nil policy clamps", func(t *testing.T) {
		var p *LeasePolicy
		decision := p.Resolve(time.Minute)
		assert.True(t, decision.Clamped())
		assert.Equal(t, MinLease, decision.Duration)
	})
}
