package job

import (
	"errors"
	"time"
)

// ErrInvalidDefaultLease indicates the configured default lease duration is not positive.
var ErrInvalidDefaultLease = errors.New("default lease must be positive")

// LeaseSource identifies how a lease duration was resolved.
type LeaseSource string

const (
	LeaseSourceExplicit LeaseSource = "explicit"
	LeaseSourceDefault  LeaseSource = "default"
	LeaseSourceClamped  LeaseSource = "clamped"
)

const (
	// MinLease is the shortest running lease handed out. Shorter leases would let the
	// reaper requeue a job between two heartbeats.
	MinLease = 5 * time.Second
	// MaxLease bounds how long a crashed worker can keep a target locked.
	MaxLease = time.Hour
)

// LeasePolicy normalises the lease placed on a running job at admission and on heartbeat.
type LeasePolicy struct {
	defaultLease time.Duration
}

// NewLeasePolicy constructs a LeasePolicy with the provided default lease duration.
func NewLeasePolicy(defaultLease time.Duration) (*LeasePolicy, error) {
	if defaultLease <= 0 {
		return nil, ErrInvalidDefaultLease
	}
	return &LeasePolicy{defaultLease: clampLease(defaultLease)}, nil
}

// Default returns the (clamped) default lease duration.
func (p *LeasePolicy) Default() time.Duration {
	if p == nil {
		return 0
	}
	return p.defaultLease
}

// LeaseDecision captures the outcome of resolving a lease request.
type LeaseDecision struct {
	Duration  time.Duration
	Source    LeaseSource
	Requested time.Duration
}

// Seconds returns the lease as whole seconds for storage.
func (d LeaseDecision) Seconds() int {
	return int(d.Duration / time.Second)
}

func (d LeaseDecision) UsedDefault() bool { return d.Source == LeaseSourceDefault }

func (d LeaseDecision) Clamped() bool { return d.Source == LeaseSourceClamped }

// Resolve maps a requested lease to the lease actually applied. Zero selects the default;
// anything outside [MinLease, MaxLease] is clamped and truncated to whole seconds.
func (p *LeasePolicy) Resolve(request time.Duration) LeaseDecision {
	decision := LeaseDecision{Requested: request}
	if p == nil {
		decision.Duration = MinLease
		decision.Source = LeaseSourceClamped
		return decision
	}

	if request == 0 {
		decision.Duration = p.defaultLease
		decision.Source = LeaseSourceDefault
		return decision
	}

	clamped := clampLease(request)
	decision.Duration = clamped
	decision.Source = LeaseSourceExplicit
	if clamped != request.Truncate(time.Second) {
		decision.Source = LeaseSourceClamped
	}
	return decision
}

func clampLease(d time.Duration) time.Duration {
	d = d.Truncate(time.Second)
	switch {
	case d < MinLease:
		return MinLease
	case d > MaxLease:
		return MaxLease
	default:
		return d
	}
}
