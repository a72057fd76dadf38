package muxer

import "time"

const (
	countdownCooldown = time.Second
	countdownRetry    = 500 * time.Millisecond
)

// debouncer limits countdown notifications to one per cooldown. A request arriving
// during the cooldown arms a single retry instead of firing; further requests only
// push the retry back.
type debouncer struct {
	cooldown time.Duration
	retry    time.Duration

	blockedUntil time.Time
	retryAt      time.Time
}

func newDebouncer() *debouncer {
	return &debouncer{
		cooldown: countdownCooldown,
		retry:    countdownRetry,
	}
}

// trigger reports whether the notification fires now.
func (d *debouncer) trigger(now time.Time) bool {
	if now.Before(d.blockedUntil) {
		d.retryAt = now.Add(d.retry)
		return false
	}
	d.fire(now)
	return true
}

// due reports whether an armed retry elapsed, firing it.
func (d *debouncer) due(now time.Time) bool {
	if d.retryAt.IsZero() || now.Before(d.retryAt) {
		return false
	}
	d.fire(now)
	return true
}

// deadline returns when the armed retry elapses.
func (d *debouncer) deadline() (time.Time, bool) {
	return d.retryAt, !d.retryAt.IsZero()
}

func (d *debouncer) fire(now time.Time) {
	d.retryAt = time.Time{}
	d.blockedUntil = now.Add(d.cooldown)
}
