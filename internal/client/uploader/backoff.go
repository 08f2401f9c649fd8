package uploader

import "time"

// Backoff is an exponential wait-duration counter with a ceiling.
// Next returns the current wait and doubles the stored value up to the cap;
// Reset restores the base. The uploader keeps two independent instances:
// one for "no work available" and one for "an operation failed".
type Backoff struct {
	base time.Duration
	cap  time.Duration
	cur  time.Duration
}

func NewBackoff(base, cap time.Duration) *Backoff {
	return &Backoff{base: base, cap: cap, cur: base}
}

// Next returns the wait to apply now and advances the counter.
func (b *Backoff) Next() time.Duration {
	d := b.cur
	b.cur *= 2
	if b.cur > b.cap {
		b.cur = b.cap
	}
	return d
}

// Reset restores the counter to its base value.
func (b *Backoff) Reset() {
	b.cur = b.base
}
