package model

// Session identifies one mining round. Every worker message carries the
// session ID of the round that scheduled it; workers drop any message whose
// ID does not match the current session. The struct is immutable once
// published, so workers may read it through an atomic pointer without
// locking.
type Session struct {
	ID        string
	Timestamp int64
}
