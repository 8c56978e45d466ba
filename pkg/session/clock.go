package session

import "time"

// DefaultTTL is how long a session survives without activity.
const DefaultTTL = 24 * time.Hour

// Expired reports whether a session whose last activity was at lastActivity
// is past its TTL as of now. Both timestamps must come from the same wall
// clock; a backwards system clock change can delay or hasten expiry.
func Expired(lastActivity, now time.Time, ttl time.Duration) bool {
	return now.Sub(lastActivity) > ttl
}
