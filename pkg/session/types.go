// Package session implements the clipboard sharing session store.
// A session is a short-lived, code-addressed container of recent clipboard
// items shared by several machines. Sessions expire after a period of
// inactivity and are swept lazily on access.
package session

import (
	"time"
)

// Item represents one shared clipboard payload within a session.
// Items are immutable once stored.
type Item struct {
	// ID is unique within the session, derived from the session id and a
	// 1-based sequence number assigned at insertion time. Sequence numbers
	// are never reused, even after older items have been trimmed.
	ID string `json:"id"`
	// Content is the clipboard text.
	Content string `json:"content"`
	// Timestamp is when the item was stored.
	Timestamp time.Time `json:"timestamp"`
	// Hostname is the origin machine, "unknown" if the sender did not say.
	Hostname string `json:"hostname"`
}

// Session holds the state of one sharing session.
type Session struct {
	// ID is the session code. Callers must treat it as opaque.
	ID string `json:"session_id"`
	// CreatedAt is set once at creation.
	CreatedAt time.Time `json:"created_at"`
	// LastActivity is stamped on every read or write touching the session.
	LastActivity time.Time `json:"last_activity"`
	// Hostnames lists every distinct client hostname that has touched the
	// session, in first-seen order.
	Hostnames []string `json:"hostnames"`
	// Items holds the most recent clipboard items, oldest first.
	Items []Item `json:"items"`

	// nextSeq is the sequence number the next item will take.
	nextSeq int
}

// Summary is the listing view of a session, without item contents.
type Summary struct {
	SessionID    string    `json:"session_id"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
	Hostnames    []string  `json:"hostnames"`
	ItemCount    int       `json:"item_count"`
}

// summary builds the listing view for a session.
func (s *Session) summary() Summary {
	hostnames := make([]string, len(s.Hostnames))
	copy(hostnames, s.Hostnames)
	return Summary{
		SessionID:    s.ID,
		CreatedAt:    s.CreatedAt,
		LastActivity: s.LastActivity,
		Hostnames:    hostnames,
		ItemCount:    len(s.Items),
	}
}

// addHostname appends hostname if it is non-empty and not already present.
func (s *Session) addHostname(hostname string) {
	if hostname == "" {
		return
	}
	for _, h := range s.Hostnames {
		if h == hostname {
			return
		}
	}
	s.Hostnames = append(s.Hostnames, hostname)
}
