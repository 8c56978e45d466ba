package session

import (
	"testing"
	"time"
)

func TestExpired(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name         string
		lastActivity time.Time
		want         bool
	}{
		{"just active", now, false},
		{"23h idle", now.Add(-23 * time.Hour), false},
		{"exactly at TTL", now.Add(-24 * time.Hour), false},
		{"25h idle", now.Add(-25 * time.Hour), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Expired(tt.lastActivity, now, DefaultTTL); got != tt.want {
				t.Errorf("Expired() = %v, want %v", got, tt.want)
			}
		})
	}
}
