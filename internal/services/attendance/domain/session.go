package domain

import "time"

// GracePeriod is how long after a session's scheduled time members may still
// opt out, and after which the sweep treats the session as expired.
const GracePeriod = 5 * time.Minute

// Member is one roster entry.
type Member struct {
	ID   int64
	Name string
}

// Session is one scheduled meeting occurrence together with the members who
// have not opted out of it.
type Session struct {
	ID          string
	ScheduledAt time.Time
	Members     []string
}

// Deadline is the last instant at which members may opt out.
func (s Session) Deadline() time.Time {
	return s.ScheduledAt.Add(GracePeriod)
}

// AcceptsOptOut reports whether the grace window is still open at now.
// The deadline itself is inclusive.
func (s Session) AcceptsOptOut(now time.Time) bool {
	return !now.After(s.Deadline())
}

// Expired reports whether the sweep should close the session at now.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.Deadline())
}

// HasMember reports whether name is still linked to the session.
func (s Session) HasMember(name string) bool {
	for _, member := range s.Members {
		if member == name {
			return true
		}
	}
	return false
}

// PartitionExpired splits sessions into expired and pending at now,
// preserving order.
func PartitionExpired(sessions []Session, now time.Time) (expired, pending []Session) {
	for _, session := range sessions {
		if session.Expired(now) {
			expired = append(expired, session)
		} else {
			pending = append(pending, session)
		}
	}
	return expired, pending
}
