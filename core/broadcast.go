package core

import "regexp"

type (
	// Subscriber is one live connection's inbox. Send must be safe for
	// concurrent use; it reports delivery failure so a Broadcaster may
	// drop dead members, and must never block indefinitely.
	Subscriber interface {
		Send(f Frame) error
	}

	// Broadcaster fans frames out to named groups of subscribers.
	// Broadcasting to a group with no members is a no-op. Implementations
	// must be safe under concurrent Subscribe/Unsubscribe/Broadcast from
	// independent connection lifecycles.
	Broadcaster interface {
		Subscribe(group string, sub Subscriber)
		Unsubscribe(group string, sub Subscriber)
		Broadcast(group string, f Frame)
	}
)

var unsafeGroupChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// UserGroup returns the personal broadcast group of a user.
func UserGroup(userID string) string {
	return "user_" + unsafeGroupChars.ReplaceAllString(userID, "_")
}

// LogGroup returns the broadcast group of a tailed log. The alias is
// sanitized so the key stays safe for any backing transport.
func LogGroup(alias string) string {
	return "log_" + unsafeGroupChars.ReplaceAllString(alias, "_")
}
