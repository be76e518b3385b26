package notification

import (
	"time"
)

// Notification types. The values are part of the wire and storage contract.
const (
	TypeSchedule            = "SCHEDULE"
	TypeMessage             = "MESSAGE"
	TypeAssignmentNew       = "ASSIGNMENT_NEW"
	TypeAssignmentDue       = "ASSIGNMENT_DUE"
	TypeAssignmentSubmitted = "ASSIGNMENT_SUBMITTED"
	TypeAssignmentGraded    = "ASSIGNMENT_GRADED"
	TypeGradeNew            = "GRADE_NEW"
	TypeSystem              = "SYSTEM"
)

var AllTypes = []string{
	TypeSchedule,
	TypeMessage,
	TypeAssignmentNew,
	TypeAssignmentDue,
	TypeAssignmentSubmitted,
	TypeAssignmentGraded,
	TypeGradeNew,
	TypeSystem,
}

type (
	// RelatedObject is a weak, lookup-only reference to the entity a
	// notification is about. It may resolve to nothing if the target
	// was deleted since.
	RelatedObject struct {
		Kind string `json:"kind"`
		ID   string `json:"id"`
	}

	Notification struct {
		ID          string    `json:"id"`
		RecipientID string    `json:"recipient"`
		Message     string    `json:"message"`
		Type        string    `json:"notification_type"`
		CreatedAt   time.Time `json:"created_at"` // UTC
		IsRead      bool      `json:"is_read"`
		ObjectKind  string    `json:"object_kind,omitempty"`
		ObjectID    string    `json:"object_id,omitempty"`
	}

	// Preferences holds one enable flag per notification type,
	// one row per user, all flags defaulting to true.
	Preferences struct {
		UserID                    string `json:"-"`
		EnableSchedule            bool   `json:"enable_schedule"`
		EnableMessages            bool   `json:"enable_messages"`
		EnableAssignmentNew       bool   `json:"enable_assignment_new"`
		EnableAssignmentDue       bool   `json:"enable_assignment_due"`
		EnableAssignmentSubmitted bool   `json:"enable_assignment_submitted"`
		EnableAssignmentGraded    bool   `json:"enable_assignment_graded"`
		EnableGradeNew            bool   `json:"enable_grade_new"`
		EnableSystem              bool   `json:"enable_system"`
	}
)

func (n Notification) Related() *RelatedObject {
	if n.ObjectKind == "" || n.ObjectID == "" {
		return nil
	}
	return &RelatedObject{Kind: n.ObjectKind, ID: n.ObjectID}
}

// DefaultPreferences returns a user's preferences with every type enabled.
func DefaultPreferences(userID string) Preferences {
	return Preferences{
		UserID:                    userID,
		EnableSchedule:            true,
		EnableMessages:            true,
		EnableAssignmentNew:       true,
		EnableAssignmentDue:       true,
		EnableAssignmentSubmitted: true,
		EnableAssignmentGraded:    true,
		EnableGradeNew:            true,
		EnableSystem:              true,
	}
}

// IsEnabled reports whether notifications of the given type are enabled.
// Unrecognized types fail open: they are considered enabled so that types
// added later are delivered until the user opts out. It never errors.
func (p Preferences) IsEnabled(notificationType string) bool {
	switch notificationType {
	case TypeSchedule:
		return p.EnableSchedule
	case TypeMessage:
		return p.EnableMessages
	case TypeAssignmentNew:
		return p.EnableAssignmentNew
	case TypeAssignmentDue:
		return p.EnableAssignmentDue
	case TypeAssignmentSubmitted:
		return p.EnableAssignmentSubmitted
	case TypeAssignmentGraded:
		return p.EnableAssignmentGraded
	case TypeGradeNew:
		return p.EnableGradeNew
	case TypeSystem:
		return p.EnableSystem
	default:
		return true
	}
}
