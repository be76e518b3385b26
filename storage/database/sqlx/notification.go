package sqlxrepos

import (
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/notification"
)

type notificationRow struct {
	ID          string    `db:"id"`
	RecipientID string    `db:"recipient_id"`
	Message     string    `db:"message"`
	Type        string    `db:"notification_type"`
	CreatedAt   time.Time `db:"created_at"`
	IsRead      bool      `db:"is_read"`
	ObjectKind  string    `db:"object_kind"`
	ObjectID    string    `db:"object_id"`
}

func (r notificationRow) notification() notification.Notification {
	return notification.Notification{
		ID:          r.ID,
		RecipientID: r.RecipientID,
		Message:     r.Message,
		Type:        r.Type,
		CreatedAt:   r.CreatedAt,
		IsRead:      r.IsRead,
		ObjectKind:  r.ObjectKind,
		ObjectID:    r.ObjectID,
	}
}

func newNotificationRow(n notification.Notification) notificationRow {
	return notificationRow{
		ID:          n.ID,
		RecipientID: n.RecipientID,
		Message:     n.Message,
		Type:        n.Type,
		CreatedAt:   n.CreatedAt,
		IsRead:      n.IsRead,
		ObjectKind:  n.ObjectKind,
		ObjectID:    n.ObjectID,
	}
}

type notificationRepository struct {
	db *sqlx.DB
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db *sqlx.DB) notification.Repository {
	return &notificationRepository{db: db}
}

func (repo *notificationRepository) CreateNotification(n notification.Notification) (notification.Notification, error) {
	q := `INSERT INTO notification (id, recipient_id, message, notification_type, created_at, is_read, object_kind, object_id)
		VALUES (:id, :recipient_id, :message, :notification_type, :created_at, :is_read, :object_kind, :object_id)`
	if _, err := repo.db.NamedExec(q, newNotificationRow(n)); err != nil {
		return notification.Notification{}, errors.Wrap(err, "creating notification")
	}
	return n, nil
}

func (repo *notificationRepository) GetNotificationByID(id string) (notification.Notification, error) {
	var row notificationRow
	if err := repo.db.Get(&row, `SELECT * FROM notification WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return notification.Notification{}, notification.ErrNotFound
		}
		return notification.Notification{}, errors.Wrap(err, "getting notification")
	}
	return row.notification(), nil
}

func (repo *notificationRepository) queryByRecipient(q, userID string) ([]notification.Notification, error) {
	var rows []notificationRow
	if err := repo.db.Select(&rows, q, userID); err != nil {
		return nil, errors.Wrap(err, "querying notifications")
	}
	notifs := make([]notification.Notification, 0, len(rows))
	for _, row := range rows {
		notifs = append(notifs, row.notification())
	}
	return notifs, nil
}

func (repo *notificationRepository) QueryByRecipient(userID string) ([]notification.Notification, error) {
	return repo.queryByRecipient(`SELECT * FROM notification WHERE recipient_id = $1 ORDER BY created_at DESC`, userID)
}

func (repo *notificationRepository) QueryUnreadByRecipient(userID string) ([]notification.Notification, error) {
	return repo.queryByRecipient(`SELECT * FROM notification WHERE recipient_id = $1 AND NOT is_read ORDER BY created_at DESC`, userID)
}

func (repo *notificationRepository) SetRead(id string, read bool) (notification.Notification, error) {
	var row notificationRow
	q := `UPDATE notification SET is_read = $1 WHERE id = $2 RETURNING *`
	if err := repo.db.Get(&row, q, read, id); err != nil {
		if err == sql.ErrNoRows {
			return notification.Notification{}, notification.ErrNotFound
		}
		return notification.Notification{}, errors.Wrap(err, "updating notification")
	}
	return row.notification(), nil
}

func (repo *notificationRepository) MarkAllRead(userID string) error {
	if _, err := repo.db.Exec(`UPDATE notification SET is_read = TRUE WHERE recipient_id = $1 AND NOT is_read`, userID); err != nil {
		return errors.Wrap(err, "updating notifications")
	}
	return nil
}

type prefsRow struct {
	UserID                    string `db:"user_id"`
	EnableSchedule            bool   `db:"enable_schedule"`
	EnableMessages            bool   `db:"enable_messages"`
	EnableAssignmentNew       bool   `db:"enable_assignment_new"`
	EnableAssignmentDue       bool   `db:"enable_assignment_due"`
	EnableAssignmentSubmitted bool   `db:"enable_assignment_submitted"`
	EnableAssignmentGraded    bool   `db:"enable_assignment_graded"`
	EnableGradeNew            bool   `db:"enable_grade_new"`
	EnableSystem              bool   `db:"enable_system"`
}

func (r prefsRow) preferences() notification.Preferences {
	return notification.Preferences(r)
}

type preferencesRepository struct {
	db *sqlx.DB
}

var _ notification.PreferencesRepository = (*preferencesRepository)(nil) // interface compliance check

func NewPreferencesRepository(db *sqlx.DB) notification.PreferencesRepository {
	return &preferencesRepository{db: db}
}

func (repo *preferencesRepository) GetPreferences(userID string) (notification.Preferences, error) {
	var row prefsRow
	if err := repo.db.Get(&row, `SELECT * FROM notification_preferences WHERE user_id = $1`, userID); err != nil {
		if err == sql.ErrNoRows {
			return notification.Preferences{}, notification.ErrPrefsNotFound
		}
		return notification.Preferences{}, errors.Wrap(err, "getting preferences")
	}
	return row.preferences(), nil
}

func (repo *preferencesRepository) SavePreferences(p notification.Preferences) (notification.Preferences, error) {
	q := `INSERT INTO notification_preferences (
			user_id, enable_schedule, enable_messages, enable_assignment_new, enable_assignment_due,
			enable_assignment_submitted, enable_assignment_graded, enable_grade_new, enable_system
		) VALUES (
			:user_id, :enable_schedule, :enable_messages, :enable_assignment_new, :enable_assignment_due,
			:enable_assignment_submitted, :enable_assignment_graded, :enable_grade_new, :enable_system
		) ON CONFLICT (user_id) DO UPDATE SET
			enable_schedule = EXCLUDED.enable_schedule,
			enable_messages = EXCLUDED.enable_messages,
			enable_assignment_new = EXCLUDED.enable_assignment_new,
			enable_assignment_due = EXCLUDED.enable_assignment_due,
			enable_assignment_submitted = EXCLUDED.enable_assignment_submitted,
			enable_assignment_graded = EXCLUDED.enable_assignment_graded,
			enable_grade_new = EXCLUDED.enable_grade_new,
			enable_system = EXCLUDED.enable_system`
	if _, err := repo.db.NamedExec(q, prefsRow(p)); err != nil {
		return notification.Preferences{}, errors.Wrap(err, "saving preferences")
	}
	return p, nil
}
