package notification

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/user"
)

var (
	// errors
	ErrNotFound         = errors.New("notification not found")
	ErrPrefsNotFound    = errors.New("notification preferences not found")
	errEmptyMessage     = errors.New("notification message cannot be empty")
	errEmptyRecipientID = errors.New("notification recipient is required")
)

type (
	Repository interface {
		CreateNotification(n Notification) (Notification, error)
		GetNotificationByID(id string) (Notification, error)
		// QueryByRecipient returns the recipient's notifications, newest first.
		QueryByRecipient(userID string) ([]Notification, error)
		// QueryUnreadByRecipient returns the recipient's unread notifications, newest first.
		QueryUnreadByRecipient(userID string) ([]Notification, error)
		SetRead(id string, read bool) (Notification, error)
		MarkAllRead(userID string) error
	}

	PreferencesRepository interface {
		GetPreferences(userID string) (Preferences, error)
		SavePreferences(p Preferences) (Preferences, error)
	}

	ServiceInterface interface {
		Dispatch(recipient user.User, message, notificationType string, related *RelatedObject) error
		DispatchToAll(recipients []user.User, message, notificationType string, related *RelatedObject)
		Query(usr user.User) ([]Notification, error)
		Unread(usr user.User) ([]Notification, error)
		MarkRead(usr user.User, id string, read bool) (Notification, error)
		MarkAllRead(usr user.User) error
		EnsurePreferences(usr user.User) (Preferences, error)
		UpdatePreferences(usr user.User, p Preferences) (Preferences, error)
	}

	service struct {
		repo   Repository
		prefs  PreferencesRepository
		broker core.Broadcaster
		logger core.Logger
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(repo Repository, prefs PreferencesRepository, broker core.Broadcaster, logger core.Logger) ServiceInterface {
	return &service{
		repo:   repo,
		prefs:  prefs,
		broker: broker,
		logger: logger,
	}
}

// Dispatch persists a notification for the recipient and pushes it to their
// live connections. Inactive recipients and disabled types are silent no-ops:
// no record is created and nothing is broadcast. The broadcast itself is
// fire-and-forget; the persisted record stays the durable source of truth.
func (svc *service) Dispatch(recipient user.User, message, notificationType string, related *RelatedObject) error {
	if recipient.ID == "" {
		return core.NewValidationError(errEmptyRecipientID)
	}
	if core.CleanString(message) == "" {
		return core.NewValidationError(errEmptyMessage)
	}

	if !recipient.IsActive {
		svc.logger.Debug(fmt.Sprintf("skipping notification to inactive user %s", recipient.ID))
		return nil
	}

	prefs, err := svc.EnsurePreferences(recipient)
	if err != nil {
		return errors.Wrap(err, "ensuring preferences")
	}
	if !prefs.IsEnabled(notificationType) {
		svc.logger.Debug(fmt.Sprintf("notifications %q disabled for user %s", notificationType, recipient.ID))
		return nil
	}

	n := Notification{
		ID:          uuid.New().String(),
		RecipientID: recipient.ID,
		Message:     message,
		Type:        notificationType,
		CreatedAt:   time.Now().UTC(),
		IsRead:      false,
	}
	if related != nil {
		n.ObjectKind = related.Kind
		n.ObjectID = related.ID
	}

	n, err = svc.repo.CreateNotification(n)
	if err != nil {
		return errors.Wrap(err, "creating notification")
	}

	// transport failures must not fail the dispatch; the row is already saved
	svc.broker.Broadcast(core.UserGroup(recipient.ID), core.Frame{
		Type:    core.FrameNotification,
		Payload: n,
	})
	return nil
}

// DispatchToAll fans a notification out to many recipients, skipping and
// logging per-recipient failures.
func (svc *service) DispatchToAll(recipients []user.User, message, notificationType string, related *RelatedObject) {
	for _, recipient := range recipients {
		if err := svc.Dispatch(recipient, message, notificationType, related); err != nil {
			svc.logger.Error(
				fmt.Sprintf("dispatching %s notification to user %s", notificationType, recipient.ID),
				err, recipient,
			)
		}
	}
}

func (svc *service) Query(usr user.User) ([]Notification, error) {
	return svc.repo.QueryByRecipient(usr.ID)
}

func (svc *service) Unread(usr user.User) ([]Notification, error) {
	return svc.repo.QueryUnreadByRecipient(usr.ID)
}

// MarkRead toggles the read flag, the only mutable field of a notification.
// Users may only toggle their own notifications.
func (svc *service) MarkRead(usr user.User, id string, read bool) (Notification, error) {
	n, err := svc.repo.GetNotificationByID(id)
	if err != nil {
		return Notification{}, err
	}
	if n.RecipientID != usr.ID {
		return Notification{}, ErrNotFound
	}
	return svc.repo.SetRead(id, read)
}

func (svc *service) MarkAllRead(usr user.User) error {
	return svc.repo.MarkAllRead(usr.ID)
}

// EnsurePreferences returns the user's preferences, lazily creating the
// default (all-enabled) row on first access.
func (svc *service) EnsurePreferences(usr user.User) (Preferences, error) {
	prefs, err := svc.prefs.GetPreferences(usr.ID)
	if err == nil {
		return prefs, nil
	}
	if errors.Cause(err) != ErrPrefsNotFound {
		return Preferences{}, err
	}
	return svc.prefs.SavePreferences(DefaultPreferences(usr.ID))
}

func (svc *service) UpdatePreferences(usr user.User, p Preferences) (Preferences, error) {
	p.UserID = usr.ID
	return svc.prefs.SavePreferences(p)
}
