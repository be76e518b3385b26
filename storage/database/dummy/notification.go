package dummydb

import (
	"sort"

	"github.com/trezcool/shule/core/notification"
)

type notificationRepository struct {
	db *notificationTable
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db *DB) notification.Repository {
	return &notificationRepository{db: db.notification}
}

func (repo *notificationRepository) queryByRecipient(userID string, unreadOnly bool) []notification.Notification {
	notifs := make([]notification.Notification, 0)
	for _, n := range repo.db.table {
		if n.RecipientID != userID {
			continue
		}
		if unreadOnly && n.IsRead {
			continue
		}
		notifs = append(notifs, *n)
	}
	// newest first
	sort.Slice(notifs, func(i, j int) bool { return notifs[i].CreatedAt.After(notifs[j].CreatedAt) })
	return notifs
}

func (repo *notificationRepository) CreateNotification(n notification.Notification) (notification.Notification, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.table[n.ID] = &n
	return n, nil
}

func (repo *notificationRepository) GetNotificationByID(id string) (notification.Notification, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if n, ok := repo.db.table[id]; ok {
		return *n, nil
	}
	return notification.Notification{}, notification.ErrNotFound
}

func (repo *notificationRepository) QueryByRecipient(userID string) ([]notification.Notification, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.queryByRecipient(userID, false), nil
}

func (repo *notificationRepository) QueryUnreadByRecipient(userID string) ([]notification.Notification, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.queryByRecipient(userID, true), nil
}

func (repo *notificationRepository) SetRead(id string, read bool) (notification.Notification, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	n, ok := repo.db.table[id]
	if !ok {
		return notification.Notification{}, notification.ErrNotFound
	}
	n.IsRead = read
	return *n, nil
}

func (repo *notificationRepository) MarkAllRead(userID string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, n := range repo.db.table {
		if n.RecipientID == userID {
			n.IsRead = true
		}
	}
	return nil
}

type preferencesRepository struct {
	db *prefsTable
}

var _ notification.PreferencesRepository = (*preferencesRepository)(nil) // interface compliance check

func NewPreferencesRepository(db *DB) notification.PreferencesRepository {
	return &preferencesRepository{db: db.prefs}
}

func (repo *preferencesRepository) GetPreferences(userID string) (notification.Preferences, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if p, ok := repo.db.table[userID]; ok {
		return *p, nil
	}
	return notification.Preferences{}, notification.ErrPrefsNotFound
}

func (repo *preferencesRepository) SavePreferences(p notification.Preferences) (notification.Preferences, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.table[p.UserID] = &p
	return p, nil
}
