package dummydb

import (
	"sync"

	"github.com/trezcool/shule/core/notification"
	"github.com/trezcool/shule/core/user"
)

type (
	DB struct {
		user         *userTable
		notification *notificationTable
		prefs        *prefsTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	notificationTable struct {
		sync.RWMutex
		table map[string]*notification.Notification
	}

	prefsTable struct {
		sync.RWMutex
		table map[string]*notification.Preferences
	}
)

func Open() (*DB, error) {
	db := &DB{
		user:         &userTable{table: make(map[string]*user.User)},
		notification: &notificationTable{table: make(map[string]*notification.Notification)},
		prefs:        &prefsTable{table: make(map[string]*notification.Preferences)},
	}
	return db, nil
}
