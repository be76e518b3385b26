package database

import (
	"fmt"
	"net/url"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

func open(dbName string, admin bool, conf *core.Config) (*sqlx.DB, error) {
	user := url.UserPassword(conf.Database.User, conf.Database.Password)
	if admin && conf.Database.AdminUser != "" {
		user = url.UserPassword(conf.Database.AdminUser, conf.Database.AdminPassword)
	}

	sslMode := "require"
	if conf.Database.DisableTLS {
		sslMode = "disable"
	}
	q := make(url.Values)
	q.Set("sslmode", sslMode)
	q.Set("timezone", "utc")

	u := url.URL{
		Scheme:   conf.Database.Engine,
		User:     user,
		Host:     conf.Database.Address(),
		Path:     dbName,
		RawQuery: q.Encode(),
	}
	return sqlx.Open(conf.Database.Engine, u.String())
}

func Open(conf *core.Config) (*sqlx.DB, error) {
	return open(conf.Database.Name, false, conf)
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(db *sqlx.DB) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		err = db.Ping()
		if err == nil {
			break
		}
		time.Sleep(time.Duration(attempts) * 100 * time.Millisecond)
	}

	if err != nil {
		return errors.Wrap(err, "DB ping timeout")
	}
	return nil
}

func createAppUser(db *sqlx.DB, conf *core.Config) error {
	if conf.Database.User == "" {
		return nil
	}

	// check if app user exists
	var exists bool
	rows, err := db.Query(fmt.Sprintf("SELECT true FROM pg_roles WHERE rolname='%s'", conf.Database.User))
	if err != nil {
		return errors.Wrap(err, "checking app user")
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		if err = rows.Scan(&exists); err != nil {
			return errors.Wrap(err, "checking app user")
		}
	}
	if err = rows.Err(); err != nil {
		return errors.Wrap(err, "checking app user")
	}

	// create app user if not exist
	if !exists {
		q := fmt.Sprintf("CREATE USER %s CREATEDB ENCRYPTED PASSWORD '%s'", conf.Database.User, conf.Database.Password)
		if _, err = db.Exec(q); err != nil {
			return errors.Wrap(err, "creating app user")
		}
	}
	return nil
}

func createDB(db *sqlx.DB, conf *core.Config) error {
	// check if DB exists
	var exists bool
	rows, err := db.Query(fmt.Sprintf("SELECT true FROM pg_database WHERE datname='%s'", conf.Database.Name))
	if err != nil {
		return errors.Wrap(err, "checking DB")
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		if err = rows.Scan(&exists); err != nil {
			return errors.Wrap(err, "checking DB")
		}
	}
	if err = rows.Err(); err != nil {
		return errors.Wrap(err, "checking DB")
	}

	// create DB if not exist
	if !exists {
		if _, err = db.Exec(fmt.Sprintf("CREATE DATABASE %s", conf.Database.Name)); err != nil {
			return errors.Wrap(err, "creating database")
		}
	}
	return nil
}

func CreateIfNotExist(conf *core.Config) error {
	// connect as admin
	db, err := open("postgres", true, conf)
	if err != nil {
		return errors.Wrap(err, "opening database")
	}

	if err = ping(db); err != nil {
		return errors.Wrap(err, "pinging database")
	}

	if err = createAppUser(db, conf); err != nil {
		return errors.Wrap(err, "creating app user")
	}
	defer func() { _ = db.Close() }()

	// create DB as app user
	db, err = open("postgres", false, conf)
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	if err = createDB(db, conf); err != nil {
		return errors.Wrap(err, "creating database")
	}
	defer func() { _ = db.Close() }()
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS "user" (
		id          UUID PRIMARY KEY,
		name        TEXT NOT NULL DEFAULT '',
		username    TEXT NOT NULL UNIQUE,
		email       TEXT NOT NULL UNIQUE,
		is_active   BOOLEAN NOT NULL DEFAULT TRUE,
		roles       TEXT NOT NULL DEFAULT '',
		password    BYTEA,
		created_at  TIMESTAMPTZ NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL,
		last_login  TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS notification (
		id                UUID PRIMARY KEY,
		recipient_id      UUID NOT NULL REFERENCES "user" (id) ON DELETE CASCADE,
		message           TEXT NOT NULL,
		notification_type TEXT NOT NULL,
		created_at        TIMESTAMPTZ NOT NULL,
		is_read           BOOLEAN NOT NULL DEFAULT FALSE,
		object_kind       TEXT NOT NULL DEFAULT '',
		object_id         TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS notification_recipient_idx ON notification (recipient_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS notification_preferences (
		user_id                      UUID PRIMARY KEY REFERENCES "user" (id) ON DELETE CASCADE,
		enable_schedule              BOOLEAN NOT NULL DEFAULT TRUE,
		enable_messages              BOOLEAN NOT NULL DEFAULT TRUE,
		enable_assignment_new        BOOLEAN NOT NULL DEFAULT TRUE,
		enable_assignment_due        BOOLEAN NOT NULL DEFAULT TRUE,
		enable_assignment_submitted  BOOLEAN NOT NULL DEFAULT TRUE,
		enable_assignment_graded     BOOLEAN NOT NULL DEFAULT TRUE,
		enable_grade_new             BOOLEAN NOT NULL DEFAULT TRUE,
		enable_system                BOOLEAN NOT NULL DEFAULT TRUE
	)`,
}

// Migrate applies the schema. Statements are idempotent so this is safe to
// run on every startup.
func Migrate(db *sqlx.DB) error {
	if err := ping(db); err != nil {
		return errors.Wrap(err, "pinging database")
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return errors.Wrap(err, "migrating database")
		}
	}
	return nil
}
