package sqlxrepos

import (
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/user"
)

type userRow struct {
	ID           string       `db:"id"`
	Name         string       `db:"name"`
	Username     string       `db:"username"`
	Email        string       `db:"email"`
	IsActive     bool         `db:"is_active"`
	Roles        string       `db:"roles"` // comma-separated
	PasswordHash []byte       `db:"password"`
	CreatedAt    time.Time    `db:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at"`
	LastLogin    sql.NullTime `db:"last_login"`
}

func (r userRow) user() user.User {
	usr := user.User{
		ID:           r.ID,
		Name:         r.Name,
		Username:     r.Username,
		Email:        r.Email,
		IsActive:     r.IsActive,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if r.Roles != "" {
		usr.Roles = strings.Split(r.Roles, ",")
	}
	if r.LastLogin.Valid {
		usr.LastLogin = r.LastLogin.Time
	}
	return usr
}

func newUserRow(usr user.User) userRow {
	row := userRow{
		ID:           usr.ID,
		Name:         usr.Name,
		Username:     usr.Username,
		Email:        usr.Email,
		IsActive:     usr.IsActive,
		Roles:        strings.Join(usr.Roles, ","),
		PasswordHash: usr.PasswordHash,
		CreatedAt:    usr.CreatedAt,
		UpdatedAt:    usr.UpdatedAt,
	}
	if !usr.LastLogin.IsZero() {
		row.LastLogin = sql.NullTime{Time: usr.LastLogin, Valid: true}
	}
	return row
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckUsernameUniqueness(username, email string, excludedUsers ...user.User) error {
	exclIDs := make([]string, 0, len(excludedUsers))
	for _, usr := range excludedUsers {
		exclIDs = append(exclIDs, usr.ID)
	}

	q := `SELECT username, email FROM "user" WHERE (username = $1 OR email = $2)`
	args := []interface{}{username, email}
	if len(exclIDs) > 0 {
		var err error
		q, args, err = sqlx.In(`SELECT username, email FROM "user" WHERE (username = ? OR email = ?) AND id NOT IN (?)`, username, email, exclIDs)
		if err != nil {
			return errors.Wrap(err, "building uniqueness query")
		}
		q = repo.db.Rebind(q)
	}

	var rows []userRow
	if err := repo.db.Select(&rows, q, args...); err != nil {
		return errors.Wrap(err, "checking uniqueness")
	}
	for _, row := range rows {
		if row.Username == username {
			return user.ErrUsernameExists
		}
		if row.Email == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(usr user.User) (user.User, error) {
	q := `INSERT INTO "user" (id, name, username, email, is_active, roles, password, created_at, updated_at, last_login)
		VALUES (:id, :name, :username, :email, :is_active, :roles, :password, :created_at, :updated_at, :last_login)`
	if _, err := repo.db.NamedExec(q, newUserRow(usr)); err != nil {
		return user.User{}, errors.Wrap(err, "creating user")
	}
	return usr, nil
}

func (repo *userRepository) GetUserByID(id string) (user.User, error) {
	var row userRow
	if err := repo.db.Get(&row, `SELECT * FROM "user" WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "getting user")
	}
	return row.user(), nil
}

func (repo *userRepository) GetUserByUsernameOrEmail(username string) (user.User, error) {
	var row userRow
	if err := repo.db.Get(&row, `SELECT * FROM "user" WHERE username = $1 OR email = $1`, username); err != nil {
		if err == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "getting user")
	}
	return row.user(), nil
}

func (repo *userRepository) UpdateLastLogin(usr user.User) (user.User, error) {
	res, err := repo.db.Exec(`UPDATE "user" SET last_login = $1 WHERE id = $2`, usr.LastLogin, usr.ID)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating last login")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}
