package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/ecole/core"
	"github.com/trezcool/ecole/core/user"
)

const userColumns = "id, username, email, role, password_hash, created_at, updated_at, last_login"

type userRow struct {
	ID           string    `db:"id"`
	Username     string    `db:"username"`
	Email        string    `db:"email"`
	Role         string    `db:"role"`
	PasswordHash []byte    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
	LastLogin    null.Time `db:"last_login"`
}

type userRepository struct {
	exec core.DBExecutor
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(exec core.DBExecutor) user.Repository {
	return &userRepository{exec: exec}
}

func (repo userRepository) toRow(usr user.User) userRow {
	return userRow{
		ID:           usr.ID,
		Username:     usr.Username,
		Email:        usr.Email,
		Role:         usr.Role,
		PasswordHash: usr.PasswordHash,
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
		LastLogin:    null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}
}

func (repo userRepository) fromRow(r userRow) user.User {
	return user.User{
		ID:           r.ID,
		Username:     r.Username,
		Email:        r.Email,
		Role:         r.Role,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
		LastLogin:    r.LastLogin.Time.UTC(),
	}
}

// trapNoRowsErr maps psql "no rows" err to user.ErrNotFound
func (repo userRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return user.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

// trapUniqueErr maps unique constraint violations to user.ErrUsernameExists or user.ErrEmailExists
func (repo userRepository) trapUniqueErr(err error, msg string) error {
	switch uniqueViolation(err) {
	case "users_username_key":
		return user.ErrUsernameExists
	case "users_email_key":
		return user.ErrEmailExists
	}
	return errors.Wrap(err, msg)
}

func (repo userRepository) CheckUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	q := "SELECT username, email FROM users WHERE (username = ? OR email = ?)"
	args := []interface{}{username, email}
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		q += " AND id NOT IN (?)"
		args = append(args, ids)
	}
	q, args, err := sqlx.In(q+" LIMIT 2", args...)
	if err != nil {
		return errors.Wrap(err, "building uniqueness query")
	}

	var rows []userRow
	if err = sqlx.SelectContext(ctx, repo.exec, &rows, repo.exec.Rebind(q), args...); err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}
	for _, r := range rows {
		if username != "" && r.Username == username {
			return user.ErrUsernameExists
		}
	}
	for _, r := range rows {
		if email != "" && r.Email == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = uuid.New().String()
	q := `INSERT INTO users (` + userColumns + `)
		VALUES (:id, :username, :email, :role, :password_hash, :created_at, :updated_at, :last_login)`
	if _, err := sqlx.NamedExecContext(ctx, repo.exec, q, repo.toRow(usr)); err != nil {
		return user.User{}, repo.trapUniqueErr(err, "inserting user")
	}
	return usr, nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.ID != "" {
		if _, err := uuid.Parse(filter.ID); err != nil {
			return user.User{}, user.ErrNotFound
		}
		conds = append(conds, "id = ?")
		args = append(args, filter.ID)
	}
	if filter.Username != "" {
		conds = append(conds, "username = ?")
		args = append(args, filter.Username)
	}
	if filter.Email != "" {
		conds = append(conds, "email = ?")
		args = append(args, filter.Email)
	}
	if filter.UsernameOrEmail != "" {
		conds = append(conds, "(username = ? OR email = ?)")
		args = append(args, filter.UsernameOrEmail, filter.UsernameOrEmail)
	}
	if len(conds) == 0 {
		return user.User{}, user.ErrNotFound
	}

	q := "SELECT " + userColumns + " FROM users WHERE " + strings.Join(conds, " AND ") + " LIMIT 1"
	var r userRow
	if err := sqlx.GetContext(ctx, repo.exec, &r, repo.exec.Rebind(q), args...); err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "getting user")
	}
	return repo.fromRow(r), nil
}

// validIDs drops the IDs postgres would reject as malformed UUIDs.
func validIDs(ids []string) []string {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err == nil {
			valid = append(valid, id)
		}
	}
	return valid
}

func (repo userRepository) GetUsersByID(ctx context.Context, ids ...string) ([]user.User, error) {
	valid := validIDs(ids)
	if len(valid) == 0 {
		return []user.User{}, nil
	}

	q, args, err := sqlx.In("SELECT "+userColumns+" FROM users WHERE id IN (?) ORDER BY created_at, id", valid)
	if err != nil {
		return nil, errors.Wrap(err, "building users query")
	}
	var rows []userRow
	if err = sqlx.SelectContext(ctx, repo.exec, &rows, repo.exec.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "selecting users")
	}

	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, repo.fromRow(r))
	}
	return users, nil
}

// UpdateUser never touches role nor created_at.
func (repo userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	q := `UPDATE users SET username = :username, email = :email, password_hash = :password_hash,
		updated_at = :updated_at, last_login = :last_login WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, repo.exec, q, repo.toRow(usr))
	if err != nil {
		return user.User{}, repo.trapUniqueErr(err, "updating user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return repo.GetUser(ctx, user.GetFilter{ID: usr.ID})
}

func (repo userRepository) DeleteUsersByID(ctx context.Context, ids ...string) (int, error) {
	valid := validIDs(ids)
	if len(valid) == 0 {
		return 0, nil
	}
	q, args, err := sqlx.In("DELETE FROM users WHERE id IN (?)", valid)
	if err != nil {
		return 0, errors.Wrap(err, "building delete query")
	}
	res, err := repo.exec.ExecContext(ctx, repo.exec.Rebind(q), args...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting users")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "counting deleted users")
	}
	return int(n), nil
}
