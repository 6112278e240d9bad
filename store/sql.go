package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/MrEthical07/passport"
)

// DBTX is the subset of database/sql used by SQLStore. *sql.DB and *sql.Tx satisfy it.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const (
	findPrincipalQuery = `SELECT user_id, username, password, salt, status, nick_name, email, mobile, sex, avatar, description, create_time, last_login_time
FROM t_user
WHERE username = ?`

	touchLastLoginQuery = `UPDATE t_user SET last_login_time = ? WHERE username = ?`

	rolesOfQuery = `SELECT r.role_name
FROM t_role r
JOIN t_user_role ur ON ur.role_id = r.role_id
JOIN t_user u ON u.user_id = ur.user_id
WHERE u.username = ?
ORDER BY r.role_name`

	permissionsOfQuery = `SELECT DISTINCT m.perms
FROM t_menu m
JOIN t_role_menu rm ON rm.menu_id = m.menu_id
JOIN t_user_role ur ON ur.role_id = rm.role_id
JOIN t_user u ON u.user_id = ur.user_id
WHERE u.username = ? AND m.perms IS NOT NULL
ORDER BY m.perms`
)

// SQLStore reads principals, roles and permissions from the console schema.
type SQLStore struct {
	db      DBTX
	dialect Dialect
	logger  *slog.Logger
}

// NewSQLStore returns a store over db. A nil logger discards output.
func NewSQLStore(db DBTX, dialect Dialect, logger *slog.Logger) *SQLStore {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &SQLStore{
		db:      db,
		dialect: dialect,
		logger:  logger.With("component", "store"),
	}
}

func (s *SQLStore) query(q string) string {
	return rebind(s.dialect, q)
}

// FindByUsername returns the principal and its role names.
func (s *SQLStore) FindByUsername(ctx context.Context, username string) (*passport.Principal, error) {
	s.logger.Debug("sql", "op", "select", "table", "t_user")

	var (
		p                                             passport.Principal
		status                                        string
		nick, email, mobile, sex, avatar, description sql.NullString
		createdAt, lastLoginAt                        sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, s.query(findPrincipalQuery), username).Scan(
		&p.ID, &p.Username, &p.PasswordHash, &p.Salt, &status,
		&nick, &email, &mobile, &sex, &avatar, &description,
		&createdAt, &lastLoginAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, passport.ErrPrincipalNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	p.Status = passport.Status(strings.TrimSpace(status))
	p.Nickname = nick.String
	p.Email = email.String
	p.Mobile = mobile.String
	p.Sex = sex.String
	p.Avatar = avatar.String
	p.Description = description.String
	p.CreatedAt = createdAt.Time
	p.LastLoginAt = lastLoginAt.Time

	roles, err := s.RolesOf(ctx, p.Username)
	if err != nil {
		return nil, err
	}
	p.Roles = roles

	return &p, nil
}

// TouchLastLogin records at as the last login time of username.
func (s *SQLStore) TouchLastLogin(ctx context.Context, username string, at time.Time) error {
	s.logger.Debug("sql", "op", "update", "table", "t_user")

	res, err := s.db.ExecContext(ctx, s.query(touchLastLoginQuery), at.UTC(), username)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return passport.ErrPrincipalNotFound
	}
	return nil
}

// RolesOf returns the role names assigned to username.
func (s *SQLStore) RolesOf(ctx context.Context, username string) ([]string, error) {
	return s.strings(ctx, rolesOfQuery, username)
}

// PermissionsOf returns the permission strings of every menu granted to the roles of
// username. A menu may list several comma-separated permissions.
func (s *SQLStore) PermissionsOf(ctx context.Context, username string) ([]string, error) {
	raw, err := s.strings(ctx, permissionsOfQuery, username)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(raw))
	for _, perms := range raw {
		for _, p := range strings.Split(perms, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

func (s *SQLStore) strings(ctx context.Context, q string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, s.query(q), args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}
