package store

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/passport"
	"github.com/MrEthical07/passport/password"
)

const seedSalt = "c2VlZC1zYWx0"

func newSQLiteStore(t *testing.T) (*SQLStore, *sql.DB) {
	t.Helper()
	ctx := context.Background()

	db, err := OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, Migrate(ctx, db, SQLite))

	hash, err := password.NewSHA256(0).Hash(seedSalt, "streamx")
	require.NoError(t, err)

	stmts := []struct {
		q    string
		args []any
	}{
		{`INSERT INTO t_user (user_id, username, password, salt, status, nick_name, create_time) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			[]any{1, "admin", hash, seedSalt, "1", "Administrator", time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)}},
		{`INSERT INTO t_user (user_id, username, password, salt, status) VALUES (?, ?, ?, ?, ?)`,
			[]any{2, "frozen", hash, seedSalt, "0"}},
		{`INSERT INTO t_role (role_id, role_name) VALUES (?, ?), (?, ?)`, []any{1, "admin", 2, "developer"}},
		{`INSERT INTO t_user_role (user_id, role_id) VALUES (?, ?), (?, ?)`, []any{1, 1, 1, 2}},
		{`INSERT INTO t_menu (menu_id, menu_name, perms) VALUES (?, ?, ?), (?, ?, ?), (?, ?, ?)`,
			[]any{1, "Application", "app:view,app:create", 2, "User", "user:view", 3, "Root", nil}},
		{`INSERT INTO t_role_menu (role_id, menu_id) VALUES (?, ?), (?, ?), (?, ?), (?, ?)`,
			[]any{1, 1, 1, 2, 2, 1, 2, 3}},
	}
	for _, st := range stmts {
		_, err := db.ExecContext(ctx, st.q, st.args...)
		require.NoError(t, err, st.q)
	}

	return NewSQLStore(db, SQLite, nil), db
}

func TestSQLite_FindAndTouch(t *testing.T) {
	s, _ := newSQLiteStore(t)
	ctx := context.Background()

	p, err := s.FindByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, "Administrator", p.Nickname)
	assert.Equal(t, []string{"admin", "developer"}, p.Roles)
	assert.False(t, p.Locked())

	at := time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)
	require.NoError(t, s.TouchLastLogin(ctx, "admin", at))
	p, err = s.FindByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.True(t, p.LastLoginAt.Equal(at), "last login %v", p.LastLoginAt)

	frozen, err := s.FindByUsername(ctx, "frozen")
	require.NoError(t, err)
	assert.True(t, frozen.Locked())
	assert.Empty(t, frozen.Roles)

	_, err = s.FindByUsername(ctx, "ghost")
	assert.ErrorIs(t, err, passport.ErrPrincipalNotFound)
}

func TestSQLite_Permissions(t *testing.T) {
	s, _ := newSQLiteStore(t)

	perms, err := s.PermissionsOf(context.Background(), "admin")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"app:view", "app:create", "user:view"}, perms)
}

func TestSQLite_MigrateIsIdempotent(t *testing.T) {
	_, db := newSQLiteStore(t)
	require.NoError(t, Migrate(context.Background(), db, SQLite))
}

func TestSQLite_EngineLogin(t *testing.T) {
	s, _ := newSQLiteStore(t)

	cfg := passport.DefaultConfig()
	cfg.Token.SigningSecret = []byte(strings.Repeat("k", 32))
	cfg.Token.WrapSecret = []byte(strings.Repeat("v", 32))
	cfg.Password.Algorithm = password.AlgorithmSHA256

	engine, err := passport.New().
		WithConfig(cfg).
		WithPrincipalStore(s).
		WithDirectory(s).
		Build()
	require.NoError(t, err)
	defer engine.Close()

	ctx := context.Background()
	res, err := engine.Login(ctx, "Admin", "streamx")
	require.NoError(t, err)
	assert.Equal(t, []string{"admin", "developer"}, res.Roles)
	assert.Equal(t, []string{"app:create", "app:view", "user:view"}, res.Permissions)
	assert.Equal(t, passport.PasswordPlaceholder, res.User.Password)

	_, err = engine.Login(ctx, "frozen", "streamx")
	assert.ErrorIs(t, err, passport.ErrAccountLocked)

	_, err = engine.Login(ctx, "admin", "wrong")
	assert.Equal(t, passport.MessageInvalidCredentials, passport.Message(err))
}
