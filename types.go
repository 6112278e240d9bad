package passport

import (
	"context"
	"time"
)

// Status is the lifecycle state of an account. The values match the console's status
// column.
type Status string

const (
	// StatusLocked accounts cannot sign in.
	StatusLocked Status = "0"
	// StatusActive accounts can sign in.
	StatusActive Status = "1"
)

// Principal is an account that can authenticate.
type Principal struct {
	ID           int64
	Username     string
	PasswordHash string
	Salt         string
	Status       Status
	Roles        []string
	LastLoginAt  time.Time

	Nickname    string
	Email       string
	Mobile      string
	Sex         string
	Avatar      string
	Description string
	CreatedAt   time.Time
}

// Locked reports whether the account is locked.
func (p *Principal) Locked() bool {
	return p.Status == StatusLocked
}

// PrincipalStore reads accounts and records logins.
type PrincipalStore interface {
	// FindByUsername returns ErrPrincipalNotFound when no account has username.
	FindByUsername(ctx context.Context, username string) (*Principal, error)
	TouchLastLogin(ctx context.Context, username string, at time.Time) error
}

// PasswordPlaceholder replaces the password in every returned profile.
const PasswordPlaceholder = "******"

// Profile is the public view of a principal returned after login.
type Profile struct {
	ID          int64     `json:"userId"`
	Username    string    `json:"username"`
	Password    string    `json:"password"`
	Nickname    string    `json:"nickName,omitempty"`
	Email       string    `json:"email,omitempty"`
	Mobile      string    `json:"mobile,omitempty"`
	Sex         string    `json:"sex,omitempty"`
	Avatar      string    `json:"avatar,omitempty"`
	Description string    `json:"description,omitempty"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"createTime,omitempty"`
	LastLoginAt time.Time `json:"lastLoginTime,omitempty"`
}

func profileOf(p *Principal) Profile {
	return Profile{
		ID:          p.ID,
		Username:    p.Username,
		Password:    PasswordPlaceholder,
		Nickname:    p.Nickname,
		Email:       p.Email,
		Mobile:      p.Mobile,
		Sex:         p.Sex,
		Avatar:      p.Avatar,
		Description: p.Description,
		Status:      p.Status,
		CreatedAt:   p.CreatedAt,
		LastLoginAt: p.LastLoginAt,
	}
}

// ExpireLayout formats LoginResult.Expire.
const ExpireLayout = "2006-01-02 15:04:05"

// LoginResult is returned by a successful Engine.Login.
type LoginResult struct {
	Token       string    `json:"token"`
	Expire      string    `json:"expire"`
	ExpireAt    time.Time `json:"-"`
	SessionID   string    `json:"sessionId"`
	Roles       []string  `json:"roles"`
	Permissions []string  `json:"permissions"`
	User        Profile   `json:"user"`
}

// AuthorizationView lists what a user may do.
type AuthorizationView struct {
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
}

// Identity is the caller behind a valid token.
type Identity struct {
	Username  string
	SessionID string
	IP        string
	Location  string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// SessionInfo describes one active session.
type SessionInfo struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	IP        string    `json:"ip"`
	Location  string    `json:"location"`
	IssuedAt  time.Time `json:"loginTime"`
	ExpiresAt time.Time `json:"expireTime"`
}
