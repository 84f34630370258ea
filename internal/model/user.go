package model

import "time"

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Avatar       string    `json:"avatar,omitempty"`
	RefreshToken string    `json:"-"`
	Confirmed    bool      `json:"confirmed"`
	CreatedAt    time.Time `json:"created_at"`
}

// UserSnapshot is the versioned cache payload for a user. It carries an
// explicit field list instead of a serialized User so cache entries stay
// stable across releases. The password hash and refresh token never travel
// through the cache.
type UserSnapshot struct {
	Version   int    `json:"v"`
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Avatar    string `json:"avatar,omitempty"`
	Confirmed bool   `json:"confirmed"`
}

const SnapshotVersion = 1

func SnapshotOf(u User) UserSnapshot {
	return UserSnapshot{
		Version:   SnapshotVersion,
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Avatar:    u.Avatar,
		Confirmed: u.Confirmed,
	}
}

func (s UserSnapshot) User() User {
	return User{
		ID:        s.ID,
		Username:  s.Username,
		Email:     s.Email,
		Avatar:    s.Avatar,
		Confirmed: s.Confirmed,
	}
}

type UserResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Avatar   string `json:"avatar,omitempty"`
}

func NewUserResponse(u User) UserResponse {
	return UserResponse{ID: u.ID, Username: u.Username, Email: u.Email, Avatar: u.Avatar}
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}
