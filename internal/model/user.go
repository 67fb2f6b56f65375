package model

import "time"

// User represents an account row in the `users` table. The password is only
// ever stored as a bcrypt hash. Email and name fields are optional at
// registration time and default to the empty string.
//
// Fields:
//
//	ID           – primary key identifier of the user.
//	Username     – unique login name.
//	Email        – email address, empty when not provided.
//	PasswordHash – bcrypt hashed password.
//	FirstName    – optional given name.
//	LastName     – optional family name.
//	IsActive     – whether the account may log in.
//	CreatedAt    – timestamp of registration (exposed as date_joined).
//	UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    // users.id
	Username     string    // users.username
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	FirstName    string    // users.first_name
	LastName     string    // users.last_name
	IsActive     bool      // users.is_active
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// RefreshToken models an entry in the `refresh_tokens` table. Each refresh
// token belongs to a user; only the SHA-256 hash of the raw value is stored.
// A non-null RevokedAt means the token is blacklisted and can no longer be
// exchanged for new access tokens.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
