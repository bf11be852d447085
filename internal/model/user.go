package model

import "time"

// User is a registered account as stored in the `users` table. Users upload
// group chats and therefore own everything derived from them.
//
// PasswordModifiedAt moves forward on every password change or reset. Tokens
// whose issued-at predates it (refresh and password reset) are rejected.
type User struct {
	ID                 uint64    // users.id
	Username           string    // users.username (unique)
	Email              string    // users.email (unique)
	PasswordHash       string    // users.password_hash (bcrypt)
	PasswordModifiedAt time.Time // users.password_modified_at
	CreatedAt          time.Time // users.created_at
}
