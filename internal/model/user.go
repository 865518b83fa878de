package model

import "time"

// User represents an application user record as stored in the
// `users` table. Accounts are created at registration and are
// never deleted; only the password may change afterwards. The
// json tags are omitted because these structs are used by the
// repository layer; handlers define separate response types with
// appropriate JSON tags so the password hash is never serialized.
//
// Fields:
//  ID            – primary key identifier of the user.
//  FirstName     – given name supplied at registration.
//  LastName      – family name supplied at registration.
//  Class         – class/cohort label (e.g. graduating batch).
//  ContactNumber – phone number for the purchaser.
//  Email         – unique email address, login identifier.
//  PasswordHash  – bcrypt hashed password.
//  IsAdmin       – administrator flag; grants access to /v1/admin.
//  CreatedAt     – timestamp of creation.
//  UpdatedAt     – timestamp of last update.
type User struct {
	ID            uint64    // users.id
	FirstName     string    // users.first_name
	LastName      string    // users.last_name
	Class         string    // users.class
	ContactNumber string    // users.contact_number
	Email         string    // users.email
	PasswordHash  string    // users.password_hash
	IsAdmin       bool      // users.is_admin
	CreatedAt     time.Time // users.created_at
	UpdatedAt     time.Time // users.updated_at
}

// FullName returns the user's display name as used on tickets and
// in admin listings.
func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
