package user

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// PlaceholderUsername is the reserved account that holds the unassigned
// census. Clearing a patient's attending points them here; the account
// cannot log in and never receives notifications or watches.
const PlaceholderUsername = "to_be_assigned"

type User struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	FirstName    string    `db:"first_name" json:"first_name"`
	LastName     string    `db:"last_name" json:"last_name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Roles        []string  `db:"roles" json:"roles"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

func (u *User) IsPlaceholder() bool {
	return u.Username == PlaceholderUsername
}

// DisplayName renders "Last, First", falling back to the username.
func (u *User) DisplayName() string {
	if u.IsPlaceholder() {
		return "TO BE ASSIGNED"
	}
	if u.LastName != "" && u.FirstName != "" {
		return u.LastName + ", " + u.FirstName
	}
	if u.LastName != "" {
		return u.LastName
	}
	return u.Username
}

// HashPassword returns the stored form of a password.
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// CheckPassword compares in constant time. The placeholder account stores an
// empty hash and always fails.
func (u *User) CheckPassword(password string) bool {
	if u.PasswordHash == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(u.PasswordHash), []byte(HashPassword(password))) == 1
}
