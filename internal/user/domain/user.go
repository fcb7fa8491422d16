package domain

import (
	"time"

	"github.com/ishopping/marketplace/internal/identity"
)

// User is the profile record. Credentials never live here; authentication
// is handled by an external layer that hands the core a resolved identity.
type User struct {
	ID        string
	Username  string
	Email     string
	Phone     string
	Role      identity.Role
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (u User) Identity() identity.Identity {
	return identity.Identity{UserID: u.ID, Role: u.Role, Username: u.Username}
}
