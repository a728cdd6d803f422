// file: model/user.go

package model

import "time"

type Role string

const (
	RoleAdmin        Role = "admin"
	RoleUser         Role = "user"
	RoleStoreOwner   Role = "store_owner"
	RoleStoreManager Role = "store_manager"
	RoleStoreStaff   Role = "store_staff"
	RoleCustomer     Role = "customer"
)

// KnownRoles lists every role a user may hold.
var KnownRoles = []Role{RoleAdmin, RoleUser, RoleStoreOwner, RoleStoreManager, RoleStoreStaff, RoleCustomer}

func (r Role) Valid() bool {
	for _, k := range KnownRoles {
		if r == k {
			return true
		}
	}
	return false
}

// User is the persisted account. Password and RefreshTokenHash never leave the service.
type User struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	Password         string     `json:"-"`
	FirstName        string     `json:"first_name"`
	LastName         string     `json:"last_name"`
	Roles            []Role     `json:"roles"`
	IsActive         bool       `json:"is_active"`
	RefreshTokenHash *string    `json:"-"`
	LastLoginAt      *time.Time `json:"last_login_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// HasRole reports whether the user holds role.
func (u *User) HasRole(role Role) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Public strips the credential fields.
func (u *User) Public() *PublicUser {
	roles := make([]Role, len(u.Roles))
	copy(roles, u.Roles)
	return &PublicUser{
		ID:          u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Roles:       roles,
		IsActive:    u.IsActive,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

// PublicUser is the user projection returned by the API.
type PublicUser struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Roles       []Role     `json:"roles"`
	IsActive    bool       `json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// RolesToStrings converts roles for storage in a text[] column.
func RolesToStrings(roles []Role) []string {
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}

func RolesFromStrings(in []string) []Role {
	out := make([]Role, len(in))
	for i, s := range in {
		out[i] = Role(s)
	}
	return out
}
