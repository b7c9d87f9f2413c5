package models

type UserRole string

const (
	UserRoleUser       UserRole = "user"
	UserRoleTechnician UserRole = "technician"
	UserRoleAdmin      UserRole = "admin"
)

type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusInactive UserStatus = "inactive"
	UserStatusPending  UserStatus = "pending"
)

// User is the profile record returned by /auth/login and persisted under
// the auth_user key.
type User struct {
	ID        string     `json:"id"`
	FirstName string     `json:"firstName"`
	LastName  string     `json:"lastName"`
	Email     string     `json:"email"`
	Address   string     `json:"address"`
	Phone     string     `json:"phone,omitempty"`
	Image     *string    `json:"image,omitempty"`
	Role      UserRole   `json:"role"`
	Status    UserStatus `json:"status"`
}

func (u User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

func (u User) IsTechnician() bool {
	return u.Role == UserRoleTechnician
}
