package models

import "time"

// UserRole is the closed set of portal roles. Roles gate access only.
type UserRole string

const (
	RoleAdmin   UserRole = "admin"
	RoleMentor  UserRole = "mentor"
	RoleStudent UserRole = "student"
)

// Valid reports whether r is one of the known roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleMentor, RoleStudent:
		return true
	}
	return false
}

// UserStatus tracks account approval.
type UserStatus string

const (
	StatusPendingApproval UserStatus = "pending_approval"
	StatusApproved        UserStatus = "approved"
)

// User represents an application user stored in the users table.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	DisplayName  string     `db:"display_name" json:"display_name"`
	Role         UserRole   `db:"role" json:"role"`
	Status       UserStatus `db:"status" json:"status"`
	Address      string     `db:"address" json:"address"`
	PhoneNumber  string     `db:"phone_number" json:"phone_number"`
	MentorID     *string    `db:"mentor_id" json:"mentor_id,omitempty"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// Approved reports whether the user may sign in. Admins are always allowed.
func (u *User) Approved() bool {
	return u.Role == RoleAdmin || u.Status == StatusApproved
}

// AssignedTo reports whether the user is a student assigned to mentorID.
func (u *User) AssignedTo(mentorID string) bool {
	return u.Role == RoleStudent && u.MentorID != nil && *u.MentorID == mentorID
}

// StudentRef is the directory view of a student used by attendance screens.
type StudentRef struct {
	ID          string `db:"id" json:"id"`
	DisplayName string `db:"display_name" json:"display_name"`
	Email       string `db:"email" json:"email"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role      *UserRole
	Status    *UserStatus
	MentorID  string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// UserStats counts users for the admin dashboard.
type UserStats struct {
	Students int `db:"students" json:"students"`
	Mentors  int `db:"mentors" json:"mentors"`
	Pending  int `db:"pending" json:"pending"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
