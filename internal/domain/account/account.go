package account

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// Role is the closed set of account kinds. The zero value is not a valid role.
type Role uint8

const (
	RoleStudent Role = iota + 1
	RoleTeacher
)

var (
	ErrNotFound    = errors.New("account not found")
	ErrEmailTaken  = errors.New("email already registered for role")
	ErrInvalidRole = errors.New("invalid role")
)

func ParseRole(s string) (Role, error) {
	switch s {
	case "student":
		return RoleStudent, nil
	case "teacher":
		return RoleTeacher, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidRole, s)
}

func (r Role) String() string {
	switch r {
	case RoleStudent:
		return "student"
	case RoleTeacher:
		return "teacher"
	}
	return "unknown"
}

func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleTeacher
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, ErrInvalidRole
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(b []byte) error {
	parsed, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Account is a student or a teacher. RatedBy is only populated for teachers:
// it holds the ids of students that already submitted feedback and only grows.
type Account struct {
	ID           string    `json:"id"`
	Role         Role      `json:"role"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never expose hash in JSON
	RatedBy      []string  `json:"ratedBy,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (a Account) HasRated(studentID string) bool {
	return slices.Contains(a.RatedBy, studentID)
}

// Summary is the public projection used in listings.
type Summary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (a Account) Summary() Summary {
	return Summary{ID: a.ID, Name: a.Name, Email: a.Email}
}
