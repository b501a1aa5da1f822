package domain

import "strings"

// Role is the backend's user type discriminator.
type Role int

const (
	RoleStudent Role = 1
	RoleTeacher Role = 2
	RoleAdmin   Role = 3
)

func (r Role) String() string {
	switch r {
	case RoleStudent:
		return "student"
	case RoleTeacher:
		return "teacher"
	case RoleAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

// User is the snapshot of the viewer returned by the backend's "who am I" call.
type User struct {
	ID               int64  `json:"id"`
	TypeID           Role   `json:"type_id"`
	ProfileCompleted bool   `json:"profile_completed"`
	PDPAConsent      bool   `json:"pdpa_consent"`
	FirstNameTH      string `json:"first_name_th,omitempty"`
	LastNameTH       string `json:"last_name_th,omitempty"`
	FirstNameEN      string `json:"first_name_en,omitempty"`
	LastNameEN       string `json:"last_name_en,omitempty"`
}

// OnboardingCompleted reports whether both the profile and the PDPA consent are done.
// It is always derived, never stored.
func (u *User) OnboardingCompleted() bool {
	return u != nil && u.ProfileCompleted && u.PDPAConsent
}

// DisplayName prefers the Thai name and falls back to the English one.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if name := joinName(u.FirstNameTH, u.LastNameTH); name != "" {
		return name
	}
	return joinName(u.FirstNameEN, u.LastNameEN)
}

func joinName(first, last string) string {
	return strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
}
