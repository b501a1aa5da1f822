package domain

import "strings"

// LoginPath is where every denied viewer is sent.
const LoginPath = "/login"

// Area is a role-scoped section of the portal.
type Area struct {
	Name       string
	Role       Role
	Root       string
	Home       string
	Onboarding string
}

var (
	StudentArea = Area{Name: "student", Role: RoleStudent, Root: "/student", Home: "/student/dashboard", Onboarding: "/student/onboarding"}
	TeacherArea = Area{Name: "teacher", Role: RoleTeacher, Root: "/teacher", Home: "/teacher/dashboard", Onboarding: "/teacher/onboarding"}
	AdminArea   = Area{Name: "admin", Role: RoleAdmin, Root: "/admin", Home: "/admin/dashboard", Onboarding: "/admin/onboarding"}
)

// AtRoot reports whether path is exactly the area root, with or without a trailing slash.
func (a Area) AtRoot(path string) bool {
	return strings.TrimSuffix(path, "/") == a.Root
}

// AtOnboarding reports whether path is the onboarding page or one of its sub-pages.
func (a Area) AtOnboarding(path string) bool {
	if a.Onboarding == "" {
		return false
	}
	path = strings.TrimSuffix(path, "/")
	return path == a.Onboarding || strings.HasPrefix(path, a.Onboarding+"/")
}
