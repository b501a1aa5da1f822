package guard

import "github.com/spec-kit/portfolio-portal/internal/domain"

// State is a step of the access check for one request into an area.
type State int

const (
	StateUnverified State = iota
	StateChecking
	StateDeniedNoToken
	StateDeniedWrongRole
	StateDeniedUnauthorized
	StateRedirectOnboarding
	StateRedirectHome
	StateAuthorized
)

func (s State) String() string {
	switch s {
	case StateUnverified:
		return "unverified"
	case StateChecking:
		return "checking"
	case StateDeniedNoToken:
		return "denied_no_token"
	case StateDeniedWrongRole:
		return "denied_wrong_role"
	case StateDeniedUnauthorized:
		return "denied_unauthorized"
	case StateRedirectOnboarding:
		return "redirect_onboarding"
	case StateRedirectHome:
		return "redirect_home"
	case StateAuthorized:
		return "authorized"
	default:
		return "unknown"
	}
}

// Denied reports whether s ends with the credential being discarded.
func (s State) Denied() bool {
	return s == StateDeniedNoToken || s == StateDeniedWrongRole || s == StateDeniedUnauthorized
}

// Settled reports whether evaluation has finished in s.
func (s State) Settled() bool {
	return s != StateUnverified && s != StateChecking
}

// EventKind identifies what happened to the evaluation.
type EventKind int

const (
	// EventMount fires once the local credential has been looked up.
	EventMount EventKind = iota
	// EventVerified carries the user returned by the backend.
	EventVerified
	// EventRejected fires on any verification failure.
	EventRejected
	// EventNavigate restarts evaluation for a new path.
	EventNavigate
)

// Event drives Transition.
type Event struct {
	Kind     EventKind
	HasToken bool
	User     *domain.User
	Path     string
}

// Transition returns the state that follows current when ev occurs in area.
// It has no side effects.
func Transition(area domain.Area, current State, ev Event) State {
	if ev.Kind == EventNavigate {
		return StateUnverified
	}

	switch current {
	case StateUnverified:
		if ev.Kind != EventMount {
			return current
		}
		if !ev.HasToken {
			return StateDeniedNoToken
		}
		return StateChecking
	case StateChecking:
		switch ev.Kind {
		case EventRejected:
			return StateDeniedUnauthorized
		case EventVerified:
			return classify(area, ev.User, ev.Path)
		}
	}
	return current
}

func classify(area domain.Area, user *domain.User, path string) State {
	if user == nil {
		return StateDeniedUnauthorized
	}
	if user.TypeID != area.Role {
		return StateDeniedWrongRole
	}

	onboarding := area.AtOnboarding(path)
	if !user.OnboardingCompleted() {
		if onboarding || area.Onboarding == "" {
			return StateAuthorized
		}
		return StateRedirectOnboarding
	}
	if onboarding || area.AtRoot(path) {
		return StateRedirectHome
	}
	return StateAuthorized
}

// RoleMismatchNotice is appended to the login redirect after a wrong-role denial.
const RoleMismatchNotice = "role_mismatch"

// RedirectFor returns where a viewer in state s goes, or "" to stay.
func RedirectFor(area domain.Area, s State) string {
	switch s {
	case StateDeniedNoToken, StateDeniedUnauthorized:
		return domain.LoginPath
	case StateDeniedWrongRole:
		return domain.LoginPath + "?notice=" + RoleMismatchNotice
	case StateRedirectOnboarding:
		return area.Onboarding
	case StateRedirectHome:
		return area.Home
	default:
		return ""
	}
}
