package dto

import "github.com/spec-kit/portfolio-portal/internal/domain"

// Layout is the shell context wrapped around every area page.
type Layout struct {
	Area        string `json:"area"`
	Role        string `json:"role"`
	DisplayName string `json:"display_name"`
	UserID      int64  `json:"user_id"`
}

// PageResponse is an authorized area page.
type PageResponse struct {
	Layout     Layout `json:"layout"`
	Path       string `json:"path"`
	Onboarding bool   `json:"onboarding"`
}

// AlertsResponse lists the alerts on screen.
type AlertsResponse struct {
	Alerts []domain.Alert `json:"alerts"`
}
