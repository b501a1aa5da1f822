package dto

import "time"

// LoginRequest payload forwarded to the backend.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse tells the client where the viewer lands.
type LoginResponse struct {
	Redirect  string    `json:"redirect"`
	ExpiresAt time.Time `json:"expires_at"`
}

// LoginPage is the model rendered at /login.
type LoginPage struct {
	Page    string `json:"page"`
	Notice  string `json:"notice,omitempty"`
	Message string `json:"message,omitempty"`
}

// LogoutResponse tells the client where to go after logout.
type LogoutResponse struct {
	Redirect string `json:"redirect"`
}
