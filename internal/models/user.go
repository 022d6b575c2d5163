package models

import "time"

const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleCashier = "cashier"
)

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // Never expose in JSON
	Role         string    `json:"role"`
	BranchID     string    `json:"branch_id"`
	BranchName   string    `json:"branch_name"`
	IsActive     bool      `json:"is_active"`
	TOTPSecret   string    `json:"-"`
	TOTPEnabled  bool      `json:"totp_enabled"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	TOTPCode string `json:"totp_code,omitempty"`
}

// AuthResponse represents the response after a login step. When the account
// has TOTP enabled the first step returns only TempToken.
type AuthResponse struct {
	Token        string `json:"token,omitempty"`
	User         *User  `json:"user,omitempty"`
	RequiresTOTP bool   `json:"requires_totp,omitempty"`
	TempToken    string `json:"temp_token,omitempty"`
}

type TOTPLoginRequest struct {
	TempToken string `json:"temp_token"`
	Code      string `json:"code"`
}

// CreateUserRequest represents the request body for creating a user
type CreateUserRequest struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
	BranchID string `json:"branch_id"`
}

// UpdateUserRequest represents the request body for updating a user
type UpdateUserRequest struct {
	Name     string `json:"name"`
	Password string `json:"password,omitempty"` // Optional
	Role     string `json:"role"`
	BranchID string `json:"branch_id"`
	IsActive bool   `json:"is_active"`
}

type TOTPSetupResponse struct {
	Secret string `json:"secret"`
	URL    string `json:"url"`
	QRCode string `json:"qr_code"` // base64 PNG
}

type TOTPCodeRequest struct {
	Code     string `json:"code"`
	Password string `json:"password,omitempty"`
}

func ValidRole(r string) bool {
	return r == RoleAdmin || r == RoleManager || r == RoleCashier
}
