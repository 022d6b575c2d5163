package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image/png"
	"log"
	"strings"
	"sync"
	"time"

	"tailor-pos/internal/auth"
	"tailor-pos/internal/models"
	"tailor-pos/internal/store"
	"tailor-pos/internal/timeutil"

	"github.com/google/uuid"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	totpIssuer        = "TailorPOS"
	minPasswordLength = 6
	maxFailedAttempts = 5
	rateLimitWindow   = 15 * time.Minute
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAccountDisabled    = errors.New("account is disabled, contact an administrator")
	ErrInvalidTOTP        = errors.New("invalid verification code")
	ErrTooManyAttempts    = errors.New("too many failed attempts, try again later")
)

type UserService struct {
	Store      store.Store
	JWTManager *auth.JWTManager
	Now        func() time.Time
	Retry      RetryPolicy

	mu       sync.Mutex
	failures map[string][]time.Time
}

func NewUserService(st store.Store, jwtManager *auth.JWTManager) *UserService {
	return &UserService{
		Store:      st,
		JWTManager: jwtManager,
		Now:        timeutil.Now,
		Retry:      defaultRetry,
		failures:   make(map[string][]time.Time),
	}
}

// ============================================
// Login
// ============================================

// Login checks the password. Accounts with TOTP enabled either pass the code
// in the same request or get a temp token for VerifyTOTPLogin.
func (s *UserService) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error) {
	username := strings.ToLower(strings.TrimSpace(req.Username))
	if username == "" || req.Password == "" {
		return nil, invalid("username", "username and password are required")
	}
	if s.rateLimited(username) {
		return nil, ErrTooManyAttempts
	}

	user, err := s.Store.GetUserByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		s.recordFailure(username)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !auth.VerifyPassword(user.PasswordHash, req.Password) {
		s.recordFailure(username)
		log.Printf("[Auth] failed login for %s", username)
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}

	if user.TOTPEnabled {
		if req.TOTPCode == "" {
			temp, err := s.JWTManager.GenerateTempToken(user)
			if err != nil {
				return nil, err
			}
			return &models.AuthResponse{RequiresTOTP: true, TempToken: temp}, nil
		}
		if !totp.Validate(req.TOTPCode, user.TOTPSecret) {
			s.recordFailure(username)
			return nil, ErrInvalidTOTP
		}
	}
	return s.issue(user)
}

// VerifyTOTPLogin completes a two-step login
func (s *UserService) VerifyTOTPLogin(ctx context.Context, req *models.TOTPLoginRequest) (*models.AuthResponse, error) {
	claims, err := s.JWTManager.ValidateTempToken(req.TempToken)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if s.rateLimited(claims.UserID) {
		return nil, ErrTooManyAttempts
	}
	user, err := s.Store.GetUser(ctx, claims.UserID)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}
	if !user.TOTPEnabled || !totp.Validate(strings.TrimSpace(req.Code), user.TOTPSecret) {
		s.recordFailure(claims.UserID)
		return nil, ErrInvalidTOTP
	}
	return s.issue(user)
}

func (s *UserService) issue(user *models.User) (*models.AuthResponse, error) {
	token, err := s.JWTManager.GenerateToken(user)
	if err != nil {
		return nil, err
	}
	s.clearFailures(user.Username)
	s.clearFailures(user.ID)
	log.Printf("[Auth] %s logged in (%s)", user.Username, user.Role)
	return &models.AuthResponse{Token: token, User: user}, nil
}

func (s *UserService) rateLimited(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.Now().Add(-rateLimitWindow)
	recent := s.failures[key][:0]
	for _, at := range s.failures[key] {
		if at.After(cutoff) {
			recent = append(recent, at)
		}
	}
	s.failures[key] = recent
	return len(recent) >= maxFailedAttempts
}

func (s *UserService) recordFailure(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[key] = append(s.failures[key], s.Now())
}

func (s *UserService) clearFailures(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, key)
}

// ============================================
// Admin CRUD
// ============================================

func (s *UserService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.Store.ListUsers(ctx)
}

func (s *UserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	return s.Store.GetUser(ctx, id)
}

func (s *UserService) CreateUser(ctx context.Context, req *models.CreateUserRequest) (*models.User, error) {
	name := strings.TrimSpace(req.Name)
	username := strings.ToLower(strings.TrimSpace(req.Username))
	if name == "" {
		return nil, invalid("name", "name is required")
	}
	if username == "" {
		return nil, invalid("username", "username is required")
	}
	if len(req.Password) < minPasswordLength {
		return nil, invalid("password", "password must be at least %d characters", minPasswordLength)
	}
	role := req.Role
	if role == "" {
		role = models.RoleCashier
	}
	if !models.ValidRole(role) {
		return nil, invalid("role", "role must be admin, manager or cashier")
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	now := s.Now()
	u := &models.User{
		ID:           uuid.NewString(),
		Name:         name,
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		BranchID:     req.BranchID,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	_, err = runTx(ctx, s.Store, s.Retry, "Users", func(ctx context.Context, tx store.Tx) error {
		if err := s.resolveBranch(ctx, tx, u); err != nil {
			return err
		}
		if err := tx.CreateUser(ctx, u); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return invalid("username", "username %s is taken", username)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[Users] created %s (%s)", u.Username, u.Role)
	return u, nil
}

func (s *UserService) resolveBranch(ctx context.Context, tx store.Tx, u *models.User) error {
	if u.BranchID == "" {
		u.BranchName = ""
		return nil
	}
	b, err := tx.GetBranch(ctx, u.BranchID)
	if errors.Is(err, store.ErrNotFound) {
		return invalid("branch_id", "branch %s does not exist", u.BranchID)
	}
	if err != nil {
		return err
	}
	u.BranchName = b.Name
	return nil
}

// UpdateUser changes profile, role, branch and active flag. An empty
// password keeps the current one.
func (s *UserService) UpdateUser(ctx context.Context, id string, req *models.UpdateUserRequest) (*models.User, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalid("name", "name is required")
	}
	if !models.ValidRole(req.Role) {
		return nil, invalid("role", "role must be admin, manager or cashier")
	}
	var hash string
	if req.Password != "" {
		if len(req.Password) < minPasswordLength {
			return nil, invalid("password", "password must be at least %d characters", minPasswordLength)
		}
		var err error
		if hash, err = auth.HashPassword(req.Password); err != nil {
			return nil, err
		}
	}

	var u *models.User
	_, err := runTx(ctx, s.Store, s.Retry, "Users", func(ctx context.Context, tx store.Tx) error {
		cur, err := tx.GetUser(ctx, id)
		if err != nil {
			return err
		}
		cur.Name = name
		cur.Role = req.Role
		cur.BranchID = req.BranchID
		cur.IsActive = req.IsActive
		cur.UpdatedAt = s.Now()
		if hash != "" {
			cur.PasswordHash = hash
		}
		if err := s.resolveBranch(ctx, tx, cur); err != nil {
			return err
		}
		u = cur
		return tx.UpdateUser(ctx, cur)
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

// DeactivateUser disables the account. Sales keep referring to the user
// as their operator, so records are never removed.
func (s *UserService) DeactivateUser(ctx context.Context, id, actorID string) error {
	if id == actorID {
		return invalid("id", "you cannot deactivate your own account")
	}
	return s.mutate(ctx, id, func(u *models.User) error {
		u.IsActive = false
		return nil
	})
}

func (s *UserService) mutate(ctx context.Context, id string, fn func(u *models.User) error) error {
	_, err := runTx(ctx, s.Store, s.Retry, "Users", func(ctx context.Context, tx store.Tx) error {
		u, err := tx.GetUser(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(u); err != nil {
			return err
		}
		u.UpdatedAt = s.Now()
		return tx.UpdateUser(ctx, u)
	})
	return err
}

// EnsureAdmin creates the first admin account when the user table is empty
func (s *UserService) EnsureAdmin(ctx context.Context, username, password string) error {
	users, err := s.Store.ListUsers(ctx)
	if err != nil {
		return err
	}
	if len(users) > 0 {
		return nil
	}
	if password == "" {
		log.Printf("[Users] no users exist and no admin password is configured, skipping seed")
		return nil
	}
	_, err = s.CreateUser(ctx, &models.CreateUserRequest{
		Name:     "Administrator",
		Username: username,
		Password: password,
		Role:     models.RoleAdmin,
	})
	if err != nil {
		return err
	}
	log.Printf("[Users] seeded admin account %s", username)
	return nil
}

// ============================================
// TOTP
// ============================================

// SetupTOTP generates a new secret for the user. It takes effect only after
// EnableTOTP confirms a code from the authenticator app.
func (s *UserService) SetupTOTP(ctx context.Context, userID string) (*models.TOTPSetupResponse, error) {
	user, err := s.Store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.TOTPEnabled {
		return nil, invalid("totp", "two-factor authentication is already enabled")
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      totpIssuer,
		AccountName: user.Username,
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, err
	}

	err = s.mutate(ctx, userID, func(u *models.User) error {
		u.TOTPSecret = key.Secret()
		return nil
	})
	if err != nil {
		return nil, err
	}

	resp := &models.TOTPSetupResponse{Secret: key.Secret(), URL: key.URL()}
	img, err := key.Image(200, 200)
	if err == nil {
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err == nil {
			resp.QRCode = base64.StdEncoding.EncodeToString(buf.Bytes())
		}
	}
	return resp, nil
}

func (s *UserService) EnableTOTP(ctx context.Context, userID, code string) error {
	if s.rateLimited(userID) {
		return ErrTooManyAttempts
	}
	err := s.mutate(ctx, userID, func(u *models.User) error {
		if u.TOTPSecret == "" {
			return invalid("totp", "run two-factor setup first")
		}
		if !totp.Validate(strings.TrimSpace(code), u.TOTPSecret) {
			return ErrInvalidTOTP
		}
		u.TOTPEnabled = true
		return nil
	})
	if errors.Is(err, ErrInvalidTOTP) {
		s.recordFailure(userID)
	}
	if err == nil {
		log.Printf("[Auth] two-factor enabled for user %s", userID)
	}
	return err
}

// DisableTOTP needs the account password again
func (s *UserService) DisableTOTP(ctx context.Context, userID, password string) error {
	return s.mutate(ctx, userID, func(u *models.User) error {
		if !auth.VerifyPassword(u.PasswordHash, password) {
			return ErrInvalidCredentials
		}
		u.TOTPEnabled = false
		u.TOTPSecret = ""
		return nil
	})
}
