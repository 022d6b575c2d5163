package auth

import (
	"strings"
	"testing"
	"time"

	"tailor-pos/internal/config"
	"tailor-pos/internal/models"
)

func testManager() *JWTManager {
	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.ExpirationHours = 1
	cfg.JWT.Issuer = "tailor-pos"
	return NewJWTManager(cfg)
}

func TestTokenRoundTrip(t *testing.T) {
	j := testManager()
	u := &models.User{ID: "u1", Username: "mona", Role: models.RoleCashier, BranchID: "b1"}
	token, err := j.GenerateToken(u)
	if err != nil {
		t.Fatal(err)
	}
	claims, err := j.ValidateToken(token)
	if err != nil {
		t.Fatal(err)
	}
	if claims.UserID != "u1" || claims.Role != models.RoleCashier || claims.BranchID != "b1" {
		t.Fatalf("claims = %+v", claims)
	}

	other := testManager()
	other.cfg.JWT.Secret = "another-secret"
	if _, err := other.ValidateToken(token); err == nil {
		t.Fatal("token signed with another secret was accepted")
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	j := testManager()
	j.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _ := j.GenerateToken(&models.User{ID: "u1"})
	if _, err := testManager().ValidateToken(token); err == nil {
		t.Fatal("expired token accepted")
	}
}

func TestTempTokenIsNotASessionToken(t *testing.T) {
	j := testManager()
	temp, err := j.GenerateTempToken(&models.User{ID: "u1"})
	if err != nil {
		t.Fatal(err)
	}
	if c, err := j.ValidateTempToken(temp); err != nil || c.UserID != "u1" {
		t.Fatalf("temp claims = %+v, %v", c, err)
	}
	if _, err := j.ValidateToken(temp); err == nil {
		t.Fatal("temp token accepted as a session token")
	}

	session, _ := j.GenerateToken(&models.User{ID: "u1"})
	if _, err := j.ValidateTempToken(session); err == nil {
		t.Fatal("session token accepted as a temp token")
	}
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("s3cret")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(hash, "$2a$08$") {
		t.Errorf("hash = %s", hash)
	}
	if !VerifyPassword(hash, "s3cret") || VerifyPassword(hash, "S3cret") {
		t.Fatal("password check mismatch")
	}
}
