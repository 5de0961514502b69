package auth

import (
	"testing"
	"time"
)

func newTestTokenService() *TokenService {
	return NewTokenService([]byte("test-secret-key-32bytes-long!!"), 15*time.Minute)
}

func TestIssueAndValidateAccessToken(t *testing.T) {
	ts := newTestTokenService()

	token, err := ts.IssueAccessToken("user-123", "alice", true)
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	claims, err := ts.ValidateAccessToken(token)
	if err != nil {
		t.Fatalf("ValidateAccessToken: %v", err)
	}

	if claims.UserID != "user-123" {
		t.Errorf("UserID = %q, want %q", claims.UserID, "user-123")
	}
	if claims.Username != "alice" {
		t.Errorf("Username = %q, want %q", claims.Username, "alice")
	}
	if !claims.Admin {
		t.Error("Admin = false, want true")
	}
	if claims.Issuer != "fleetgate" {
		t.Errorf("Issuer = %q, want %q", claims.Issuer, "fleetgate")
	}
}

func TestValidateAccessToken_WrongSecret(t *testing.T) {
	ts1 := NewTokenService([]byte("secret-one-is-32-bytes-long!!!!"), 15*time.Minute)
	ts2 := NewTokenService([]byte("secret-two-is-32-bytes-long!!!!"), 15*time.Minute)

	token, err := ts1.IssueAccessToken("user-1", "bob", false)
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}

	if _, err := ts2.ValidateAccessToken(token); err == nil {
		t.Error("expected error validating token with wrong secret")
	}
}

func TestValidateAccessToken_Expired(t *testing.T) {
	ts := NewTokenService([]byte("test-secret-key-32bytes-long!!"), -1*time.Second)
	token, err := ts.IssueAccessToken("user-1", "bob", false)
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}

	if _, err := ts.ValidateAccessToken(token); err == nil {
		t.Error("expected error for expired token")
	}
}

func TestValidateAccessToken_Garbage(t *testing.T) {
	ts := newTestTokenService()
	if _, err := ts.ValidateAccessToken("not.a.jwt"); err == nil {
		t.Error("expected error for garbage token")
	}
}

func TestModelUser(t *testing.T) {
	ts := newTestTokenService()
	token, err := ts.IssueAccessToken("user-9", "carol", false)
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}
	claims, err := ts.ValidateAccessToken(token)
	if err != nil {
		t.Fatalf("ValidateAccessToken: %v", err)
	}

	u := claims.ModelUser()
	if u.GUID != "user-9" || u.Name != "carol" || u.Admin {
		t.Errorf("ModelUser = %+v, want {user-9 carol false}", u)
	}
}
