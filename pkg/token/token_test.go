package token

import (
	"testing"
	"time"

	"github.com/zuritech/duka-api/internal/models"
)

func TestGenerateValidateRoundTrip(t *testing.T) {
	issuer := NewIssuer("test-secret", time.Hour)
	user := &models.User{ID: "u1", Email: "jane@example.com", Role: models.RoleAdmin}

	tok, err := issuer.Generate(user)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := issuer.Validate(tok)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UserID != "u1" || claims.Email != "jane@example.com" || claims.Role != models.RoleAdmin {
		t.Errorf("claims = %+v, want original user fields", claims)
	}
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	issuer := NewIssuer("secret-a", time.Hour)
	other := NewIssuer("secret-b", time.Hour)

	tok, err := issuer.Generate(&models.User{ID: "u1", Role: models.RoleUser})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := other.Validate(tok); err == nil {
		t.Error("token signed with another secret validated")
	}
}

func TestValidateRejectsExpired(t *testing.T) {
	issuer := NewIssuer("secret", -time.Minute)
	tok, err := issuer.Generate(&models.User{ID: "u1", Role: models.RoleUser})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := issuer.Validate(tok); err == nil {
		t.Error("expired token validated")
	}
}

func TestValidateRejectsGarbage(t *testing.T) {
	issuer := NewIssuer("secret", time.Hour)
	if _, err := issuer.Validate("not.a.token"); err == nil {
		t.Error("garbage token validated")
	}
}
