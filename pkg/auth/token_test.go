package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/angelmondragon/cablequotes-backend/pkg/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func testJWTConfig(mins int) config.JWTConfig {
	return config.JWTConfig{
		Secret:            "secret",
		Issuer:            "cablequotes",
		ExpirationMinutes: mins,
	}
}

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := testJWTConfig(30)
	now := time.Now().UTC()
	userID := uuid.New()

	token, err := MintAccessToken(cfg, now, AccessTokenPayload{
		UserID:    userID,
		Username:  "anna.nowak",
		IsAdmin:   true,
		CanDelete: true,
		JTI:       "fixed-jti",
	})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}

	actor := claims.Actor()
	if actor.UserID != userID || actor.Username != "anna.nowak" {
		t.Fatalf("identity not preserved: %+v", actor)
	}
	if !actor.IsAdmin || !actor.CanDelete {
		t.Fatalf("flags not preserved: %+v", actor)
	}
	if claims.ID != "fixed-jti" {
		t.Fatalf("expected jti fixed-jti, got %s", claims.ID)
	}
	if claims.Issuer != cfg.Issuer {
		t.Fatalf("expected issuer %s, got %s", cfg.Issuer, claims.Issuer)
	}

	exp := now.Add(time.Duration(cfg.ExpirationMinutes) * time.Minute)
	diff := claims.ExpiresAt.Sub(exp)
	if diff < 0 {
		diff = -diff
	}
	if diff >= time.Second {
		t.Fatalf("expected exp roughly %v, got %v (diff %v)", exp.UTC(), claims.ExpiresAt.UTC(), diff)
	}
}

func TestParseAccessTokenInvalidSignature(t *testing.T) {
	cfg := testJWTConfig(10)
	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{UserID: uuid.New(), Username: "jan"})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	if _, err = ParseAccessToken(cfg, token+"x"); err == nil {
		t.Fatal("expected invalid signature error")
	}
}

func TestParseAccessTokenExpired(t *testing.T) {
	cfg := testJWTConfig(15)
	token, err := MintAccessToken(cfg, time.Now().Add(-time.Hour), AccessTokenPayload{UserID: uuid.New(), Username: "jan"})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	if _, err = ParseAccessToken(cfg, token); !errors.Is(err, jwt.ErrTokenExpired) {
		t.Fatalf("expected expired token, got %v", err)
	}

	claims, err := ParseAccessTokenAllowExpired(cfg, token)
	if err != nil {
		t.Fatalf("allow expired parse: %v", err)
	}
	if claims.Username != "jan" {
		t.Fatalf("unexpected username %q", claims.Username)
	}
}

func TestParseAccessTokenChecksIssuer(t *testing.T) {
	cfg := testJWTConfig(15)
	token, err := MintAccessToken(cfg, time.Now().Add(-time.Hour), AccessTokenPayload{UserID: uuid.New(), Username: "jan"})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	other := cfg
	other.Issuer = "someone-else"
	if _, err := ParseAccessTokenAllowExpired(other, token); !errors.Is(err, jwt.ErrTokenInvalidIssuer) {
		t.Fatalf("expected issuer mismatch even for expired tokens, got %v", err)
	}
	if _, err := ParseAccessToken(cfg, "  "); err == nil {
		t.Fatal("expected error for blank token")
	}
}

func TestMintAccessTokenSetsSubjectAndTrimsUsername(t *testing.T) {
	cfg := testJWTConfig(5)
	userID := uuid.New()
	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{UserID: userID, Username: "  jan  "})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}
	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.Subject != userID.String() || claims.Username != "jan" {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if claims.ID == "" {
		t.Fatal("expected generated jti")
	}
}

func TestMintAccessTokenRequiresIdentity(t *testing.T) {
	cfg := testJWTConfig(5)
	if _, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{Username: "jan"}); err == nil {
		t.Fatal("expected missing user id error")
	}
	if _, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{UserID: uuid.New(), Username: " "}); err == nil {
		t.Fatal("expected missing username error")
	}
}

func TestActorOwns(t *testing.T) {
	id := uuid.New()
	other := uuid.New()
	actor := Actor{UserID: id}
	if !actor.Owns(&id) || actor.Owns(&other) || actor.Owns(nil) {
		t.Fatal("ownership check mismatch")
	}
}

func TestBearerToken(t *testing.T) {
	cases := map[string]string{
		"Bearer abc.def":   "abc.def",
		"bearer   abc.def": "abc.def",
		"abc.def":          "abc.def",
		"":                 "",
		"Bearer ":          "",
		"Basic a b":        "",
	}
	for header, want := range cases {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", header)
		got, err := BearerToken(r)
		if want == "" {
			if !errors.Is(err, ErrNoCredentials) {
				t.Fatalf("%q: expected no credentials, got %q %v", header, got, err)
			}
			continue
		}
		if err != nil || got != want {
			t.Fatalf("%q: want %q, got %q %v", header, want, got, err)
		}
	}
}
