package auth_test

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"strings"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"

	"github.com/zynqcloud/face-enroll/internal/auth"
)

const testProject = "face-enroll-test"

type signer struct {
	key *rsa.PrivateKey
	now time.Time
}

func newSigner(t *testing.T) *signer {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return &signer{key: key, now: time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)}
}

func (s *signer) verifier() *auth.FirebaseVerifier {
	keys := &oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{&s.key.PublicKey}}
	return auth.NewFirebaseVerifierWithKeySet(testProject, keys, func() time.Time { return s.now }, nil)
}

func (s *signer) sign(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = "test-key"
	raw, err := tok.SignedString(s.key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return raw
}

func (s *signer) claims(email string) jwt.MapClaims {
	c := jwt.MapClaims{
		"iss":            "https://securetoken.google.com/" + testProject,
		"aud":            testProject,
		"sub":            "uid-123",
		"iat":            s.now.Add(-time.Minute).Unix(),
		"exp":            s.now.Add(time.Hour).Unix(),
		"email_verified": true,
	}
	if email != "" {
		c["email"] = email
	}
	return c
}

func TestVerifyValidToken(t *testing.T) {
	s := newSigner(t)
	id, err := s.verifier().Verify(context.Background(), s.sign(t, s.claims("cs101@nmamit.in")))
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if id.Email != "cs101@nmamit.in" || id.Subject != "uid-123" || !id.EmailVerified {
		t.Errorf("identity = %+v", id)
	}
}

func TestVerifyWithoutEmailClaim(t *testing.T) {
	s := newSigner(t)
	id, err := s.verifier().Verify(context.Background(), s.sign(t, s.claims("")))
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if id.Email != "" {
		t.Errorf("Email = %q, want empty", id.Email)
	}
}

func TestVerifyRejects(t *testing.T) {
	s := newSigner(t)
	other := newSigner(t)

	cases := map[string]func() string{
		"empty": func() string { return "" },
		"garbage": func() string { return "not.a.jwt" },
		"expired": func() string {
			c := s.claims("cs101@nmamit.in")
			c["exp"] = s.now.Add(-time.Minute).Unix()
			return s.sign(t, c)
		},
		"wrong audience": func() string {
			c := s.claims("cs101@nmamit.in")
			c["aud"] = "someone-else"
			return s.sign(t, c)
		},
		"wrong issuer": func() string {
			c := s.claims("cs101@nmamit.in")
			c["iss"] = "https://accounts.google.com"
			return s.sign(t, c)
		},
		"foreign key": func() string { return other.sign(t, s.claims("cs101@nmamit.in")) },
		"no subject": func() string {
			c := s.claims("cs101@nmamit.in")
			delete(c, "sub")
			return s.sign(t, c)
		},
	}
	v := s.verifier()
	for name, mk := range cases {
		t.Run(name, func(t *testing.T) {
			if id, err := v.Verify(context.Background(), mk()); err == nil {
				t.Fatalf("Verify accepted token, identity %+v", id)
			}
		})
	}
}

func TestParseCredential(t *testing.T) {
	c, err := auth.ParseCredential([]byte(`{"type":"service_account","project_id":" my-proj ","client_email":"svc@my-proj.iam.gserviceaccount.com"}`))
	if err != nil {
		t.Fatalf("ParseCredential: %v", err)
	}
	if c.ProjectID != "my-proj" {
		t.Errorf("ProjectID = %q", c.ProjectID)
	}

	bad := map[string]string{
		"empty":      "   ",
		"not json":   "{",
		"no project": `{"type":"service_account"}`,
		"wrong type": `{"type":"authorized_user","project_id":"p"}`,
	}
	for name, blob := range bad {
		if _, err := auth.ParseCredential([]byte(blob)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestIdentityContext(t *testing.T) {
	ctx := context.Background()
	if _, ok := auth.IdentityFromContext(ctx); ok {
		t.Fatal("identity found on empty context")
	}
	ctx = auth.WithIdentity(ctx, &auth.Identity{Email: "a@b.c"})
	id, ok := auth.IdentityFromContext(ctx)
	if !ok || !strings.EqualFold(id.Email, "a@b.c") {
		t.Fatalf("IdentityFromContext = %+v, %v", id, ok)
	}
}
