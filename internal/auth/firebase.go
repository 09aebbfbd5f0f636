package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
)

const (
	// firebaseIssuerPrefix is followed by the project id in every Firebase ID token.
	firebaseIssuerPrefix = "https://securetoken.google.com/"

	// firebaseJWKSURL publishes the keys Firebase ID tokens are signed with.
	firebaseJWKSURL = "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"
)

// Credential is the subset of a Firebase service-account key the verifier needs.
type Credential struct {
	Type        string `json:"type"`
	ProjectID   string `json:"project_id"`
	ClientEmail string `json:"client_email"`
}

// ParseCredential decodes a service-account JSON blob, as supplied in the
// FIREBASE_KEY environment variable.
func ParseCredential(blob []byte) (Credential, error) {
	if len(strings.TrimSpace(string(blob))) == 0 {
		return Credential{}, errors.New("firebase credential is empty")
	}
	var c Credential
	if err := json.Unmarshal(blob, &c); err != nil {
		return Credential{}, fmt.Errorf("decode firebase credential: %w", err)
	}
	c.ProjectID = strings.TrimSpace(c.ProjectID)
	if c.ProjectID == "" {
		return Credential{}, errors.New("firebase credential has no project_id")
	}
	if c.Type != "" && c.Type != "service_account" {
		return Credential{}, fmt.Errorf("firebase credential type %q, want service_account", c.Type)
	}
	return c, nil
}

// FirebaseVerifier verifies Firebase Authentication ID tokens.
type FirebaseVerifier struct {
	projectID string
	verifier  *oidc.IDTokenVerifier
	logger    *slog.Logger
}

// NewFirebaseVerifier builds a verifier for cred's project that fetches
// signing keys from Google on demand. ctx bounds key fetches and should live
// as long as the verifier.
func NewFirebaseVerifier(ctx context.Context, cred Credential, logger *slog.Logger) *FirebaseVerifier {
	return NewFirebaseVerifierWithKeySet(cred.ProjectID, oidc.NewRemoteKeySet(ctx, firebaseJWKSURL), nil, logger)
}

// NewFirebaseVerifierWithKeySet builds a verifier against an explicit key set.
// now overrides the clock used for expiry checks; nil means time.Now.
func NewFirebaseVerifierWithKeySet(projectID string, keys oidc.KeySet, now func() time.Time, logger *slog.Logger) *FirebaseVerifier {
	if logger == nil {
		logger = slog.Default()
	}
	v := oidc.NewVerifier(firebaseIssuerPrefix+projectID, keys, &oidc.Config{
		ClientID: projectID,
		Now:      now,
	})
	return &FirebaseVerifier{projectID: projectID, verifier: v, logger: logger}
}

// Verify checks the token's signature, issuer, audience and expiry and
// returns the identity it asserts.
func (f *FirebaseVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, errors.New("empty token")
	}
	idToken, err := f.verifier.Verify(ctx, token)
	if err != nil {
		return nil, err
	}

	var claims struct {
		Subject       string `json:"sub"`
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("parse id token claims: %w", err)
	}
	if claims.Subject == "" {
		return nil, errors.New("id token has no subject")
	}

	f.logger.Debug("firebase id token verified",
		"project", f.projectID,
		"email_present", claims.Email != "",
		"email_verified", claims.EmailVerified,
		"expiry_unix", idToken.Expiry.Unix(),
	)

	return &Identity{
		Subject:       claims.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
	}, nil
}
