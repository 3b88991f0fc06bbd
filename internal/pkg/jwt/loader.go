// internal/pkg/jwt/loader.go
package jwt

import (
	"fmt"
	"time"

	"rdm-service/internal/domain/user"
)

type Config struct {
	PrivPath string
	PubPath  string
	Issuer   string
	Audience string
	TTL      time.Duration
	KID      string
}

type Manager struct {
	Generator *Generator
	Verifier  *Verifier
}

// Generate mints a token for the identity, returning the token and its jti.
func (m *Manager) Generate(identity *user.Identity) (string, string, error) {
	return m.Generator.Generate(identity)
}

// Verify parses and validates a token.
func (m *Manager) Verify(token string) (*Claims, error) {
	return m.Verifier.Verify(token)
}

// LoadAndBuild reads the RSA keypair from disk once at startup. Rotating the
// keypair invalidates every outstanding token; there is no revocation list.
func LoadAndBuild(cfg Config) (*Manager, error) {
	priv, err := LoadRSAPrivateKeyFromPEM(cfg.PrivPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load private key from %s: %w", cfg.PrivPath, err)
	}

	pub, err := LoadRSAPublicKeyFromPEM(cfg.PubPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load public key from %s: %w", cfg.PubPath, err)
	}

	return &Manager{
		Generator: NewGenerator(priv, cfg.Issuer, cfg.Audience, cfg.KID, cfg.TTL),
		Verifier:  NewVerifier(pub, cfg.Issuer, cfg.Audience),
	}, nil
}
