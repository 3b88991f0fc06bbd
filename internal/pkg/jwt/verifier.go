// internal/pkg/jwt/verifier.go
package jwt

import (
	"crypto/rsa"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	xerrors "rdm-service/internal/pkg/errors"
)

type Verifier struct {
	pub      *rsa.PublicKey
	issuer   string
	audience string
}

func NewVerifier(pub *rsa.PublicKey, issuer, audience string) *Verifier {
	return &Verifier{
		pub:      pub,
		issuer:   issuer,
		audience: audience,
	}
}

// Verify validates signature, expiry, issuer, and audience, and returns the
// decoded claims. Expired tokens yield xerrors.ErrTokenExpired; every other
// failure yields xerrors.ErrTokenMalformed.
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	if v.pub == nil {
		return nil, fmt.Errorf("jwt verifier has nil public key")
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.pub, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, xerrors.ErrTokenExpired
		}
		return nil, xerrors.ErrTokenMalformed
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, xerrors.ErrTokenMalformed
	}

	if claims.Issuer != v.issuer {
		return nil, xerrors.ErrTokenMalformed
	}

	if !claims.VerifyAudience(v.audience, true) {
		return nil, xerrors.ErrTokenMalformed
	}

	return claims, nil
}
