// Package jwt implements authgate.IdentityProvider for self-issued bearer
// tokens: the entire AuthInfo is encoded into the token's claims at mint
// time, so Resolve needs nothing beyond the token itself to reconstruct
// it. Grounded on the teacher's authn/jwt package (claims shape, signing
// method, keyFunc pattern) generalized from a session/refresh-token pair
// to a single self-contained access token carrying the AAA allow-sets.
package jwt

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/tierforge/tierserve/schema"
	"github.com/tierforge/tierserve/types/consts"
)

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrTokenExpired     = errors.New("token expired")
	ErrTokenNotValidYet = errors.New("token not valid yet")
	ErrTokenMalformed   = errors.New("token malformed")
)

// Claims carries the full resolved AuthInfo inside the token, so a
// self-issued token never needs a round trip to any driver to resolve.
type Claims struct {
	Realm    string   `json:"realm,omitempty"`
	Username string   `json:"username,omitempty"`
	Admin    bool     `json:"admin,omitempty"`
	Policies []string `json:"policies,omitempty"`

	ReadAllowed   []string `json:"read_allowed,omitempty"`
	CreateAllowed []string `json:"create_allowed,omitempty"`
	UpdateAllowed []string `json:"update_allowed,omitempty"`
	DeleteAllowed []string `json:"delete_allowed,omitempty"`

	jwt.RegisteredClaims
}

// Codec mints and verifies self-issued access tokens with a shared
// secret, HS256-signed like the teacher's authn/jwt.
type Codec struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
}

func New(secret string, ttl time.Duration) *Codec {
	return &Codec{Secret: []byte(secret), Issuer: consts.FrameworkName, TTL: ttl}
}

// Mint encodes info into a signed token valid for c.TTL.
func (c *Codec) Mint(info *schema.AuthInfo) (string, error) {
	now := time.Now()
	claims := Claims{
		Realm:         info.Realm,
		Username:      info.Username,
		Admin:         info.Admin,
		Policies:      info.Policies,
		ReadAllowed:   setToSlice(info.ReadAllowed),
		CreateAllowed: setToSlice(info.CreateAllowed),
		UpdateAllowed: setToSlice(info.UpdateAllowed),
		DeleteAllowed: setToSlice(info.DeleteAllowed),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(c.TTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    c.Issuer,
			Subject:   info.Username,
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.Secret)
	if err != nil {
		return "", errors.Wrap(err, "failed to mint access token")
	}
	return token, nil
}

// Resolve implements authgate.IdentityProvider: parse, verify signature
// and expiry, then rebuild the AuthInfo from the claims directly.
func (c *Codec) Resolve(_ context.Context, token string) (*schema.AuthInfo, error) {
	claims := new(Claims)
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) { return c.Secret, nil })
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			return nil, ErrTokenNotValidYet
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrTokenMalformed
		default:
			return nil, errors.Wrap(err, "failed to parse access token")
		}
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Issuer != c.Issuer {
		return nil, errors.New("invalid token issuer")
	}

	return &schema.AuthInfo{
		Realm:         claims.Realm,
		Username:      claims.Username,
		Admin:         claims.Admin,
		Policies:      claims.Policies,
		ReadAllowed:   sliceToSet(claims.ReadAllowed),
		CreateAllowed: sliceToSet(claims.CreateAllowed),
		UpdateAllowed: sliceToSet(claims.UpdateAllowed),
		DeleteAllowed: sliceToSet(claims.DeleteAllowed),
	}, nil
}

func setToSlice(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}

func sliceToSet(s []string) map[string]struct{} {
	if len(s) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(s))
	for _, v := range s {
		out[v] = struct{}{}
	}
	return out
}
