package identity

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ManuelReschke/ChurchDesk/app/models"
)

// Identity is the verified caller of a request. It is passed by value and
// never stored beyond the request.
type Identity struct {
	UserID   uint        `json:"user_id"`
	Role     models.Role `json:"role"`
	ChurchID *uint       `json:"church_id,omitempty"`
}

// HasChurch reports whether the identity is scoped to a church.
func (i Identity) HasChurch() bool {
	return i.ChurchID != nil
}

type claims struct {
	Role     models.Role `json:"role"`
	ChurchID *uint       `json:"church_id,omitempty"`
	jwt.RegisteredClaims
}

const issuer = "churchdesk"

// Resolver signs and verifies credentials with a server-held secret.
type Resolver struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewResolver creates a resolver. ttl is the lifetime of issued tokens.
func NewResolver(secret string, ttl time.Duration) (*Resolver, error) {
	if len(secret) < 32 {
		return nil, errors.New("jwt secret must be at least 32 bytes")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Resolver{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// WithClock replaces the time source, used by tests.
func (r *Resolver) WithClock(now func() time.Time) *Resolver {
	r.now = now
	return r
}

// Issue mints a credential carrying the user's id, role and church.
func (r *Resolver) Issue(user *models.User) (string, error) {
	now := r.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Role:     user.Role,
		ChurchID: user.ChurchID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(r.ttl)),
		},
	})

	signed, err := token.SignedString(r.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Resolve decodes what a credential claims. Missing, tampered or expired
// credentials yield false. Whether the claims still match the stored user is
// checked by the caller.
func (r *Resolver) Resolve(raw string) (Identity, bool) {
	if raw == "" {
		return Identity{}, false
	}

	var c claims
	token, err := jwt.ParseWithClaims(raw, &c, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return r.secret, nil
	},
		jwt.WithTimeFunc(r.now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(issuer),
	)
	if err != nil || !token.Valid {
		return Identity{}, false
	}

	userID, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil || userID == 0 {
		return Identity{}, false
	}
	if !c.Role.Valid() {
		return Identity{}, false
	}

	return Identity{
		UserID:   uint(userID),
		Role:     c.Role,
		ChurchID: c.ChurchID,
	}, true
}
