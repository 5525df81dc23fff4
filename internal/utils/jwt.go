// Package utils mints the HS256 access tokens the API accepts.  Session
// handling lives with the identity provider; tokens minted here serve
// operators, local runs and tests.
package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iliyamo/travel-booking/internal/model"
)

// AccessToken is a signed JWT and its expiry.
type AccessToken struct {
	Token string
	Exp   time.Time
}

// NewAccessToken signs a token for subject with the given role, valid for
// ttl.  Claims: sub, role, exp, iat.
func NewAccessToken(secret, subject string, role model.Role, ttl time.Duration) (AccessToken, error) {
	switch {
	case strings.TrimSpace(secret) == "":
		return AccessToken{}, fmt.Errorf("signing secret is empty")
	case strings.TrimSpace(subject) == "":
		return AccessToken{}, fmt.Errorf("subject is empty")
	case role != model.RoleCustomer && role != model.RoleAdmin:
		return AccessToken{}, fmt.Errorf("unsupported role %q", role)
	case ttl <= 0:
		return AccessToken{}, fmt.Errorf("ttl must be positive")
	}
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := jwt.MapClaims{
		"sub":  subject,
		"role": string(role),
		"exp":  exp.Unix(),
		"iat":  now.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}
