// Package auth issues and verifies bearer tokens, and tells which node a request acts for.
package auth

import (
	"errors"
	"fmt"
	"time"

	fdb "github.com/fairtrace/fairtrace/pkg/db"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid token")

type Role string

const (
	// members act for their own node.
	Member Role = "member"

	// admins act for their own node, and manage claims and supply chains.
	Admin Role = "admin"

	// the platform operator may act for any node.
	Platform Role = "platform"
)

func AsRole(s string) (Role, error) {
	switch Role(s) {
	case Member, Admin, Platform:
		return Role(s), nil
	default:
		return Role(s), fdb.NewErrInvalidParam("role", fmt.Sprintf("unknown role: %s", s))
	}
}

type Claims struct {
	jwt.RegisteredClaims

	// private claims
	NodeId string `json:"node"`
	Role   Role   `json:"role"`
}

// Principal is who is requesting.
type Principal struct {
	User   string
	NodeId string
	Role   Role
}

// Issue makes a HS256 token for the principal, valid for ttl.
func Issue(secret []byte, issuer string, p Principal, ttl time.Duration, now time.Time) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("secret is empty")
	}
	if _, err := AsRole(string(p.Role)); err != nil {
		return "", err
	}
	if p.Role != Platform && p.NodeId == "" {
		return "", fdb.NewErrInvalidParam("node", "required for "+string(p.Role))
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer,
			Subject:   p.User,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		NodeId: p.NodeId,
		Role:   p.Role,
	})
	return tok.SignedString(secret)
}

// Verify checks the token, and returns the principal.
//
// Errors caused by the token are ErrInvalidToken.
func Verify(secret []byte, issuer string, token string) (Principal, error) {
	claims := new(Claims)
	options := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name})}
	if issuer != "" {
		options = append(options, jwt.WithIssuer(issuer))
	}

	_, err := jwt.ParseWithClaims(
		token, claims,
		func(t *jwt.Token) (interface{}, error) { return secret, nil },
		options...,
	)
	if err != nil {
		return Principal{}, errors.Join(ErrInvalidToken, err)
	}

	if _, err := AsRole(string(claims.Role)); err != nil {
		return Principal{}, errors.Join(ErrInvalidToken, err)
	}
	return Principal{User: claims.Subject, NodeId: claims.NodeId, Role: claims.Role}, nil
}

// ActingNode tells the node which the principal acts for.
//
// requested is the node the request asks to act for (empty: the principal's own node).
// Only the platform role can act for other nodes.
func (p Principal) ActingNode(requested string) (string, error) {
	if requested == "" || requested == p.NodeId {
		if p.NodeId == "" {
			return "", fdb.NewErrInvalidParam("node", "the acting node should be specified")
		}
		return p.NodeId, nil
	}
	if p.Role != Platform {
		return "", fdb.NewErrForbidden(p.NodeId, "act for node "+requested)
	}
	return requested, nil
}

// Can tells the principal may perform operations of the node.
func (p Principal) Can(nodeId string) bool {
	return p.Role == Platform || p.NodeId == nodeId
}

// IsAdmin tells the principal may manage shared definitions (claims, supply chains, products).
func (p Principal) IsAdmin() bool {
	return p.Role == Admin || p.Role == Platform
}
