package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/matheus3301/schoolchat/internal/chat"
)

var (
	ErrNoToken   = errors.New("no bearer token")
	ErrNoSubject = errors.New("token carries no user id")
	ErrExpired   = errors.New("token expired")
)

// IdentityFromToken reads the signed-in user from a bearer token. The
// signature is not checked here: the API does that on every request, the
// client only needs the claims to know who it is.
func IdentityFromToken(token string) (chat.Identity, error) {
	token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))
	if token == "" {
		return chat.Identity{}, ErrNoToken
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return chat.Identity{}, fmt.Errorf("parse token: %w", err)
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil && exp.Before(time.Now()) {
		return chat.Identity{}, ErrExpired
	}
	return identityFromClaims(claims, token)
}

// Verify checks an HS256 token against secret and returns its identity.
func Verify(token string, secret []byte) (chat.Identity, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return chat.Identity{}, ErrExpired
		}
		return chat.Identity{}, fmt.Errorf("verify token: %w", err)
	}
	return identityFromClaims(claims, token)
}

// Sign issues an HS256 token for id, valid for ttl.
func Sign(id chat.Identity, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":     id.UserID,
		"user_id": id.UserID,
		"role":    id.Role,
		"name":    id.Name,
		"iat":     now.Unix(),
	}
	if ttl > 0 {
		claims["exp"] = now.Add(ttl).Unix()
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func identityFromClaims(claims jwt.MapClaims, token string) (chat.Identity, error) {
	id := chat.Identity{
		UserID: claimString(claims, "user_id"),
		Role:   claimString(claims, "role"),
		Name:   claimString(claims, "name"),
		Token:  token,
	}
	if id.UserID == "" {
		id.UserID = claimString(claims, "id")
	}
	if id.UserID == "" {
		id.UserID, _ = claims.GetSubject()
	}
	if id.Name == "" {
		id.Name = claimString(claims, "full_name")
	}
	if id.UserID == "" {
		return chat.Identity{}, ErrNoSubject
	}
	return id, nil
}

// claimString reads a claim that may be encoded as a string or a number.
func claimString(claims jwt.MapClaims, key string) string {
	switch v := claims[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}
