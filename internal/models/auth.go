package models

import "github.com/golang-jwt/jwt/v5"

// TokenClaims are the JWT claims carried by an access token. Role and the
// daily limits are snapshotted at issue time; the middleware re-reads the
// authoritative values from the identity store on each request.
type TokenClaims struct {
	UserID string `json:"uid"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}
