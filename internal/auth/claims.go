package auth

import "github.com/golang-jwt/jwt/v5"

// Claims is the access token shape issued by the auth provider.
// Subject carries the user id; SessionID identifies the sign-in that produced the token.
type Claims struct {
	jwt.RegisteredClaims

	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
	SessionID string `json:"session_id"`
}

// RoleAuthenticated is the role the auth provider stamps on signed-in users.
const RoleAuthenticated = "authenticated"
