package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// RoleAdmin is the only role the operator API issues.
const RoleAdmin = "admin"

// AdminClaims is the typed JWT handed to storefront operators.
type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}
