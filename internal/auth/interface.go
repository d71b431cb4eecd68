package auth

import "studysync/internal/domain/models"

// JWTVerifier defines the interface for JWT token verification.
// The middleware depends on this, not on the JWKS details.
type JWTVerifier interface {
	// VerifyToken validates a JWT token string and returns the parsed claims.
	// Returns ErrUnauthorized if the token is invalid, expired, or has an invalid signature.
	VerifyToken(tokenString string) (*models.SupabaseClaims, error)

	// Close stops the background JWKS refresh
	Close() error
}
