// Package auth define el contrato de verificación de identidad que
// consume el middleware HTTP. El adapter concreto vive en
// adapters/auth/authsvc; en dev el router funciona sin verifier.
package auth

import "context"

// Claims es la identidad mínima que necesitan los handlers: todas las
// decisiones de autorización del marketplace se toman por user id.
type Claims struct {
	UserID string
}

// Verifier valida un token de portador y devuelve los claims.
type Verifier interface {
	Verify(ctx context.Context, token string) (Claims, error)
}
