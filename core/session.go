package core

import (
	"context"
)

// Session user session
type Session interface {
	// Login return the user id the access token was issued to
	Login(ctx context.Context, accessToken string) (string, error)
}

// SessionConfig access token settings
type SessionConfig struct {
	Secret   string `json:"secret" valid:"required"`
	Issuer   string `json:"issuer"`
	Capacity int    `json:"capacity"`
}
