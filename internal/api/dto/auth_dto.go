package dto

import "time"

// AdminLoginRequest payload.
type AdminLoginRequest struct {
	Usuario  string `json:"usuario"`
	Password string `json:"password"`
}

// TokenResponse carries an issued access token.
type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}
