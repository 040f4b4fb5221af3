package dto

import "github.com/SscSPs/erp_ledger/internal/core/domain"

// CreateAPITokenRequest issues a key for an integration client.
type CreateAPITokenRequest struct {
	Name          string   `json:"name" binding:"required,max=100"`
	Permissions   []string `json:"permissions" binding:"required,min=1,dive,required"`
	ExpiresInDays *int     `json:"expiresInDays,omitempty" binding:"omitempty,min=1,max=730"`
}

// CreateAPITokenResponse returns the plaintext key exactly once.
type CreateAPITokenResponse struct {
	Token  domain.APIToken `json:"token"`
	Secret string          `json:"secret"`
}
