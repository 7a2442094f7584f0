package services

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// AuthService authenticates the single tournament owner. The plaintext
// password from configuration is hashed once at startup; requests are then
// compared against the hash only.
type AuthService interface {
	Login(ctx context.Context, password string) error
}

type authService struct {
	ownerHash []byte
}

func NewAuthService(ownerPassword string) (AuthService, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(ownerPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash owner password: %w", err)
	}
	return &authService{ownerHash: hash}, nil
}

func (s *authService) Login(ctx context.Context, password string) error {
	err := bcrypt.CompareHashAndPassword(s.ownerHash, []byte(password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrAuthInvalidCredentials
		}
		return err
	}
	return nil
}
