package service

import (
	"context"

	"github.com/sandeepkv93/account-verification-service/internal/domain"
)

type RegistrationServiceInterface interface {
	Register(ctx context.Context, email, password string) (*RegistrationResult, error)
}

type VerificationServiceInterface interface {
	Issue(ctx context.Context, email, registrationToken string) (string, error)
	Verify(ctx context.Context, email, registrationToken, code string) error
}

type AuthServiceInterface interface {
	Authenticate(ctx context.Context, email, password string) (*LoginResult, error)
	Profile(ctx context.Context, email string) (*domain.Account, error)
}
