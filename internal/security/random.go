package security

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
)

const (
	verificationCodeMin = 100000
	verificationCodeMax = 999999
)

// NewRandomString returns n random bytes encoded as unpadded base64url.
func NewRandomString(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func NewRegistrationToken() (string, error) {
	return NewRandomString(16)
}

func NewCSRFToken() (string, error) {
	return NewRandomString(32)
}

// NewVerificationCode returns a six digit code drawn uniformly from
// [100000, 999999].
func NewVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(verificationCodeMax-verificationCodeMin+1))
	if err != nil {
		return "", fmt.Errorf("generate verification code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+verificationCodeMin), nil
}
