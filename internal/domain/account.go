package domain

import "time"

// Account is the single record kept per registered email address.
type Account struct {
	Email                  string     `gorm:"primaryKey;size:320" json:"email" dynamodbav:"email"`
	ID                     string     `gorm:"uniqueIndex;size:36;not null" json:"id" dynamodbav:"id"`
	PasswordHash           string     `gorm:"size:1024;not null" json:"-" dynamodbav:"passwordHash"`
	IsEmailVerified        bool       `gorm:"not null;default:false" json:"is_email_verified" dynamodbav:"isEmailVerified"`
	RegistrationToken      *string    `gorm:"size:64" json:"-" dynamodbav:"registrationToken,omitempty"`
	VerificationCode       *string    `gorm:"size:16" json:"-" dynamodbav:"verificationCode,omitempty"`
	VerificationCodeExpiry *time.Time `json:"-" dynamodbav:"verificationCodeExpiry,omitempty"`
	EmailVerifiedAt        *time.Time `json:"email_verified_at,omitempty" dynamodbav:"emailVerifiedAt,omitempty"`
	CreatedAt              time.Time  `json:"created_at" dynamodbav:"createdAt"`
	UpdatedAt              time.Time  `json:"updated_at" dynamodbav:"updatedAt"`
}

// HasPendingVerification reports whether a code has been issued and not yet consumed.
func (a *Account) HasPendingVerification() bool {
	return a.VerificationCode != nil && a.VerificationCodeExpiry != nil
}
