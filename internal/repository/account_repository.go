package repository

import (
	"context"
	"errors"
	"time"

	"github.com/samber/oops"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sandeepkv93/account-verification-service/internal/domain"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	// ErrConditionFailed is returned when a conditional write finds the
	// record missing or its guarded fields no longer match.
	ErrConditionFailed = errors.New("account condition failed")
)

const storeFailedCode = "ACCOUNT_STORE_FAILED"

// AccountPatch lists the mutations a write applies. Nil pointers leave the
// field untouched. MarkEmailVerified wins over the code fields and removes
// every transient verification attribute.
type AccountPatch struct {
	VerificationCode       *string
	VerificationCodeExpiry *time.Time
	PasswordHash           *string
	MarkEmailVerified      bool
	At                     time.Time
}

// AccountCondition guards UpdateIf. Nil pointers are not checked.
type AccountCondition struct {
	RegistrationToken *string
	VerificationCode  *string
	Unverified        bool
}

type AccountRepository interface {
	// Create inserts the account only when neither its email nor its id exist.
	Create(ctx context.Context, account *domain.Account) error
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
	UpdateIf(ctx context.Context, email string, patch AccountPatch, cond AccountCondition) error
	Update(ctx context.Context, email string, patch AccountPatch) error
	Ping(ctx context.Context) error
}

func (p AccountPatch) timestamp() time.Time {
	if p.At.IsZero() {
		return time.Now().UTC()
	}
	return p.At.UTC()
}

// Matches evaluates the condition against an in-memory account.
func (c AccountCondition) Matches(a *domain.Account) bool {
	if a == nil {
		return false
	}
	if c.Unverified && a.IsEmailVerified {
		return false
	}
	if c.RegistrationToken != nil && (a.RegistrationToken == nil || *a.RegistrationToken != *c.RegistrationToken) {
		return false
	}
	if c.VerificationCode != nil && (a.VerificationCode == nil || *a.VerificationCode != *c.VerificationCode) {
		return false
	}
	return true
}

// Apply mutates an in-memory account the same way the stores do.
func (p AccountPatch) Apply(a *domain.Account) {
	now := p.timestamp()
	if p.PasswordHash != nil {
		a.PasswordHash = *p.PasswordHash
	}
	if p.MarkEmailVerified {
		a.IsEmailVerified = true
		a.EmailVerifiedAt = &now
		a.RegistrationToken = nil
		a.VerificationCode = nil
		a.VerificationCodeExpiry = nil
	} else {
		if p.VerificationCode != nil {
			code := *p.VerificationCode
			a.VerificationCode = &code
		}
		if p.VerificationCodeExpiry != nil {
			exp := p.VerificationCodeExpiry.UTC()
			a.VerificationCodeExpiry = &exp
		}
	}
	a.UpdatedAt = now
}

type GormAccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &GormAccountRepository{db: db}
}

func (r *GormAccountRepository) Create(ctx context.Context, account *domain.Account) error {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(account)
	if res.Error != nil {
		return oops.Code(storeFailedCode).With("operation", "create").Wrap(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrConditionFailed
	}
	return nil
}

func (r *GormAccountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	var a domain.Account
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, oops.Code(storeFailedCode).With("operation", "find_by_email").Wrap(err)
	}
	return &a, nil
}

func (r *GormAccountRepository) UpdateIf(ctx context.Context, email string, patch AccountPatch, cond AccountCondition) error {
	q := r.db.WithContext(ctx).Model(&domain.Account{}).Where("email = ?", email)
	if cond.Unverified {
		q = q.Where("is_email_verified = ?", false)
	}
	if cond.RegistrationToken != nil {
		q = q.Where("registration_token = ?", *cond.RegistrationToken)
	}
	if cond.VerificationCode != nil {
		q = q.Where("verification_code = ?", *cond.VerificationCode)
	}
	res := q.Updates(gormUpdates(patch))
	if res.Error != nil {
		return oops.Code(storeFailedCode).With("operation", "update_if").Wrap(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrConditionFailed
	}
	return nil
}

func (r *GormAccountRepository) Update(ctx context.Context, email string, patch AccountPatch) error {
	res := r.db.WithContext(ctx).Model(&domain.Account{}).Where("email = ?", email).Updates(gormUpdates(patch))
	if res.Error != nil {
		return oops.Code(storeFailedCode).With("operation", "update").Wrap(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (r *GormAccountRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func gormUpdates(patch AccountPatch) map[string]any {
	now := patch.timestamp()
	updates := map[string]any{"updated_at": now}
	if patch.PasswordHash != nil {
		updates["password_hash"] = *patch.PasswordHash
	}
	if patch.MarkEmailVerified {
		updates["is_email_verified"] = true
		updates["email_verified_at"] = now
		updates["registration_token"] = nil
		updates["verification_code"] = nil
		updates["verification_code_expiry"] = nil
		return updates
	}
	if patch.VerificationCode != nil {
		updates["verification_code"] = *patch.VerificationCode
	}
	if patch.VerificationCodeExpiry != nil {
		updates["verification_code_expiry"] = patch.VerificationCodeExpiry.UTC()
	}
	return updates
}
