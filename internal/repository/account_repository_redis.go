package repository

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/sandeepkv93/account-verification-service/internal/domain"
)

const (
	redisFieldEmail             = "email"
	redisFieldID                = "id"
	redisFieldPasswordHash      = "passwordHash"
	redisFieldVerified          = "isEmailVerified"
	redisFieldRegistrationToken = "registrationToken"
	redisFieldCode              = "verificationCode"
	redisFieldCodeExpiry        = "verificationCodeExpiry"
	redisFieldVerifiedAt        = "emailVerifiedAt"
	redisFieldCreatedAt         = "createdAt"
	redisFieldUpdatedAt         = "updatedAt"
)

// KEYS[1] account hash, KEYS[2] id index. ARGV[1] email, ARGV[2..] field/value pairs.
var redisAccountCreateScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 or redis.call("EXISTS", KEYS[2]) == 1 then
  return 0
end
redis.call("HSET", KEYS[1], unpack(ARGV, 2))
redis.call("SET", KEYS[2], ARGV[1])
return 1
`)

// KEYS[1] account hash.
// ARGV[1] unverified guard, ARGV[2]/[3] token guard flag/value, ARGV[4]/[5] code guard flag/value,
// ARGV[6] number of field/value pairs to set, then the pairs, then fields to delete.
var redisAccountUpdateScript = redis.NewScript(`
local key = KEYS[1]
if redis.call("EXISTS", key) == 0 then
  return 0
end
if ARGV[1] == "1" and redis.call("HGET", key, "isEmailVerified") == "1" then
  return 0
end
if ARGV[2] == "1" and redis.call("HGET", key, "registrationToken") ~= ARGV[3] then
  return 0
end
if ARGV[4] == "1" and redis.call("HGET", key, "verificationCode") ~= ARGV[5] then
  return 0
end
local set_pairs = tonumber(ARGV[6])
local idx = 7
if set_pairs > 0 then
  redis.call("HSET", key, unpack(ARGV, idx, idx + set_pairs * 2 - 1))
end
idx = idx + set_pairs * 2
if #ARGV >= idx then
  redis.call("HDEL", key, unpack(ARGV, idx))
end
return 1
`)

type RedisAccountRepository struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisAccountRepository(client redis.UniversalClient, prefix string) *RedisAccountRepository {
	if prefix == "" {
		prefix = "account"
	}
	return &RedisAccountRepository{client: client, prefix: prefix}
}

func (r *RedisAccountRepository) Create(ctx context.Context, account *domain.Account) error {
	now := time.Now().UTC()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	if account.UpdatedAt.IsZero() {
		account.UpdatedAt = account.CreatedAt
	}
	args := []any{account.Email}
	args = append(args, encodeRedisAccount(account)...)
	created, err := redisAccountCreateScript.Run(ctx, r.client, []string{r.accountKey(account.Email), r.idKey(account.ID)}, args...).Int64()
	if err != nil {
		return oops.Code(storeFailedCode).With("operation", "create").Wrap(err)
	}
	if created == 0 {
		return ErrConditionFailed
	}
	return nil
}

func (r *RedisAccountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	fields, err := r.client.HGetAll(ctx, r.accountKey(email)).Result()
	if err != nil {
		return nil, oops.Code(storeFailedCode).With("operation", "find_by_email").Wrap(err)
	}
	if len(fields) == 0 {
		return nil, ErrAccountNotFound
	}
	account, err := decodeRedisAccount(fields)
	if err != nil {
		return nil, oops.Code(storeFailedCode).With("operation", "decode").Wrap(err)
	}
	return account, nil
}

func (r *RedisAccountRepository) UpdateIf(ctx context.Context, email string, patch AccountPatch, cond AccountCondition) error {
	ok, err := r.runUpdate(ctx, email, patch, cond)
	if err != nil {
		return oops.Code(storeFailedCode).With("operation", "update_if").Wrap(err)
	}
	if !ok {
		return ErrConditionFailed
	}
	return nil
}

func (r *RedisAccountRepository) Update(ctx context.Context, email string, patch AccountPatch) error {
	ok, err := r.runUpdate(ctx, email, patch, AccountCondition{})
	if err != nil {
		return oops.Code(storeFailedCode).With("operation", "update").Wrap(err)
	}
	if !ok {
		return ErrAccountNotFound
	}
	return nil
}

func (r *RedisAccountRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisAccountRepository) runUpdate(ctx context.Context, email string, patch AccountPatch, cond AccountCondition) (bool, error) {
	args := []any{flag(cond.Unverified), flag(cond.RegistrationToken != nil), deref(cond.RegistrationToken),
		flag(cond.VerificationCode != nil), deref(cond.VerificationCode)}

	set, del := redisPatch(patch)
	args = append(args, len(set)/2)
	args = append(args, set...)
	for _, f := range del {
		args = append(args, f)
	}
	n, err := redisAccountUpdateScript.Run(ctx, r.client, []string{r.accountKey(email)}, args...).Int64()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *RedisAccountRepository) accountKey(email string) string {
	return r.prefix + ":email:" + email
}

func (r *RedisAccountRepository) idKey(id string) string {
	return r.prefix + ":id:" + id
}

func redisPatch(patch AccountPatch) (set []any, del []string) {
	now := patch.timestamp()
	set = append(set, redisFieldUpdatedAt, formatRedisTime(now))
	if patch.PasswordHash != nil {
		set = append(set, redisFieldPasswordHash, *patch.PasswordHash)
	}
	if patch.MarkEmailVerified {
		set = append(set, redisFieldVerified, "1", redisFieldVerifiedAt, formatRedisTime(now))
		del = []string{redisFieldRegistrationToken, redisFieldCode, redisFieldCodeExpiry}
		return set, del
	}
	if patch.VerificationCode != nil {
		set = append(set, redisFieldCode, *patch.VerificationCode)
	}
	if patch.VerificationCodeExpiry != nil {
		set = append(set, redisFieldCodeExpiry, formatRedisTime(*patch.VerificationCodeExpiry))
	}
	return set, nil
}

func encodeRedisAccount(a *domain.Account) []any {
	out := []any{
		redisFieldEmail, a.Email,
		redisFieldID, a.ID,
		redisFieldPasswordHash, a.PasswordHash,
		redisFieldVerified, flag(a.IsEmailVerified),
		redisFieldCreatedAt, formatRedisTime(a.CreatedAt),
		redisFieldUpdatedAt, formatRedisTime(a.UpdatedAt),
	}
	if a.RegistrationToken != nil {
		out = append(out, redisFieldRegistrationToken, *a.RegistrationToken)
	}
	if a.VerificationCode != nil {
		out = append(out, redisFieldCode, *a.VerificationCode)
	}
	if a.VerificationCodeExpiry != nil {
		out = append(out, redisFieldCodeExpiry, formatRedisTime(*a.VerificationCodeExpiry))
	}
	if a.EmailVerifiedAt != nil {
		out = append(out, redisFieldVerifiedAt, formatRedisTime(*a.EmailVerifiedAt))
	}
	return out
}

func decodeRedisAccount(fields map[string]string) (*domain.Account, error) {
	a := &domain.Account{
		Email:           fields[redisFieldEmail],
		ID:              fields[redisFieldID],
		PasswordHash:    fields[redisFieldPasswordHash],
		IsEmailVerified: fields[redisFieldVerified] == "1",
	}
	var err error
	if a.CreatedAt, err = parseRedisTime(fields[redisFieldCreatedAt]); err != nil {
		return nil, err
	}
	if a.UpdatedAt, err = parseRedisTime(fields[redisFieldUpdatedAt]); err != nil {
		return nil, err
	}
	if v, ok := fields[redisFieldRegistrationToken]; ok {
		a.RegistrationToken = &v
	}
	if v, ok := fields[redisFieldCode]; ok {
		a.VerificationCode = &v
	}
	if v, ok := fields[redisFieldCodeExpiry]; ok {
		ts, err := parseRedisTime(v)
		if err != nil {
			return nil, err
		}
		a.VerificationCodeExpiry = &ts
	}
	if v, ok := fields[redisFieldVerifiedAt]; ok {
		ts, err := parseRedisTime(v)
		if err != nil {
			return nil, err
		}
		a.EmailVerifiedAt = &ts
	}
	return a, nil
}

func formatRedisTime(t time.Time) string {
	return strconv.FormatInt(t.UTC().UnixNano(), 10)
}

func parseRedisTime(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(0, n).UTC(), nil
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
