package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/sandeepkv93/account-verification-service/internal/domain"
	"github.com/sandeepkv93/account-verification-service/internal/repository"
	"github.com/sandeepkv93/account-verification-service/internal/security"
)

func flowStoresForTest() map[string]func(t *testing.T) repository.AccountRepository {
	return map[string]func(t *testing.T) repository.AccountRepository{
		"gorm": func(t *testing.T) repository.AccountRepository {
			dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
			db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
			if err != nil {
				t.Fatalf("open sqlite: %v", err)
			}
			sqlDB, err := db.DB()
			if err != nil {
				t.Fatalf("sql db: %v", err)
			}
			sqlDB.SetMaxOpenConns(1)
			t.Cleanup(func() { _ = sqlDB.Close() })
			if err := db.AutoMigrate(&domain.Account{}); err != nil {
				t.Fatalf("migrate: %v", err)
			}
			return repository.NewAccountRepository(db)
		},
		"redis": func(t *testing.T) repository.AccountRepository {
			m := miniredis.RunT(t)
			client := redis.NewClient(&redis.Options{Addr: m.Addr()})
			t.Cleanup(func() { _ = client.Close() })
			return repository.NewRedisAccountRepository(client, "flow")
		},
	}
}

type flowServices struct {
	store        repository.AccountRepository
	sender       *emailSenderState
	jwt          *security.JWTManager
	registration *RegistrationService
	verification *VerificationService
	auth         *AuthService
}

func newFlowServices(store repository.AccountRepository) *flowServices {
	sender := &emailSenderState{}
	hasher := security.NewPasswordHasher()
	jwtMgr := security.NewJWTManager("issuer", "aud", testJWTSecret)
	logger := discardLogger()
	return &flowServices{
		store:        store,
		sender:       sender,
		jwt:          jwtMgr,
		registration: NewRegistrationService(store, hasher, logger),
		verification: NewVerificationService(store, sender, 15*time.Minute, logger),
		auth:         NewAuthService(store, hasher, jwtMgr, time.Hour, logger),
	}
}

func (f *flowServices) issuedCode(t *testing.T, email string) string {
	t.Helper()
	acct, err := f.store.FindByEmail(context.Background(), email)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if acct.VerificationCode == nil {
		t.Fatal("expected issued code")
	}
	return *acct.VerificationCode
}

func TestSignupFlowAcrossStores(t *testing.T) {
	for name, newStore := range flowStoresForTest() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			f := newFlowServices(newStore(t))

			res, err := f.registration.Register(ctx, "Flow@Example.com", "correct horse")
			if err != nil {
				t.Fatalf("register: %v", err)
			}
			if _, err := f.auth.Authenticate(ctx, "flow@example.com", "correct horse"); !errors.Is(err, ErrNotVerified) {
				t.Fatalf("expected ErrNotVerified before verification, got %v", err)
			}
			if _, err := f.verification.Issue(ctx, "flow@example.com", res.RegistrationToken); err != nil {
				t.Fatalf("issue: %v", err)
			}
			code := f.issuedCode(t, "flow@example.com")
			msg, ok := f.sender.last()
			if !ok || !strings.Contains(msg.Text, code) {
				t.Fatalf("expected emailed code %s, got %+v", code, msg)
			}

			if err := f.verification.Verify(ctx, "flow@example.com", res.RegistrationToken, code); err != nil {
				t.Fatalf("verify: %v", err)
			}
			acct, err := f.store.FindByEmail(ctx, "flow@example.com")
			if err != nil {
				t.Fatalf("find: %v", err)
			}
			if !acct.IsEmailVerified || acct.RegistrationToken != nil || acct.VerificationCode != nil || acct.VerificationCodeExpiry != nil {
				t.Fatalf("unexpected verified account %+v", acct)
			}

			login, err := f.auth.Authenticate(ctx, "flow@example.com", "correct horse")
			if err != nil {
				t.Fatalf("authenticate: %v", err)
			}
			claims, err := f.jwt.ParseSessionToken(login.SessionToken)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if claims.Subject != res.AccountID {
				t.Fatalf("expected subject %s, got %s", res.AccountID, claims.Subject)
			}
			if _, err := f.auth.Authenticate(ctx, "flow@example.com", "wrong horse"); !errors.Is(err, ErrInvalidCredentials) {
				t.Fatalf("expected ErrInvalidCredentials, got %v", err)
			}
		})
	}
}

func TestConcurrentRegistrationSingleWinner(t *testing.T) {
	for name, newStore := range flowStoresForTest() {
		t.Run(name, func(t *testing.T) {
			f := newFlowServices(newStore(t))
			f.registration.hasher = plainHasher{}
			const workers = 8
			var wins, conflicts atomic.Int32
			var wg sync.WaitGroup
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := f.registration.Register(context.Background(), "race@example.com", "password")
					switch {
					case err == nil:
						wins.Add(1)
					case errors.Is(err, ErrEmailAlreadyRegistered):
						conflicts.Add(1)
					}
				}()
			}
			wg.Wait()
			if wins.Load() != 1 || conflicts.Load() != workers-1 {
				t.Fatalf("expected 1 win and %d conflicts, got %d and %d", workers-1, wins.Load(), conflicts.Load())
			}
		})
	}
}

func TestConcurrentVerifySingleWinner(t *testing.T) {
	for name, newStore := range flowStoresForTest() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			f := newFlowServices(newStore(t))
			res, err := f.registration.Register(ctx, "race@example.com", "password")
			if err != nil {
				t.Fatalf("register: %v", err)
			}
			if _, err := f.verification.Issue(ctx, "race@example.com", res.RegistrationToken); err != nil {
				t.Fatalf("issue: %v", err)
			}
			code := f.issuedCode(t, "race@example.com")

			const workers = 6
			var wins atomic.Int32
			var wg sync.WaitGroup
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if err := f.verification.Verify(ctx, "race@example.com", res.RegistrationToken, code); err == nil {
						wins.Add(1)
					} else if !errors.Is(err, ErrInvalidToken) {
						t.Errorf("unexpected verify error: %v", err)
					}
				}()
			}
			wg.Wait()
			if wins.Load() != 1 {
				t.Fatalf("expected exactly one successful verify, got %d", wins.Load())
			}
		})
	}
}
