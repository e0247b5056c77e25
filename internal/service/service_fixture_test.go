package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"go.uber.org/mock/gomock"

	"github.com/sandeepkv93/account-verification-service/internal/domain"
	"github.com/sandeepkv93/account-verification-service/internal/repository"
	repogomock "github.com/sandeepkv93/account-verification-service/internal/repository/gomock"
	"github.com/sandeepkv93/account-verification-service/internal/security"
)

const testJWTSecret = "abcdefghijklmnopqrstuvwxyz123456"

type tNop struct{}

func (tNop) Errorf(string, ...any) {}
func (tNop) Fatalf(string, ...any) {}
func (tNop) Helper()               {}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type accountStoreState struct {
	mu        sync.Mutex
	byEmail   map[string]*domain.Account
	ids       map[string]string
	createErr error
	findErr   error
	updateErr error
	creates   int
	updates   int
}

func newAccountStoreState() *accountStoreState {
	return &accountStoreState{byEmail: map[string]*domain.Account{}, ids: map[string]string{}}
}

func (s *accountStoreState) Create(_ context.Context, a *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creates++
	if s.createErr != nil {
		return s.createErr
	}
	if _, ok := s.byEmail[a.Email]; ok {
		return repository.ErrConditionFailed
	}
	if _, ok := s.ids[a.ID]; ok {
		return repository.ErrConditionFailed
	}
	s.byEmail[a.Email] = cloneAccount(a)
	s.ids[a.ID] = a.Email
	return nil
}

func (s *accountStoreState) FindByEmail(_ context.Context, email string) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	a, ok := s.byEmail[email]
	if !ok {
		return nil, repository.ErrAccountNotFound
	}
	return cloneAccount(a), nil
}

func (s *accountStoreState) UpdateIf(_ context.Context, email string, patch repository.AccountPatch, cond repository.AccountCondition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates++
	if s.updateErr != nil {
		return s.updateErr
	}
	a, ok := s.byEmail[email]
	if !ok || !cond.Matches(a) {
		return repository.ErrConditionFailed
	}
	patch.Apply(a)
	return nil
}

func (s *accountStoreState) Update(_ context.Context, email string, patch repository.AccountPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates++
	if s.updateErr != nil {
		return s.updateErr
	}
	a, ok := s.byEmail[email]
	if !ok {
		return repository.ErrAccountNotFound
	}
	patch.Apply(a)
	return nil
}

func (s *accountStoreState) Ping(context.Context) error { return nil }

func (s *accountStoreState) get(email string) *domain.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byEmail[email]
	if !ok {
		return nil
	}
	return cloneAccount(a)
}

func (s *accountStoreState) put(a *domain.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byEmail[a.Email] = cloneAccount(a)
	s.ids[a.ID] = a.Email
}

func (s *accountStoreState) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byEmail)
}

func cloneAccount(a *domain.Account) *domain.Account {
	c := *a
	if a.RegistrationToken != nil {
		v := *a.RegistrationToken
		c.RegistrationToken = &v
	}
	if a.VerificationCode != nil {
		v := *a.VerificationCode
		c.VerificationCode = &v
	}
	if a.VerificationCodeExpiry != nil {
		v := *a.VerificationCodeExpiry
		c.VerificationCodeExpiry = &v
	}
	if a.EmailVerifiedAt != nil {
		v := *a.EmailVerifiedAt
		c.EmailVerifiedAt = &v
	}
	return &c
}

type emailSenderState struct {
	mu   sync.Mutex
	sent []EmailMessage
	err  error
}

func (s *emailSenderState) Send(_ context.Context, msg EmailMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func (s *emailSenderState) last() (EmailMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sent) == 0 {
		return EmailMessage{}, false
	}
	return s.sent[len(s.sent)-1], true
}

// plainHasher keeps service tests fast; the argon2 path is covered in security.
type plainHasher struct {
	err error
}

func (h plainHasher) Hash(p string) (string, error) {
	if h.err != nil {
		return "", h.err
	}
	return "plain$" + p, nil
}

func (h plainHasher) Verify(p, encoded string) bool {
	return encoded == "plain$"+p
}

type stubSigner struct {
	err error
}

func (s stubSigner) SignSessionToken(string, string, time.Duration) (string, time.Time, error) {
	return "", time.Time{}, s.err
}

type serviceFixture struct {
	clock        *testClock
	store        *accountStoreState
	sender       *emailSenderState
	jwt          *security.JWTManager
	registration *RegistrationService
	verification *VerificationService
	auth         *AuthService
}

func newServiceFixture() *serviceFixture {
	clock := &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := newAccountStoreState()
	sender := &emailSenderState{}

	ctrl := gomock.NewController(tNop{})
	repoMock := repogomock.NewMockAccountRepository(ctrl)
	repoMock.EXPECT().Create(gomock.Any(), gomock.Any()).AnyTimes().DoAndReturn(store.Create)
	repoMock.EXPECT().FindByEmail(gomock.Any(), gomock.Any()).AnyTimes().DoAndReturn(store.FindByEmail)
	repoMock.EXPECT().UpdateIf(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes().DoAndReturn(store.UpdateIf)
	repoMock.EXPECT().Update(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes().DoAndReturn(store.Update)
	repoMock.EXPECT().Ping(gomock.Any()).AnyTimes().DoAndReturn(store.Ping)

	senderMock := NewMockEmailSender(ctrl)
	senderMock.EXPECT().Send(gomock.Any(), gomock.Any()).AnyTimes().DoAndReturn(sender.Send)

	jwtMgr := security.NewJWTManager("issuer", "aud", testJWTSecret)
	logger := discardLogger()

	reg := NewRegistrationService(repoMock, plainHasher{}, logger)
	reg.now = clock.Now
	ver := NewVerificationService(repoMock, senderMock, 15*time.Minute, logger)
	ver.now = clock.Now
	auth := NewAuthService(repoMock, plainHasher{}, jwtMgr, 24*time.Hour, logger)

	return &serviceFixture{
		clock:        clock,
		store:        store,
		sender:       sender,
		jwt:          jwtMgr,
		registration: reg,
		verification: ver,
		auth:         auth,
	}
}

// registerAndIssue runs the first two steps of the signup flow and returns
// the registration token and the emailed code.
func (fx *serviceFixture) registerAndIssue(email, password string) (string, string) {
	res, err := fx.registration.Register(context.Background(), email, password)
	if err != nil {
		panic(err)
	}
	if _, err := fx.verification.Issue(context.Background(), email, res.RegistrationToken); err != nil {
		panic(err)
	}
	acct := fx.store.get(email)
	if acct == nil || acct.VerificationCode == nil {
		panic(errors.New("expected issued code"))
	}
	return res.RegistrationToken, *acct.VerificationCode
}
