package httpapi

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/JayAtria-7/INVOICE-BILLING-SYSTEM/internal/domain"
)

type userStoreStub struct {
	mu      sync.Mutex
	users   map[string]domain.UserAccount
	nextID  int64
	updates int
}

func (s *userStoreStub) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.users == nil {
		s.users = make(map[string]domain.UserAccount)
	}
	s.nextID++
	user.ID = s.nextID
	s.users[user.Username] = user
	return nil
}

func (s *userStoreStub) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.UserAccount, 0, len(s.users))
	for _, user := range s.users {
		out = append(out, user)
	}
	return out, nil
}

func (s *userStoreStub) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := s.users[username]
	user.Password = password
	s.users[username] = user
	s.updates++
	return nil
}

func TestLoginAndParseTokenRoundtrip(t *testing.T) {
	stub := &userStoreStub{}
	hash, err := hashPassword("admin123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	_ = stub.CreateUser(context.Background(), domain.UserAccount{
		Username: "admin", Password: hash, Role: "admin", Active: true, CreatedAt: time.Now().UTC(),
	})

	auth := NewAuthManager("roundtrip-secret", time.Hour, stub)

	resp, err := auth.Login(domain.LoginRequest{Username: "admin", Password: "admin123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.Role != "admin" {
		t.Fatalf("expected admin role, got %s", resp.Role)
	}

	actor, err := auth.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if actor.Username != "admin" || actor.Role != "admin" {
		t.Fatalf("unexpected actor %+v", actor)
	}
	if actor.UserID != 1 {
		t.Fatalf("expected user id 1 in token, got %d", actor.UserID)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	stub := &userStoreStub{}
	hash, _ := hashPassword("rightpass")
	_ = stub.CreateUser(context.Background(), domain.UserAccount{
		Username: "cashier", Password: hash, Role: "cashier", Active: true,
	})

	auth := NewAuthManager("secret", time.Hour, stub)
	if _, err := auth.Login(domain.LoginRequest{Username: "cashier", Password: "wrongpass"}); err == nil {
		t.Fatalf("expected login to fail")
	}
}

func TestLoginRejectsInactiveAccount(t *testing.T) {
	stub := &userStoreStub{}
	hash, _ := hashPassword("secret99")
	_ = stub.CreateUser(context.Background(), domain.UserAccount{
		Username: "former", Password: hash, Role: "cashier", Active: false,
	})

	auth := NewAuthManager("secret", time.Hour, stub)
	if _, err := auth.Login(domain.LoginRequest{Username: "former", Password: "secret99"}); err == nil {
		t.Fatalf("expected login to fail for inactive account")
	}
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	auth := NewAuthManager("secret", time.Hour, nil)
	if _, err := auth.ParseToken("not-a-token"); err == nil {
		t.Fatalf("expected parse failure")
	}
}

func TestParseTokenRejectsForeignSecret(t *testing.T) {
	stub := &userStoreStub{}
	hash, _ := hashPassword("admin123")
	_ = stub.CreateUser(context.Background(), domain.UserAccount{
		Username: "admin", Password: hash, Role: "admin", Active: true,
	})

	issuer := NewAuthManager("secret-one", time.Hour, stub)
	verifier := NewAuthManager("secret-two", time.Hour, nil)

	resp, err := issuer.Login(domain.LoginRequest{Username: "admin", Password: "admin123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := verifier.ParseToken(resp.AccessToken); err == nil {
		t.Fatalf("expected token signed with another secret to be rejected")
	}
}

func TestAuthManagerUpgradesLegacyPlainPassword(t *testing.T) {
	stub := &userStoreStub{
		users: map[string]domain.UserAccount{
			"admin": {
				ID:        1,
				Username:  "admin",
				Password:  "admin123",
				Role:      "admin",
				Active:    true,
				CreatedAt: time.Now().UTC(),
			},
		},
		nextID: 1,
	}

	auth := NewAuthManager("secret", time.Hour, stub)

	if _, err := auth.Login(domain.LoginRequest{Username: "admin", Password: "admin123"}); err != nil {
		t.Fatalf("login with legacy password: %v", err)
	}

	stub.mu.Lock()
	stored := stub.users["admin"].Password
	updates := stub.updates
	stub.mu.Unlock()
	if !strings.HasPrefix(stored, "$2") {
		t.Fatalf("expected stored password to be upgraded to bcrypt, got %q", stored)
	}
	if updates == 0 {
		t.Fatalf("expected UpdateUserPassword to be called")
	}
}

func TestCreateCashierValidation(t *testing.T) {
	auth := NewAuthManager("secret", time.Hour, &userStoreStub{})

	cases := []domain.CashierCreateRequest{
		{Username: "ab", Password: "secret99"},
		{Username: "valid user", Password: "secret99"},
		{Username: "clerk1", Password: "123"},
	}
	for _, req := range cases {
		if _, err := auth.CreateCashier(req); err == nil {
			t.Fatalf("expected validation failure for %+v", req)
		}
	}
}

func TestCreateCashierPersistsAndDuplicates(t *testing.T) {
	stub := &userStoreStub{}
	auth := NewAuthManager("secret", time.Hour, stub)

	user, err := auth.CreateCashier(domain.CashierCreateRequest{Username: "Clerk1", Password: "secret99"})
	if err != nil {
		t.Fatalf("create cashier: %v", err)
	}
	if user.Username != "clerk1" {
		t.Fatalf("expected lowercased username, got %s", user.Username)
	}

	stub.mu.Lock()
	stored, ok := stub.users["clerk1"]
	stub.mu.Unlock()
	if !ok {
		t.Fatalf("expected cashier persisted to user store")
	}
	if !strings.HasPrefix(stored.Password, "$2") {
		t.Fatalf("expected bcrypt hash in store, got %q", stored.Password)
	}

	if _, err := auth.CreateCashier(domain.CashierCreateRequest{Username: "clerk1", Password: "secret99"}); err == nil {
		t.Fatalf("expected duplicate username to fail")
	}

	cashiers := auth.ListCashiers()
	if len(cashiers) != 1 || cashiers[0].Username != "clerk1" {
		t.Fatalf("unexpected cashier list %+v", cashiers)
	}
}
