package authpw

import (
	"context"
	"database/sql"
	"testing"

	"github.com/hiennvn/vtnet-sample-2025/internal/store"
)

type fakeUserStore struct {
	users     map[string]store.User
	passwords map[int64]string
}

func (f *fakeUserStore) GetUserByEmail(_ context.Context, email string) (store.User, error) {
	user, ok := f.users[email]
	if !ok {
		return store.User{}, sql.ErrNoRows
	}
	return user, nil
}

func (f *fakeUserStore) UpdateUserPassword(_ context.Context, userID int64, passwordHash string) error {
	if f.passwords == nil {
		f.passwords = map[int64]string{}
	}
	f.passwords[userID] = passwordHash
	return nil
}

func newFakeStore(t *testing.T, email, password string) *fakeUserStore {
	t.Helper()
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	return &fakeUserStore{
		users: map[string]store.User{
			email: {ID: 7, Name: "Member", Email: email, PasswordHash: hash, Roles: []string{"TEAM_MEMBER"}},
		},
	}
}

func TestSignIn(t *testing.T) {
	fs := newFakeStore(t, "member@pdms.local", "correct-horse")
	svc := NewService(fs)

	user, err := svc.SignIn(context.Background(), "member@pdms.local", "correct-horse")
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	if user.ID != 7 {
		t.Fatalf("expected user 7, got %d", user.ID)
	}
}

func TestSignInWrongPassword(t *testing.T) {
	fs := newFakeStore(t, "member@pdms.local", "correct-horse")
	svc := NewService(fs)

	if _, err := svc.SignIn(context.Background(), "member@pdms.local", "wrong"); err != ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestSignInUnknownEmail(t *testing.T) {
	fs := newFakeStore(t, "member@pdms.local", "correct-horse")
	svc := NewService(fs)

	if _, err := svc.SignIn(context.Background(), "nobody@pdms.local", "correct-horse"); err != ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	fs := newFakeStore(t, "member@pdms.local", "correct-horse")
	svc := NewService(fs)

	err := svc.ChangePassword(context.Background(), 7, "member@pdms.local", "correct-horse", "new-password-1")
	if err != nil {
		t.Fatalf("ChangePassword() error = %v", err)
	}
	if fs.passwords[7] == "" {
		t.Fatal("expected new password hash to be stored")
	}

	if err := svc.ChangePassword(context.Background(), 7, "member@pdms.local", "wrong", "new-password-2"); err != ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if err := svc.ChangePassword(context.Background(), 7, "member@pdms.local", "correct-horse", "short"); err == nil {
		t.Fatal("expected error for short password")
	}
}
