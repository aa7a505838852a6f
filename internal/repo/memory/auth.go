package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/BuzzLyutic/todo-sync/internal/model"
	"github.com/BuzzLyutic/todo-sync/internal/repo"
)

type account struct {
	user model.User
	hash []byte
}

// AuthProvider keeps accounts in a map and one cached session, like a
// client SDK that remembers the last signed-in user.
type AuthProvider struct {
	mu       sync.RWMutex
	accounts map[string]account
	current  *model.User
	cost     int

	// Error injection
	SignInErr  error
	SignUpErr  error
	SignOutErr error
}

var _ repo.AuthProvider = (*AuthProvider)(nil)

func NewAuthProvider() *AuthProvider {
	return &AuthProvider{
		accounts: make(map[string]account),
		cost:     bcrypt.MinCost,
	}
}

func (a *AuthProvider) SignUp(ctx context.Context, email, password string) (model.User, error) {
	if a.SignUpErr != nil {
		return model.User{}, a.SignUpErr
	}
	if err := repo.ValidateCredentials(email, password); err != nil {
		return model.User{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return model.User{}, err
	}

	key := repo.NormalizeEmail(email)
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.accounts[key]; ok {
		return model.User{}, repo.ErrorEmailTaken
	}
	u := model.User{ID: uuid.NewString(), Email: key}
	a.accounts[key] = account{user: u, hash: hash}
	a.current = &u
	return u, nil
}

func (a *AuthProvider) SignIn(ctx context.Context, email, password string) (model.User, error) {
	if a.SignInErr != nil {
		return model.User{}, a.SignInErr
	}
	a.mu.RLock()
	acc, ok := a.accounts[repo.NormalizeEmail(email)]
	a.mu.RUnlock()
	if !ok {
		return model.User{}, repo.ErrorInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(acc.hash, []byte(password)); err != nil {
		return model.User{}, repo.ErrorInvalidCredentials
	}

	a.mu.Lock()
	u := acc.user
	a.current = &u
	a.mu.Unlock()
	return u, nil
}

func (a *AuthProvider) SignOut(ctx context.Context) error {
	a.mu.Lock()
	a.current = nil
	a.mu.Unlock()
	return a.SignOutErr
}

func (a *AuthProvider) CurrentUser() (model.User, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.current == nil {
		return model.User{}, false
	}
	return *a.current, true
}
