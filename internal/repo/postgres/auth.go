package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/BuzzLyutic/todo-sync/internal/model"
	"github.com/BuzzLyutic/todo-sync/internal/repo"
)

// AuthProvider verifies credentials against the users table and caches the
// signed-in identity for the life of the process.
type AuthProvider struct {
	pool *pgxpool.Pool
	cost int

	mu      sync.RWMutex
	current *model.User
}

var _ repo.AuthProvider = (*AuthProvider)(nil)

func NewAuthProvider(pool *pgxpool.Pool, cost int) *AuthProvider {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &AuthProvider{pool: pool, cost: cost}
}

func (a *AuthProvider) SignUp(ctx context.Context, email, password string) (model.User, error) {
	if err := repo.ValidateCredentials(email, password); err != nil {
		return model.User{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}

	u := model.User{ID: uuid.NewString(), Email: repo.NormalizeEmail(email)}
	_, err = a.pool.Exec(ctx, `
		INSERT INTO users (id, email, password_hash)
		VALUES ($1, $2, $3)
	`, u.ID, u.Email, string(hash))
	if err != nil {
		return model.User{}, mapError(err)
	}

	a.setCurrent(&u)
	return u, nil
}

func (a *AuthProvider) SignIn(ctx context.Context, email, password string) (model.User, error) {
	var (
		u    model.User
		hash string
	)
	err := a.pool.QueryRow(ctx, `
		SELECT id, email, password_hash FROM users WHERE email = $1
	`, repo.NormalizeEmail(email)).Scan(&u.ID, &u.Email, &hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, repo.ErrorInvalidCredentials
	}
	if err != nil {
		return model.User{}, fmt.Errorf("sign in: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return model.User{}, repo.ErrorInvalidCredentials
	}

	a.setCurrent(&u)
	return u, nil
}

func (a *AuthProvider) SignOut(ctx context.Context) error {
	a.setCurrent(nil)
	return nil
}

func (a *AuthProvider) CurrentUser() (model.User, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.current == nil {
		return model.User{}, false
	}
	return *a.current, true
}

func (a *AuthProvider) setCurrent(u *model.User) {
	a.mu.Lock()
	a.current = u
	a.mu.Unlock()
}

func mapError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return repo.ErrorEmailTaken
	}
	return fmt.Errorf("sign up: %w", err)
}
