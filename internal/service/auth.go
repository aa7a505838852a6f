package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/todo-sync/internal/model"
	"github.com/BuzzLyutic/todo-sync/internal/repo"
	"github.com/BuzzLyutic/todo-sync/internal/result"
	"github.com/BuzzLyutic/todo-sync/internal/state"
)

// AuthSession tracks login state. The state is unset until a session is
// found or a login/sign-up finishes, and goes back to unset on Logout.
//
//	unset --CheckSession(found)--> Success(true)
//	any   --Login/SignUp--> Loading --> Success(true) | Error
//	any   --Logout--> unset
type AuthSession struct {
	auth   repo.AuthProvider
	logger *zap.Logger
	state  *state.Cell[result.Result[bool]]
}

func NewAuthSession(auth repo.AuthProvider, logger *zap.Logger) *AuthSession {
	s := &AuthSession{
		auth:   auth,
		logger: logger,
		state:  state.NewCell[result.Result[bool]](),
	}
	s.CheckSession()
	return s
}

// CheckSession looks at the provider's cached identity. A missing session
// leaves the state as it is.
func (s *AuthSession) CheckSession() {
	if _, ok := s.auth.CurrentUser(); ok {
		s.state.Store(result.Success(true))
	}
}

func (s *AuthSession) Login(ctx context.Context, email, password string) result.Result[bool] {
	s.state.Store(result.Loading[bool]())

	res := result.Success(true)
	if _, err := s.auth.SignIn(ctx, email, password); err != nil {
		s.logger.Info("login rejected", zap.String("email", repo.NormalizeEmail(email)), zap.Error(err))
		res = authFailure(err, msgLogin)
	}
	s.state.Store(res)
	return res
}

func (s *AuthSession) SignUp(ctx context.Context, email, password string) result.Result[bool] {
	s.state.Store(result.Loading[bool]())

	res := result.Success(true)
	if _, err := s.auth.SignUp(ctx, email, password); err != nil {
		s.logger.Info("sign up rejected", zap.String("email", repo.NormalizeEmail(email)), zap.Error(err))
		res = authFailure(err, msgSignUp)
	}
	s.state.Store(res)
	return res
}

// Logout signs out and resets the state. A failed remote sign-out is only
// logged.
func (s *AuthSession) Logout(ctx context.Context) {
	if err := s.auth.SignOut(ctx); err != nil {
		s.logger.Warn("sign out failed", zap.Error(err))
	}
	s.state.Reset()
}

// State returns the current session result. ok is false while unset.
func (s *AuthSession) State() (r result.Result[bool], ok bool) {
	return s.state.Load()
}

// Watch signals after every session state change.
func (s *AuthSession) Watch() (<-chan struct{}, func()) {
	return s.state.Watch()
}

func (s *AuthSession) CurrentUser() (model.User, bool) {
	return s.auth.CurrentUser()
}
