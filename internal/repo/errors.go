package repo

import "errors"

var (
	ErrorNotFound           = errors.New("not found")
	ErrorNotAuthenticated   = errors.New("not authenticated")
	ErrorInvalidCredentials = errors.New("invalid email or password")
	ErrorEmailTaken         = errors.New("email already registered")
	ErrorInvalidEmail       = errors.New("invalid email")
	ErrorWeakPassword       = errors.New("password must be at least 6 characters")
)
