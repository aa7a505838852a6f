package model

// User is an authenticated identity. ID scopes every task query and write.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}
