package fakeserver

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// user is an account held by the fake API. Passwords are kept hashed.
type user struct {
	Username     string
	Email        string
	PasswordHash string
	DateJoined   time.Time
	LastLogin    time.Time
}

func newUser(username, email, password string) (*user, error) {
	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}
	return &user{Username: username, Email: email, PasswordHash: hash, DateJoined: time.Now()}, nil
}

// hashPassword uses the minimum bcrypt cost; the fake only serves tests.
func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	return string(bytes), err
}

func (u *user) checkPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}
