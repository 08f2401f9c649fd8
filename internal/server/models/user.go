// Package models holds the server-side data shapes: users, refresh tokens,
// and upload queue items.
package models

type User struct {
	ID           string
	UserName     string
	PasswordHash []byte
}
