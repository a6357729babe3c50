package store

import "time"

type User struct {
	ID        string
	Email     string
	Admin     bool // may use the operator API
	CreatedAt time.Time
}
