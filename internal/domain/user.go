package domain

import (
	"encoding/json"
	"errors"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  Role   `json:"role"`
}

var ErrInvalidUser = errors.New("identity record has no id")

// userRecord is the persisted identity shape. Older records carry _id,
// username or isAdmin instead of id, name and role.
type userRecord struct {
	ID       string `json:"id"`
	LegacyID string `json:"_id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
	IsAdmin  bool   `json:"isAdmin"`
}

func (u *User) UnmarshalJSON(data []byte) error {
	var rec userRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}

	u.ID = rec.ID
	if u.ID == "" {
		u.ID = rec.LegacyID
	}
	u.Email = rec.Email
	u.Name = rec.Name
	if u.Name == "" {
		u.Name = rec.Username
	}
	u.Role = rec.Role
	if rec.IsAdmin {
		u.Role = RoleAdmin
	}
	if u.Role != RoleAdmin {
		u.Role = RoleUser
	}
	return nil
}

func (u *User) Validate() error {
	if u == nil || u.ID == "" {
		return ErrInvalidUser
	}
	return nil
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}
