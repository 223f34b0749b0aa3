package domain

import (
	"time"
)

type Role string

const (
	RoleWorker   Role = "worker"
	RoleFacility Role = "facility"
	RoleAdmin    Role = "admin"
)

type User struct {
	ID            int64      `json:"id"`
	Username      string     `json:"username"`
	PasswordHash  string     `json:"-"`
	FullName      string     `json:"fullName"`
	Email         string     `json:"email"`
	Role          Role       `json:"role"`
	PhoneNumber   string     `json:"phoneNumber"`
	Address       string     `json:"address"`
	BirthDate     *time.Time `json:"birthDate"`
	Qualification string     `json:"qualification"`
	IsActive      bool       `json:"isActive"`
	CreatedAt     time.Time  `json:"createdAt"`
	Version       int32      `json:"-"`
}

// MissingProfileFields は応募に必要なのに未入力のプロフィール項目を返す
func (u *User) MissingProfileFields() []string {
	missing := make([]string, 0)
	if u.FullName == "" {
		missing = append(missing, "fullName")
	}
	if u.PhoneNumber == "" {
		missing = append(missing, "phoneNumber")
	}
	if u.Address == "" {
		missing = append(missing, "address")
	}
	if u.BirthDate == nil {
		missing = append(missing, "birthDate")
	}
	if u.Qualification == "" {
		missing = append(missing, "qualification")
	}
	return missing
}
