package model

import "time"

type User struct {
	ID             uint64     `db:"id"`
	Username       string     `db:"username"`
	Email          *string    `db:"email"`
	PasswordHash   string     `db:"password_hash"`
	ProfilePicture string     `db:"profile_picture"`
	LastLoginAt    *time.Time `db:"last_login_at"`
	CreatedAt      time.Time  `db:"created_at"`
}

// EmailOrEmpty 未填写邮箱时返回空串
func (u *User) EmailOrEmpty() string {
	if u.Email == nil {
		return ""
	}
	return *u.Email
}
