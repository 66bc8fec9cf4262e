package model

import "time"

// 活动记录动作
const (
	ActionAccountCreated  = "Account created"
	ActionLoggedIn        = "Logged in"
	ActionLoggedOut       = "Logged out"
	ActionUpdatedPicture  = "Updated profile picture"
	ActionUpdatedProfile  = "Updated profile information"
	ActionClearedActivity = "Cleared activity history"
)

type ActivityLog struct {
	ID        uint64    `db:"id"`
	UserID    uint64    `db:"user_id"`
	Action    string    `db:"action"`
	CreatedAt time.Time `db:"created_at"`
}
