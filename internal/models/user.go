package models

import "time"

// User is a profile known to the service.
type User struct {
	ID         string    `db:"id" json:"_id"`
	FullName   string    `db:"full_name" json:"fullName"`
	Email      string    `db:"email" json:"email"`
	ProfilePic string    `db:"profile_pic" json:"profilePic"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

// SidebarUser is a counterpart as listed in the sidebar, with the number of
// messages from them the observer has not read yet.
type SidebarUser struct {
	ID          string `json:"_id"`
	FullName    string `json:"fullName"`
	ProfilePic  string `json:"profilePic"`
	UnreadCount int    `json:"unreadCount"`
}
