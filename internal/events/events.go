package events

import "time"

const (
	UserRegistered = "user_registered"
	UserLoggedIn   = "user_logged_in"
	PasswordChange = "password_changed"
	CourseCreated  = "course_created"
	CourseUpdated  = "course_updated"
	CourseDeleted  = "course_deleted"
	CourseSignup   = "course_signup"
	CourseDropped  = "course_signup_cancelled"
)

type UserEvent struct {
	Type     string    `json:"type"`
	UserID   uint      `json:"user_id"`
	Email    string    `json:"email,omitempty"`
	UserType string    `json:"user_type,omitempty"`
	At       time.Time `json:"at"`
}

type CourseEvent struct {
	Type     string    `json:"type"`
	CourseID uint      `json:"course_id"`
	ActorID  uint      `json:"actor_id"`
	Slug     string    `json:"slug,omitempty"`
	At       time.Time `json:"at"`
}
