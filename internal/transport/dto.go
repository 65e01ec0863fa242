package transport

import "time"

type SignupRequest struct {
	Email     string `json:"email"     validate:"required,email,max=254"`
	Password  string `json:"password"  validate:"required,min=8,max=72"`
	FirstName string `json:"firstName" validate:"required,max=100"`
	LastName  string `json:"lastName"  validate:"required,max=100"`
	UserType  string `json:"userType"  validate:"required,oneof=student instructor"`
}

type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
	UserType string `json:"userType" validate:"omitempty,oneof=student instructor"`
}

type SwitchViewRequest struct {
	View string `json:"view" validate:"required,oneof=student instructor"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword"     validate:"required,min=8,max=72"`
}

type ResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetConfirmRequest struct {
	Token    string `json:"token"    validate:"required"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type CreateCourseRequest struct {
	Slug        string `json:"slug"        validate:"required,min=2,max=80,slug"`
	Title       string `json:"title"       validate:"required,max=200"`
	Description string `json:"description" validate:"max=5000"`
	IsPublished bool   `json:"isPublished"`
}

type PatchCourseRequest struct {
	Slug        *string `json:"slug"        validate:"omitempty,min=2,max=80,slug"`
	Title       *string `json:"title"       validate:"omitempty,min=1,max=200"`
	Description *string `json:"description" validate:"omitempty,max=5000"`
	IsPublished *bool   `json:"isPublished"`
}

type AssignInstructorRequest struct {
	UserID uint `json:"userId" validate:"required"`
}

type PatchMaterialRequest struct {
	DisplayName *string `json:"displayName" validate:"omitempty,min=1,max=200"`
}

type SessionRequest struct {
	Title      string    `json:"title"      validate:"required,max=200"`
	StartsAt   time.Time `json:"startsAt"   validate:"required"`
	EndsAt     time.Time `json:"endsAt"     validate:"required,gtfield=StartsAt"`
	Location   string    `json:"location"   validate:"max=200"`
	MeetingURL string    `json:"meetingUrl" validate:"omitempty,url,max=500"`
}

type PatchSessionRequest struct {
	Title      *string    `json:"title"      validate:"omitempty,min=1,max=200"`
	StartsAt   *time.Time `json:"startsAt"`
	EndsAt     *time.Time `json:"endsAt"`
	Location   *string    `json:"location"   validate:"omitempty,max=200"`
	MeetingURL *string    `json:"meetingUrl" validate:"omitempty,url,max=500"`
}

type PostRequest struct {
	Title string `json:"title" validate:"required,max=200"`
	Body  string `json:"body"  validate:"required,max=20000"`
}

type PatchPostRequest struct {
	Title *string `json:"title" validate:"omitempty,min=1,max=200"`
	Body  *string `json:"body"  validate:"omitempty,min=1,max=20000"`
}

type AnswerRequest struct {
	Body string `json:"body" validate:"required,max=20000"`
}

type ChecklistRequest struct {
	Title    string `json:"title"    validate:"required,max=200"`
	Position int    `json:"position" validate:"min=0"`
}

type PatchChecklistRequest struct {
	Title    *string `json:"title"    validate:"omitempty,min=1,max=200"`
	Position *int    `json:"position" validate:"omitempty,min=0"`
	Done     *bool   `json:"done"`
}

type CreateUserRequest struct {
	Email          string   `json:"email"          validate:"required,email,max=254"`
	Password       string   `json:"password"       validate:"required,min=8,max=72"`
	FirstName      string   `json:"firstName"      validate:"required,max=100"`
	LastName       string   `json:"lastName"       validate:"required,max=100"`
	Roles          []string `json:"roles"          validate:"dive,oneof=super_admin billing_admin instructor student"`
	InstructorTier string   `json:"instructorTier" validate:"omitempty,oneof=instructor admin"`
	IsActive       *bool    `json:"isActive"`
}

type PatchUserRequest struct {
	FirstName *string   `json:"firstName"      validate:"omitempty,min=1,max=100"`
	LastName  *string   `json:"lastName"       validate:"omitempty,min=1,max=100"`
	IsActive  *bool     `json:"isActive"`
	Roles     *[]string `json:"roles"          validate:"omitempty,dive,oneof=super_admin billing_admin instructor student"`

	// InstructorTier needs an instructor profile, existing or granted by Roles.
	InstructorTier *string `json:"instructorTier" validate:"omitempty,oneof=instructor admin"`
}
