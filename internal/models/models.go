package models

import (
	"strings"
	"time"
)

type RoleTag string

const (
	TagSuperAdmin   RoleTag = "super_admin"
	TagBillingAdmin RoleTag = "billing_admin"
	TagInstructor   RoleTag = "instructor"
	TagStudent      RoleTag = "student"
)

func (t RoleTag) Valid() bool {
	switch t {
	case TagSuperAdmin, TagBillingAdmin, TagInstructor, TagStudent:
		return true
	}
	return false
}

// InstructorTier is the per-profile instructor grade kept on instructor_profiles.
type InstructorTier string

const (
	TierInstructor InstructorTier = "instructor"
	TierAdmin      InstructorTier = "admin"
)

type UserType string

const (
	UserTypeStudent    UserType = "student"
	UserTypeInstructor UserType = "instructor"
)

func (u UserType) Valid() bool {
	return u == UserTypeStudent || u == UserTypeInstructor
}

type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement"  json:"id"`
	Email        string    `gorm:"uniqueIndex;not null"      json:"email"`
	PasswordHash string    `gorm:"not null"                  json:"-"`
	FirstName    string    `gorm:"not null"                  json:"firstName"`
	LastName     string    `gorm:"not null"                  json:"lastName"`
	IsActive     bool      `gorm:"not null;default:true"     json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`

	Roles []UserRole `gorm:"constraint:OnDelete:CASCADE" json:"roles,omitempty"`
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type UserRole struct {
	ID     uint    `gorm:"primaryKey"                                 json:"-"`
	UserID uint    `gorm:"not null;uniqueIndex:idx_user_role"         json:"userId"`
	Role   RoleTag `gorm:"type:varchar(32);not null;uniqueIndex:idx_user_role" json:"role"`
}

type StudentProfile struct {
	ID        uint      `gorm:"primaryKey"            json:"id"`
	UserID    uint      `gorm:"uniqueIndex;not null"  json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

type InstructorProfile struct {
	ID        uint           `gorm:"primaryKey"                                  json:"id"`
	UserID    uint           `gorm:"uniqueIndex;not null"                        json:"userId"`
	Tier      InstructorTier `gorm:"type:varchar(16);not null;default:instructor" json:"tier"`
	Bio       string         `json:"bio"`
	CreatedAt time.Time      `json:"createdAt"`
}

type Course struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Slug        string    `gorm:"uniqueIndex;not null"     json:"slug"`
	Title       string    `gorm:"not null"                 json:"title"`
	Description string    `json:"description"`
	IsPublished bool      `gorm:"not null;default:false"   json:"isPublished"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type CourseInstructor struct {
	ID       uint `gorm:"primaryKey"                                   json:"-"`
	CourseID uint `gorm:"not null;uniqueIndex:idx_course_instructor"   json:"courseId"`
	UserID   uint `gorm:"not null;uniqueIndex:idx_course_instructor"   json:"userId"`
}

type CourseSignup struct {
	ID        uint      `gorm:"primaryKey"                              json:"id"`
	CourseID  uint      `gorm:"not null;uniqueIndex:idx_course_signup"  json:"courseId"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_course_signup"  json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

type CourseMaterial struct {
	ID          uint      `gorm:"primaryKey"            json:"id"`
	CourseID    uint      `gorm:"index;not null"        json:"courseId"`
	DisplayName string    `gorm:"not null"              json:"displayName"`
	FileName    string    `gorm:"not null"              json:"fileName"`
	ObjectKey   string    `gorm:"uniqueIndex;not null"  json:"-"`
	URL         string    `gorm:"not null"              json:"url"`
	MimeType    string    `gorm:"not null"              json:"mimeType"`
	SizeBytes   int64     `gorm:"not null"              json:"sizeBytes"`
	UploadedBy  uint      `gorm:"not null"              json:"uploadedBy"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type CourseSession struct {
	ID         uint      `gorm:"primaryKey"      json:"id"`
	CourseID   uint      `gorm:"index;not null"  json:"courseId"`
	Title      string    `gorm:"not null"        json:"title"`
	StartsAt   time.Time `gorm:"not null"        json:"startsAt"`
	EndsAt     time.Time `gorm:"not null"        json:"endsAt"`
	Location   string    `json:"location"`
	MeetingURL string    `json:"meetingUrl"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type ForumPost struct {
	ID        uint          `gorm:"primaryKey"      json:"id"`
	CourseID  uint          `gorm:"index;not null"  json:"courseId"`
	AuthorID  uint          `gorm:"not null"        json:"authorId"`
	Title     string        `gorm:"not null"        json:"title"`
	Body      string        `gorm:"not null"        json:"body"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
	Answers   []ForumAnswer `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"answers,omitempty"`
}

type ForumAnswer struct {
	ID        uint      `gorm:"primaryKey"      json:"id"`
	PostID    uint      `gorm:"index;not null"  json:"postId"`
	AuthorID  uint      `gorm:"not null"        json:"authorId"`
	Body      string    `gorm:"not null"        json:"body"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type ChecklistItem struct {
	ID        uint      `gorm:"primaryKey"      json:"id"`
	CourseID  uint      `gorm:"index;not null"  json:"courseId"`
	Title     string    `gorm:"not null"        json:"title"`
	Position  int       `gorm:"not null"        json:"position"`
	Done      bool      `gorm:"not null;default:false" json:"done"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func All() []any {
	return []any{
		&User{}, &UserRole{}, &StudentProfile{}, &InstructorProfile{},
		&Course{}, &CourseInstructor{}, &CourseSignup{}, &CourseMaterial{},
		&CourseSession{}, &ForumPost{}, &ForumAnswer{}, &ChecklistItem{},
	}
}
