// Package permission maps roles to named capabilities.
//
// Capabilities are a closed enumeration, each occupying one bit of a Mask64.
// The instructor and student sets are listed by hand; admin and super_admin
// are derived as every capability so they cannot fall behind when a new one
// is added. Ownership (the ".own" variants) is not checked here: callers must
// confirm the resource belongs to the session user before relying on it.
package permission

import "fmt"

type Permission uint8

const (
	CoursesViewOwn Permission = iota
	CoursesViewAll
	CoursesCreate
	CoursesEditOwn
	CoursesEditAll
	CoursesDeleteAll
	CoursesEnroll
	MaterialsManageOwn
	MaterialsManageAll
	SessionsManageOwn
	SessionsManageAll
	ForumParticipate
	ForumModerateOwn
	ForumModerateAll
	SignupsViewOwn
	SignupsViewAll
	ChecklistManageOwn
	ChecklistManageAll
	InstructorsAssign
	UsersView
	UsersManage

	numPermissions
)

var names = [numPermissions]string{
	CoursesViewOwn:     "courses.view.own",
	CoursesViewAll:     "courses.view.all",
	CoursesCreate:      "courses.create",
	CoursesEditOwn:     "courses.edit.own",
	CoursesEditAll:     "courses.edit.all",
	CoursesDeleteAll:   "courses.delete.all",
	CoursesEnroll:      "courses.enroll",
	MaterialsManageOwn: "materials.manage.own",
	MaterialsManageAll: "materials.manage.all",
	SessionsManageOwn:  "sessions.manage.own",
	SessionsManageAll:  "sessions.manage.all",
	ForumParticipate:   "forum.participate",
	ForumModerateOwn:   "forum.moderate.own",
	ForumModerateAll:   "forum.moderate.all",
	SignupsViewOwn:     "signups.view.own",
	SignupsViewAll:     "signups.view.all",
	ChecklistManageOwn: "checklist.manage.own",
	ChecklistManageAll: "checklist.manage.all",
	InstructorsAssign:  "instructors.assign",
	UsersView:          "users.view",
	UsersManage:        "users.manage",
}

func (p Permission) String() string {
	if p >= numPermissions {
		return fmt.Sprintf("permission(%d)", uint8(p))
	}
	return names[p]
}

func (p Permission) Valid() bool { return p < numPermissions }

func All() []Permission {
	out := make([]Permission, 0, numPermissions)
	for p := Permission(0); p < numPermissions; p++ {
		out = append(out, p)
	}
	return out
}

type Role string

const (
	RoleStudent      Role = "student"
	RoleInstructor   Role = "instructor"
	RoleAdmin        Role = "admin"
	RoleBillingAdmin Role = "billing_admin"
	RoleSuperAdmin   Role = "super_admin"
)

