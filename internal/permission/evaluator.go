package permission

import "sync"

var instructorSet = []Permission{
	CoursesViewOwn,
	CoursesCreate,
	CoursesEditOwn,
	MaterialsManageOwn,
	SessionsManageOwn,
	ForumParticipate,
	ForumModerateOwn,
	SignupsViewOwn,
	ChecklistManageOwn,
}

var studentSet = []Permission{
	CoursesEnroll,
	ForumParticipate,
}

var billingAdminSet = []Permission{
	CoursesViewAll,
	SignupsViewAll,
	UsersView,
}

// superAdminOnly are withheld from the derived admin set: platform users are
// managed by super admins, course admins run the catalogue.
var superAdminOnly = []Permission{UsersManage}

type Evaluator struct {
	mu    sync.RWMutex
	roles map[Role]Mask64
}

func NewEvaluator() *Evaluator {
	admin := fullMask()
	for _, p := range superAdminOnly {
		admin.Clear(p)
	}
	return &Evaluator{
		roles: map[Role]Mask64{
			RoleStudent:      MaskOf(studentSet...),
			RoleInstructor:   MaskOf(instructorSet...),
			RoleAdmin:        admin,
			RoleBillingAdmin: MaskOf(billingAdminSet...),
			RoleSuperAdmin:   fullMask(),
		},
	}
}

func (e *Evaluator) Has(role Role, p Permission) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.roles[role].Has(p)
}

func (e *Evaluator) HasAny(role Role, ps ...Permission) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	m := e.roles[role]
	for _, p := range ps {
		if m.Has(p) {
			return true
		}
	}
	return false
}

func (e *Evaluator) HasAll(role Role, ps ...Permission) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	m := e.roles[role]
	for _, p := range ps {
		if !m.Has(p) {
			return false
		}
	}
	return true
}

func (e *Evaluator) Grant(role Role, p Permission) {
	e.mu.Lock()
	defer e.mu.Unlock()
	m := e.roles[role]
	m.Set(p)
	e.roles[role] = m
}

func (e *Evaluator) Revoke(role Role, p Permission) {
	e.mu.Lock()
	defer e.mu.Unlock()
	m := e.roles[role]
	m.Clear(p)
	e.roles[role] = m
}

func (e *Evaluator) Permissions(role Role) []Permission {
	e.mu.RLock()
	m := e.roles[role]
	e.mu.RUnlock()

	var out []Permission
	for _, p := range All() {
		if m.Has(p) {
			out = append(out, p)
		}
	}
	return out
}
