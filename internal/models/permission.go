package models

// Permission is one token of the closed permission vocabulary.
type Permission string

const (
	PermAnalytics        Permission = "analytics"
	PermTestimonials     Permission = "testimonials"
	PermProjects         Permission = "projects"
	PermBlogs            Permission = "blogs"
	PermTeam             Permission = "team"
	PermWhitepapers      Permission = "whitepapers"
	PermNewsletter       Permission = "newsletter"
	PermRequests         Permission = "requests"
	PermUserManagement   Permission = "user_management"
	PermRoleManagement   Permission = "role_management"
	PermAuditLogs        Permission = "audit_logs"
	PermAdminPanelAccess Permission = "admin_panel_access"
)

// PermissionSet is an ordered, duplicate-free list of permissions.
type PermissionSet []Permission

// Has reports whether p is in the set.
func (s PermissionSet) Has(p Permission) bool {
	for _, x := range s {
		if x == p {
			return true
		}
	}
	return false
}

// HasAny reports whether the set intersects want.
func (s PermissionSet) HasAny(want ...Permission) bool {
	for _, p := range want {
		if s.Has(p) {
			return true
		}
	}
	return false
}

// HasAll reports whether every permission in want is in the set.
func (s PermissionSet) HasAll(want ...Permission) bool {
	for _, p := range want {
		if !s.Has(p) {
			return false
		}
	}
	return true
}

// Strings returns the set as plain strings, the form stored in TEXT[] columns.
func (s PermissionSet) Strings() []string {
	out := make([]string, len(s))
	for i, p := range s {
		out[i] = string(p)
	}
	return out
}

// Equal reports set equality, ignoring order.
func (s PermissionSet) Equal(other PermissionSet) bool {
	a, b := s.Dedupe(), other.Dedupe()
	return len(a) == len(b) && a.HasAll(b...)
}

// Dedupe returns a copy with duplicates removed, preserving first occurrence.
func (s PermissionSet) Dedupe() PermissionSet {
	out := make(PermissionSet, 0, len(s))
	seen := make(map[Permission]struct{}, len(s))
	for _, p := range s {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// Diff returns the permissions present in next but not s (added) and those
// present in s but not next (removed).
func (s PermissionSet) Diff(next PermissionSet) (added, removed PermissionSet) {
	added, removed = PermissionSet{}, PermissionSet{}
	for _, p := range next {
		if !s.Has(p) {
			added = append(added, p)
		}
	}
	for _, p := range s {
		if !next.Has(p) {
			removed = append(removed, p)
		}
	}
	return added, removed
}

// PermissionSetFromStrings converts raw strings without validation.
func PermissionSetFromStrings(raw []string) PermissionSet {
	out := make(PermissionSet, len(raw))
	for i, r := range raw {
		out[i] = Permission(r)
	}
	return out
}

// LabeledValue is the {value,label} pair served to the admin UI for enums.
type LabeledValue struct {
	Value string `json:"value"`
	Label string `json:"label"`
}
