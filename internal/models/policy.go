package models

// Policy is the immutable permission configuration built once at startup and
// injected into the components that enforce it.
type Policy struct {
	permissions     []LabeledValue
	known           map[Permission]struct{}
	systemRoles     map[string]SystemRoleSpec
	systemRoleOrder []string
	superAdminFloor PermissionSet
}

// SystemRoleSpec is the seeded definition of a system role.
type SystemRoleSpec struct {
	RoleID      string
	DisplayName string
	Description string
	Permissions PermissionSet
}

// DefaultPolicy returns the production permission configuration.
func DefaultPolicy() *Policy {
	perms := []LabeledValue{
		{Value: string(PermAnalytics), Label: "Analytics"},
		{Value: string(PermTestimonials), Label: "Testimonials"},
		{Value: string(PermProjects), Label: "Projects"},
		{Value: string(PermBlogs), Label: "Blogs"},
		{Value: string(PermTeam), Label: "Team"},
		{Value: string(PermWhitepapers), Label: "Whitepapers"},
		{Value: string(PermNewsletter), Label: "Newsletter"},
		{Value: string(PermRequests), Label: "Contact Requests"},
		{Value: string(PermUserManagement), Label: "User Management"},
		{Value: string(PermRoleManagement), Label: "Role Management"},
		{Value: string(PermAuditLogs), Label: "Audit Logs"},
		{Value: string(PermAdminPanelAccess), Label: "Admin Panel Access"},
	}

	all := make(PermissionSet, len(perms))
	for i, p := range perms {
		all[i] = Permission(p.Value)
	}

	roles := []SystemRoleSpec{
		{
			RoleID:      RoleSuperAdmin,
			DisplayName: "Super Admin",
			Description: "Full access including user, role and audit management",
			Permissions: all,
		},
		{
			RoleID:      RoleAdmin,
			DisplayName: "Admin",
			Description: "Manages all website content",
			Permissions: PermissionSet{
				PermAnalytics, PermTestimonials, PermProjects, PermBlogs, PermTeam,
				PermWhitepapers, PermNewsletter, PermRequests, PermAdminPanelAccess,
			},
		},
		{
			RoleID:      RoleContentWriter,
			DisplayName: "Content Writer",
			Description: "Writes blogs and whitepapers",
			Permissions: PermissionSet{PermBlogs, PermWhitepapers, PermAdminPanelAccess},
		},
	}

	p := &Policy{
		permissions:     perms,
		known:           make(map[Permission]struct{}, len(perms)),
		systemRoles:     make(map[string]SystemRoleSpec, len(roles)),
		superAdminFloor: PermissionSet{PermUserManagement, PermRoleManagement, PermAdminPanelAccess},
	}
	for _, perm := range all {
		p.known[perm] = struct{}{}
	}
	for _, r := range roles {
		p.systemRoles[r.RoleID] = r
		p.systemRoleOrder = append(p.systemRoleOrder, r.RoleID)
	}
	return p
}

// IsKnown reports whether perm belongs to the permission enum.
func (p *Policy) IsKnown(perm Permission) bool {
	_, ok := p.known[perm]
	return ok
}

// Unknown returns the members of set that are not in the permission enum.
func (p *Policy) Unknown(set PermissionSet) []string {
	var bad []string
	for _, perm := range set {
		if !p.IsKnown(perm) {
			bad = append(bad, string(perm))
		}
	}
	return bad
}

// Permissions returns the enum with display labels.
func (p *Policy) Permissions() []LabeledValue {
	return append([]LabeledValue(nil), p.permissions...)
}

// AllPermissions returns every permission token.
func (p *Policy) AllPermissions() PermissionSet {
	out := make(PermissionSet, len(p.permissions))
	for i, v := range p.permissions {
		out[i] = Permission(v.Value)
	}
	return out
}

// IsReservedRoleID reports whether id names a system role.
func (p *Policy) IsReservedRoleID(id string) bool {
	_, ok := p.systemRoles[id]
	return ok
}

// SystemRoles returns the seed definitions in a stable order.
func (p *Policy) SystemRoles() []SystemRoleSpec {
	out := make([]SystemRoleSpec, 0, len(p.systemRoleOrder))
	for _, id := range p.systemRoleOrder {
		spec := p.systemRoles[id]
		spec.Permissions = append(PermissionSet(nil), spec.Permissions...)
		out = append(out, spec)
	}
	return out
}

// SuperAdminFloor returns the permissions super_admin must always keep.
func (p *Policy) SuperAdminFloor() PermissionSet {
	return append(PermissionSet(nil), p.superAdminFloor...)
}
