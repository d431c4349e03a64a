package models

// Principal is the authenticated actor of a request. It is resolved once per request
// by the auth middleware and never mutated afterwards.
type Principal struct {
	UserID   int64
	Username string
	Level    Level
}

// Role returns the role name derived from the principal's level.
func (p Principal) Role() string {
	return p.Level.Role()
}

// Groups returns every group the principal's role belongs to.
func (p Principal) Groups() []string {
	return GroupsForRole(p.Role())
}

// HasRole reports whether the principal holds any of the given roles.
func (p Principal) HasRole(roles ...string) bool {
	role := p.Role()
	if role == "" {
		return false
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// InGroup reports whether the principal belongs to any of the given groups.
func (p Principal) InGroup(groups ...string) bool {
	for _, have := range p.Groups() {
		for _, want := range groups {
			if have == want {
				return true
			}
		}
	}
	return false
}

// Outranks reports whether the principal may view or modify an account at level target.
func (p Principal) Outranks(target Level) bool {
	return target.Below(p.Level)
}
