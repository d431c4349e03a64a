package models

import (
	"fmt"
	"strconv"
)

// Level is the ordinal privilege rank of an account. A higher value means more privilege.
type Level uint8

const (
	LevelCustomer Level = 1
	LevelManager  Level = 6
	LevelAdmin    Level = 9
)

const (
	RoleCustomer = "Customer"
	RoleManager  = "Manager"
	RoleAdmin    = "Admin"

	GroupEmployees = "Employees"
)

// roleNames maps every assignable level to its role name.
var roleNames = map[Level]string{
	LevelCustomer: RoleCustomer,
	LevelManager:  RoleManager,
	LevelAdmin:    RoleAdmin,
}

// groupMembers maps a group name to the roles it contains.
var groupMembers = map[string][]string{
	GroupEmployees: {RoleManager, RoleAdmin},
}

// Below reports whether l is strictly less privileged than other.
// All actor/target comparisons go through this method.
func (l Level) Below(other Level) bool {
	return l < other
}

// Valid reports whether l is one of the assignable levels.
func (l Level) Valid() bool {
	_, ok := roleNames[l]
	return ok
}

// Role returns the role name for the level, or an empty string for unknown levels.
func (l Level) Role() string {
	return roleNames[l]
}

func (l Level) String() string {
	if name := l.Role(); name != "" {
		return name
	}
	return "level(" + strconv.Itoa(int(l)) + ")"
}

// ParseLevel parses a submitted level value and rejects unknown levels.
func ParseLevel(s string) (Level, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > 255 {
		return 0, fmt.Errorf("invalid level %q", s)
	}
	l := Level(n)
	if !l.Valid() {
		return 0, fmt.Errorf("unknown level %d", n)
	}
	return l, nil
}

// LevelForRole returns the level carrying the given role name.
func LevelForRole(role string) (Level, bool) {
	for l, name := range roleNames {
		if name == role {
			return l, true
		}
	}
	return 0, false
}

// AssignableLevels returns the levels that an actor at the given level may hand out, lowest first.
func AssignableLevels(actor Level) []Level {
	out := make([]Level, 0, len(roleNames))
	for _, l := range []Level{LevelCustomer, LevelManager, LevelAdmin} {
		if l.Below(actor) {
			out = append(out, l)
		}
	}
	return out
}

// GroupsForRole returns the names of the groups containing role.
func GroupsForRole(role string) []string {
	var groups []string
	for group, roles := range groupMembers {
		for _, r := range roles {
			if r == role {
				groups = append(groups, group)
				break
			}
		}
	}
	return groups
}
