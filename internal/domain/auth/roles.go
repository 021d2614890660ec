package auth

import "fmt"

// Role is the closed set of caller roles. Authorization checks must match
// exhaustively over these values and deny anything unrecognized.
type Role string

const (
	RoleEmployee Role = "EMPLOYEE"
	RoleManager  Role = "MANAGER"
	RoleAdmin    Role = "ADMIN"
)

func ParseRole(value string) (Role, error) {
	switch Role(value) {
	case RoleEmployee, RoleManager, RoleAdmin:
		return Role(value), nil
	}
	return "", fmt.Errorf("unknown role %q", value)
}

func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}
