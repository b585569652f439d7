package model

import (
	"fmt"
	"strings"
)

// Role is supplied by the authentication gateway with every call.
type Role string

const (
	RoleMember     Role = "MEMBER"
	RoleArbitrator Role = "ARBITRATOR"
	RoleSystem     Role = "SYSTEM"
)

func ParseRole(s string) (Role, error) {
	if s == "" {
		return RoleMember, nil
	}
	switch r := Role(strings.ToUpper(strings.TrimSpace(s))); r {
	case RoleMember, RoleArbitrator, RoleSystem:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Caller is the authenticated identity behind an operation.
type Caller struct {
	UserCode string `json:"user_code"`
	Role     Role   `json:"role"`
}

func (c Caller) IsArbitrator() bool {
	return c.Role == RoleArbitrator
}

func (c Caller) IsSystem() bool {
	return c.Role == RoleSystem
}

// Member builds a regular member caller.
func Member(code string) Caller {
	return Caller{UserCode: code, Role: RoleMember}
}

// Arbitrator builds an arbitrator caller.
func Arbitrator(code string) Caller {
	return Caller{UserCode: code, Role: RoleArbitrator}
}

// SystemCaller is used by schedulers and workers.
func SystemCaller() Caller {
	return Caller{UserCode: "system", Role: RoleSystem}
}
