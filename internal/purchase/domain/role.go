package domain

import "strings"

// Role is a side of a purchase. Cancellations record which side initiated them.
type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
)

func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleBuyer:
		return RoleBuyer, nil
	case RoleSeller:
		return RoleSeller, nil
	default:
		return "", ErrInvalidInitiator
	}
}

func (r Role) Valid() bool { return r == RoleBuyer || r == RoleSeller }
