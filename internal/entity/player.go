package entity

const (
	RoleNone Role = ""
	RoleA    Role = "A"
	RoleB    Role = "B"
)

// Role - one of the two participant slots of a game. A is the first joiner, B the second.
type Role string

func (that Role) Other() Role {
	switch that {
	case RoleA:
		return RoleB
	case RoleB:
		return RoleA
	default:
		return RoleNone
	}
}

func (that Role) index() int {
	if that == RoleB {
		return 1
	}
	return 0
}

// Player - a connection bound to a role of a game.
type Player struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}
