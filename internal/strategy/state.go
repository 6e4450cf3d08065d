package strategy

// State created, inactive, active, deleted
type State uint8

const (
	_state_beg State = iota
	StateCreated
	StateInactive
	StateActive
	StateDeleted
	_state_end
)

func (s State) IsAvailable() bool {
	return s > _state_beg && s < _state_end
}

func (s State) String() string {
	switch s {
	case StateCreated:
		return "CREATED"
	case StateInactive:
		return "INACTIVE"
	case StateActive:
		return "ACTIVE"
	case StateDeleted:
		return "DELETED"
	default:
		return "UNKNOWN"
	}
}

// Loaded reports whether the strategy is registered and not deleted.
func (s State) Loaded() bool {
	return s == StateInactive || s == StateActive
}
