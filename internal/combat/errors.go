package combat

import "errors"

var (
	// ErrUnknownCombatant is returned by host operations that name an ID the
	// arena does not hold.
	ErrUnknownCombatant = errors.New("combat: unknown combatant")
	// ErrInvalidSpec is returned when a spawn description has unusable tunables.
	ErrInvalidSpec = errors.New("combat: invalid combatant spec")
	// ErrDuplicateID is returned when spawning with an ID already registered.
	ErrDuplicateID = errors.New("combat: duplicate combatant id")
	// ErrAlreadyRunning is returned by Run when another Run loop is active.
	ErrAlreadyRunning = errors.New("combat: scheduler already running")
)
