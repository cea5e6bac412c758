package combat

import "fmt"

// EventKind classifies engine notifications.
type EventKind uint8

const (
	EventAction EventKind = iota // a combatant announced an action
	EventDamage                  // a combatant took damage
	EventDeath
	EventSpawn
	EventRemove
)

// String returns the event kind name
func (k EventKind) String() string {
	switch k {
	case EventAction:
		return "action"
	case EventDamage:
		return "damage"
	case EventDeath:
		return "death"
	case EventSpawn:
		return "spawn"
	case EventRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// MarshalText encodes the kind by name.
func (k EventKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText decodes an event kind name.
func (k *EventKind) UnmarshalText(b []byte) error {
	for c := EventAction; c <= EventRemove; c++ {
		if c.String() == string(b) {
			*k = c
			return nil
		}
	}
	return fmt.Errorf("combat: unknown event kind %q", b)
}

// Event is a fire-and-forget notification for the presentation layer.
// CombatantID is the subject: the actor for actions, the victim for damage
// and death. SourceID is the attacker when there is one.
type Event struct {
	Kind        EventKind `json:"kind"`
	Round       uint64    `json:"round"`
	CombatantID string    `json:"combatantId"`
	Name        string    `json:"name"`
	SourceID    string    `json:"sourceId,omitempty"`
	Text        string    `json:"text,omitempty"`
	Amount      float64   `json:"amount,omitempty"`
	Health      float64   `json:"health"`
	Critical    bool      `json:"critical,omitempty"`
}

// EventFunc receives engine events synchronously; it must not block.
type EventFunc func(Event)

// ChannelSink returns an EventFunc that forwards to ch, dropping events
// when ch is full.
func ChannelSink(ch chan<- Event) EventFunc {
	return func(e Event) {
		select {
		case ch <- e:
		default:
		}
	}
}

// FanOut calls every non-nil sink in order.
func FanOut(sinks ...EventFunc) EventFunc {
	return func(e Event) {
		for _, s := range sinks {
			if s != nil {
				s(e)
			}
		}
	}
}
