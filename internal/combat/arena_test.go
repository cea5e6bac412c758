package combat

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestArenaDiscover(t *testing.T) {
	a := NewArena()
	first, _ := a.Spawn(duelSpec("", TeamMain, 0))
	second, _ := a.Spawn(duelSpec("", TeamEnemy, 1))
	third, _ := a.Spawn(duelSpec("", TeamEnemy, 2))

	if first.ID != "kaiju-1" || third.ID != "kaiju-3" {
		t.Errorf("Expected sequential ids, got %s and %s", first.ID, third.ID)
	}

	second.Health.TakeDamage(1000)
	roster := a.Discover()
	if len(roster) != 2 || roster[0] != first || roster[1] != third {
		t.Errorf("Expected living combatants in registration order, got %d", len(roster))
	}
	if a.Len() != 3 || len(a.All()) != 3 {
		t.Error("Dead combatants should stay registered until removed")
	}
}

func TestArenaRemoveClearsTargets(t *testing.T) {
	a := NewArena()
	hunter, _ := a.Spawn(duelSpec("hunter", TeamMain, 0))
	prey, _ := a.Spawn(duelSpec("prey", TeamEnemy, 1))
	hunter.Target = prey

	if _, ok := a.Remove("prey"); !ok {
		t.Fatal("Expected prey removed")
	}
	if hunter.Target != nil {
		t.Error("Removed combatant still cached as target")
	}
	if _, ok := a.Get("prey"); ok {
		t.Error("Removed combatant still registered")
	}
	if _, ok := a.Remove("prey"); ok {
		t.Error("Second remove should report missing")
	}
}

func TestSpecValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Spec)
		valid  bool
	}{
		{"baseline", func(*Spec) {}, true},
		{"no health", func(s *Spec) { s.MaxHealth = 0 }, false},
		{"negative budget", func(s *Spec) { s.MoveBudget = -1 }, false},
		{"dodge above one", func(s *Spec) { s.DodgeProbability = 1.5 }, false},
		{"negative personal space", func(s *Spec) { s.PersonalSpace = -0.1 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := DefaultSpec("x", TeamMain)
			tt.mutate(&spec)
			err := spec.Validate()
			if tt.valid && err != nil {
				t.Errorf("Expected valid, got %v", err)
			}
			if !tt.valid && !errors.Is(err, ErrInvalidSpec) {
				t.Errorf("Expected ErrInvalidSpec, got %v", err)
			}
		})
	}
}

func TestParseTeam(t *testing.T) {
	for in, want := range map[string]Team{"main": TeamMain, "RED": TeamEnemy, "2": TeamEnemy, "": TeamNeutral} {
		got, err := ParseTeam(in)
		if err != nil || got != want {
			t.Errorf("ParseTeam(%q) = %s, %v", in, got, err)
		}
	}
	if _, err := ParseTeam("purple"); !errors.Is(err, ErrInvalidSpec) {
		t.Errorf("Expected ErrInvalidSpec for unknown team, got %v", err)
	}
}

func TestChannelSinkDropsWhenFull(t *testing.T) {
	ch := make(chan Event, 1)
	sink := ChannelSink(ch)
	sink(Event{Kind: EventAction})
	sink(Event{Kind: EventDamage})

	if got := <-ch; got.Kind != EventAction {
		t.Errorf("Expected first event kept, got %s", got.Kind)
	}
	select {
	case e := <-ch:
		t.Errorf("Expected overflow dropped, got %s", e.Kind)
	default:
	}
}

func TestSnapshotJSONRoundTrip(t *testing.T) {
	in := Snapshot{
		Sequence: 3,
		State:    StateWait,
		Combatants: []CombatantSnapshot{
			{ID: "kong", Team: TeamEnemy, Intent: IntentDodge, HP: 120, MaxHP: 200},
		},
	}
	b, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out Snapshot
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.State != StateWait || out.Combatants[0].Intent != IntentDodge || out.Combatants[0].Team != TeamEnemy {
		t.Errorf("round trip lost enum values: %+v", out)
	}

	var k EventKind
	if err := k.UnmarshalText([]byte("death")); err != nil || k != EventDeath {
		t.Errorf("EventKind decode = %v, %v", k, err)
	}
	var i Intent
	if err := i.UnmarshalText([]byte("lunge")); err == nil {
		t.Error("unknown intent should not decode")
	}
}
