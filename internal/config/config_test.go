package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"kaiju-arena/internal/combat"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Server.Port != 3000 {
		t.Errorf("Expected port 3000, got %d", cfg.Server.Port)
	}
	if cfg.Arena.MinRoundSeconds != 0.5 {
		t.Errorf("Expected 0.5s minimum round, got %v", cfg.Arena.MinRoundSeconds)
	}
	if got := cfg.Timings.Timings(); got != combat.DefaultTimings() {
		t.Errorf("Expected default timings, got %+v", got)
	}
	if cfg.Debug.ListenAddr != "127.0.0.1:6060" {
		t.Errorf("Debug server must default to localhost, got %s", cfg.Debug.ListenAddr)
	}
	if cfg.Server.WriteRate >= cfg.Server.ReadRate || cfg.Server.WriteBurst >= cfg.Server.ReadBurst {
		t.Errorf("Arena mutations should be limited tighter than reads: %+v", cfg.Server)
	}
	if cfg.Server.TrustProxy {
		t.Error("Forwarded headers must not be trusted by default")
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "arena.yaml")
	body := []byte("arena:\n  minRoundSeconds: 1.25\n  seed: 7\nserver:\n  port: 4000\nlog:\n  level: debug\n")
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ARENA_SERVER_PORT", "4100")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Arena.MinRoundSeconds != 1.25 || cfg.Arena.Seed != 7 {
		t.Errorf("File values not applied: %+v", cfg.Arena)
	}
	if cfg.Server.Port != 4100 {
		t.Errorf("Expected env override 4100, got %d", cfg.Server.Port)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Expected debug level, got %s", cfg.Log.Level)
	}

	cc := cfg.CombatConfig()
	if cc.MinRound != 1250*time.Millisecond || cc.Seed != 7 {
		t.Errorf("Unexpected combat config: %+v", cc)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}

	t.Setenv("ARENA_SERVER_PORT", "70000")
	if _, err := Load(""); err == nil {
		t.Error("Expected port validation error")
	}
}

func TestParseRoster(t *testing.T) {
	doc := []byte(`
weapons:
  axe:
    baseDamage: 30
    range: 1.2
    label: Chop!
    timings:
      attack: 1200ms
fighters:
  - id: rex
    name: Rex
    team: main
    weapon: axe
    position: {x: 0, y: 0, z: 0}
    stats: {might: 8, insight: 2, luck: 1}
    dodgeProbability: 0.2
  - id: zilla
    team: red
    position: {x: 3, y: 0, z: 0}
    maxHealth: 350
    personalSpace: 0.7
`)
	r, err := ParseRoster(doc)
	if err != nil {
		t.Fatalf("ParseRoster failed: %v", err)
	}
	if len(r.Fighters) != 2 {
		t.Fatalf("Expected 2 fighters, got %d", len(r.Fighters))
	}

	rex := r.Fighters[0].Spec()
	if rex.Team != combat.TeamMain || rex.Stats.Might != 8 || rex.DodgeProbability != 0.2 {
		t.Errorf("Unexpected rex spec: %+v", rex)
	}
	if rex.MaxHealth != 200 {
		t.Errorf("Expected default health, got %v", rex.MaxHealth)
	}
	p, ok := r.Profile(r.Fighters[0])
	if !ok || p.Weapon != "axe" || p.Timings.Attack != 1200*time.Millisecond {
		t.Errorf("Unexpected profile: %+v", p)
	}

	zilla := r.Fighters[1].Spec()
	if zilla.Team != combat.TeamEnemy || zilla.MaxHealth != 350 || zilla.PersonalSpace != 0.7 {
		t.Errorf("Unexpected zilla spec: %+v", zilla)
	}
	if _, ok := r.Profile(r.Fighters[1]); ok {
		t.Error("Unarmed fighter should have no profile")
	}
}

func TestParseRosterRejects(t *testing.T) {
	tests := map[string]string{
		"unknown weapon": "fighters:\n  - name: a\n    weapon: spoon\n",
		"bad team":       "fighters:\n  - name: a\n    team: purple\n",
		"bad dodge":      "fighters:\n  - name: a\n    dodgeProbability: 2\n",
		"not yaml":       "fighters: [",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseRoster([]byte(doc)); err == nil {
				t.Error("Expected error")
			}
		})
	}
}

type spawnRecorder struct{ specs []combat.Spec }

func (s *spawnRecorder) Spawn(spec combat.Spec, _ *combat.AttackProfile) (combat.CombatantSnapshot, error) {
	s.specs = append(s.specs, spec)
	return combat.CombatantSnapshot{ID: spec.ID}, nil
}

func TestDefaultRosterSpawns(t *testing.T) {
	r := DefaultRoster()
	if err := r.Validate(); err != nil {
		t.Fatalf("Default roster invalid: %v", err)
	}
	rec := &spawnRecorder{}
	n, err := r.SpawnAll(rec)
	if err != nil || n != 2 {
		t.Fatalf("Expected 2 spawned, got %d (%v)", n, err)
	}
	gap := combat.FlatDistance(rec.specs[0].Position, rec.specs[1].Position)
	if gap != 2.5 {
		t.Errorf("Expected kaiju 2.5m apart, got %v", gap)
	}
}
