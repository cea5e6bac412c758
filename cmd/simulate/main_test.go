package main

import (
	"bytes"
	"reflect"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"kaiju-arena/internal/combat"
	"kaiju-arena/internal/config"
)

func TestSimulateStockDuelEnds(t *testing.T) {
	nop := zerolog.Nop()
	rounds := 0
	res, err := simulate(config.DefaultRoster(), 7, 200, &nop, func(combat.RoundReport) { rounds++ })
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	if res.Winner == outcomeTimeout {
		t.Fatalf("stock duel should finish within 200 rounds, got %+v", res)
	}
	if res.Rounds == 0 || uint64(rounds) != res.Rounds {
		t.Errorf("Expected %d round callbacks, got %d", res.Rounds, rounds)
	}
	if len(res.Survivors) > 1 {
		t.Errorf("At most one kaiju can survive a duel, got %v", res.Survivors)
	}
	if res.SimTime <= 0 {
		t.Error("simulated time should accumulate round durations")
	}
	total := 0.0
	for _, d := range res.Damage {
		total += d
	}
	if total < 200 {
		t.Errorf("a finished duel deals at least one health pool, got %.1f", total)
	}
}

func TestSimulateIsDeterministic(t *testing.T) {
	nop := zerolog.Nop()
	var logs [2]bytes.Buffer
	var results [2]Result
	for i := range results {
		res, err := simulate(config.DefaultRoster(), 42, 200, &nop, roundPrinter(&logs[i], false))
		if err != nil {
			t.Fatalf("simulate: %v", err)
		}
		results[i] = res
	}
	if !reflect.DeepEqual(results[0], results[1]) {
		t.Errorf("same seed gave different results:\n%+v\n%+v", results[0], results[1])
	}
	if logs[0].String() != logs[1].String() {
		t.Error("same seed gave different round logs")
	}
}

func TestSimulateRoundLimit(t *testing.T) {
	nop := zerolog.Nop()
	res, err := simulate(config.DefaultRoster(), 1, 1, &nop, nil)
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	if res.Rounds != 1 {
		t.Errorf("Expected 1 round, got %d", res.Rounds)
	}
	if res.Winner != outcomeTimeout {
		t.Errorf("two full-health kaiju after one round should time out, got %s", res.Winner)
	}
}

func TestBatchSummary(t *testing.T) {
	results, err := batch(config.DefaultRoster(), 100, 6, 200)
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	for i, r := range results {
		if r.Seed != 100+int64(i) {
			t.Errorf("result %d has seed %d", i, r.Seed)
		}
	}

	s := summarize(results)
	if s.Bouts != 6 {
		t.Errorf("Expected 6 bouts, got %d", s.Bouts)
	}
	wins := 0
	for _, n := range s.Wins {
		wins += n
	}
	if wins != 6 {
		t.Errorf("every bout needs an outcome label, got %v", s.Wins)
	}

	var out bytes.Buffer
	printSummary(&out, s, false)
	if !strings.HasPrefix(out.String(), "bouts=6") {
		t.Errorf("unexpected summary output %q", out.String())
	}
}

func TestSummarizeEmpty(t *testing.T) {
	if s := summarize(nil); s.Bouts != 0 || s.AvgRounds != 0 {
		t.Errorf("unexpected summary %+v", s)
	}
}
