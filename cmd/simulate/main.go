// Command simulate runs arena bouts headless, as fast as the CPU allows,
// and prints the result of each round or of a batch of seeded bouts.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"kaiju-arena/internal/combat"
	"kaiju-arena/internal/config"
	"kaiju-arena/internal/logging"
)

const (
	outcomeDraw    = "draw"
	outcomeTimeout = "timeout"
)

// Result is the outcome of one bout.
type Result struct {
	Seed      int64              `json:"seed"`
	Rounds    uint64             `json:"rounds"`
	Winner    string             `json:"winner"` // team name, draw or timeout
	Survivors []string           `json:"survivors"`
	SimTime   time.Duration      `json:"simTime"` // sum of round durations
	Damage    map[string]float64 `json:"damage"`  // dealt, by combatant id
	Crits     int                `json:"crits"`
}

func main() {
	var rosterPath, logLevel string
	var seed int64
	var maxRounds, n int
	var asJSON bool
	flag.StringVar(&rosterPath, "roster", "", "yaml roster (stock duel when empty)")
	flag.Int64Var(&seed, "seed", 1, "dice seed of the first bout")
	flag.IntVar(&maxRounds, "rounds", 200, "round limit per bout")
	flag.IntVar(&n, "n", 1, "number of bouts, seeded seed..seed+n-1")
	flag.BoolVar(&asJSON, "json", false, "print JSON instead of text")
	flag.StringVar(&logLevel, "log-level", "warn", "log level")
	flag.Parse()

	logger := logging.Setup(logLevel, os.Stderr)

	roster := config.DefaultRoster()
	if rosterPath != "" {
		r, err := config.LoadRoster(rosterPath)
		if err != nil {
			logger.Fatal().Err(err).Msg("load roster")
		}
		roster = r
	}

	if n <= 1 {
		res, err := simulate(roster, seed, maxRounds, &logger, roundPrinter(os.Stdout, asJSON))
		if err != nil {
			logger.Fatal().Err(err).Msg("simulate")
		}
		printResult(os.Stdout, res, asJSON)
		return
	}

	results, err := batch(roster, seed, n, maxRounds)
	if err != nil {
		logger.Fatal().Err(err).Msg("simulate")
	}
	printSummary(os.Stdout, summarize(results), asJSON)
}

// simulate runs one bout until at most one team is left or maxRounds pass.
func simulate(roster config.Roster, seed int64, maxRounds int, logger *zerolog.Logger, onRound func(combat.RoundReport)) (Result, error) {
	res := Result{Seed: seed, Damage: make(map[string]float64)}

	cfg := combat.DefaultConfig()
	cfg.Seed = seed
	cfg.Logger = logger
	cfg.OnRound = func(r combat.RoundReport) {
		res.SimTime += r.Duration
		for _, o := range r.Outcomes {
			if o.Damage > 0 {
				res.Damage[o.CombatantID] += o.Damage
			}
			if o.Critical {
				res.Crits++
			}
		}
		if onRound != nil {
			onRound(r)
		}
	}
	s := combat.NewScheduler(cfg)
	if _, err := roster.SpawnAll(s); err != nil {
		return res, err
	}

	for i := 0; i < maxRounds && s.Snapshot().TeamsAlive() > 1; i++ {
		if _, ok := s.RunRound(); !ok {
			break
		}
	}

	snap := s.Snapshot()
	res.Rounds = snap.Round
	res.Survivors = []string{}
	teams := make(map[combat.Team]struct{})
	for _, c := range snap.Combatants {
		if !c.IsDead {
			res.Survivors = append(res.Survivors, c.ID)
			teams[c.Team] = struct{}{}
		}
	}
	switch len(teams) {
	case 0:
		res.Winner = outcomeDraw
	case 1:
		for t := range teams {
			res.Winner = t.String()
		}
	default:
		res.Winner = outcomeTimeout
	}
	return res, nil
}

// batch runs n bouts on a worker pool. Results are ordered by seed.
func batch(roster config.Roster, seed int64, n, maxRounds int) ([]Result, error) {
	results := make([]Result, n)
	errs := make([]error, n)

	jobs := make(chan int, n)
	for i := 0; i < n; i++ {
		jobs <- i
	}
	close(jobs)

	nop := zerolog.Nop()
	var wg sync.WaitGroup
	for w := 0; w < min(8, n); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i], errs[i] = simulate(roster, seed+int64(i), maxRounds, &nop, nil)
			}
		}()
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

// Summary aggregates a batch.
type Summary struct {
	Bouts     int            `json:"bouts"`
	Wins      map[string]int `json:"wins"` // by winner label
	AvgRounds float64        `json:"avgRounds"`
	AvgTime   time.Duration  `json:"avgSimTime"`
}

func summarize(results []Result) Summary {
	s := Summary{Bouts: len(results), Wins: make(map[string]int)}
	if len(results) == 0 {
		return s
	}
	var rounds uint64
	var simTime time.Duration
	for _, r := range results {
		s.Wins[r.Winner]++
		rounds += r.Rounds
		simTime += r.SimTime
	}
	s.AvgRounds = float64(rounds) / float64(len(results))
	s.AvgTime = simTime / time.Duration(len(results))
	return s
}

func roundPrinter(w io.Writer, asJSON bool) func(combat.RoundReport) {
	if asJSON {
		enc := json.NewEncoder(w)
		return func(r combat.RoundReport) { enc.Encode(r) }
	}
	return func(r combat.RoundReport) {
		fmt.Fprintf(w, "round %3d  %6s  alive=%d", r.Round, r.Duration.Round(time.Millisecond), r.Alive)
		for _, o := range r.Outcomes {
			fmt.Fprintf(w, "  %s:%s", o.CombatantID, o.Action)
			if o.Damage > 0 {
				fmt.Fprintf(w, "(%.1f", o.Damage)
				if o.Critical {
					fmt.Fprint(w, "!")
				}
				fmt.Fprint(w, ")")
			}
		}
		for _, id := range r.Deaths {
			fmt.Fprintf(w, "  ✝%s", id)
		}
		fmt.Fprintln(w)
	}
}

func printResult(w io.Writer, res Result, asJSON bool) {
	if asJSON {
		json.NewEncoder(w).Encode(res)
		return
	}
	fmt.Fprintf(w, "seed=%d rounds=%d winner=%s survivors=%v simTime=%s crits=%d\n",
		res.Seed, res.Rounds, res.Winner, res.Survivors, res.SimTime.Round(time.Millisecond), res.Crits)
	ids := make([]string, 0, len(res.Damage))
	for id := range res.Damage {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Fprintf(w, "  %-12s dealt %.1f\n", id, res.Damage[id])
	}
}

func printSummary(w io.Writer, s Summary, asJSON bool) {
	if asJSON {
		json.NewEncoder(w).Encode(s)
		return
	}
	fmt.Fprintf(w, "bouts=%d avgRounds=%.1f avgSimTime=%s\n", s.Bouts, s.AvgRounds, s.AvgTime.Round(time.Millisecond))
	labels := make([]string, 0, len(s.Wins))
	for l := range s.Wins {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	for _, l := range labels {
		fmt.Fprintf(w, "  %-8s %d\n", l, s.Wins[l])
	}
}
