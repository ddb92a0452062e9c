// Command simulate plays games to completion with the autoplay planner and
// prints win/loss statistics.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"sort"
	"syscall"
	"time"

	"github.com/atilla-legacy/legacy-server-go/internal/game"
	"github.com/atilla-legacy/legacy-server-go/internal/game/rules"
	"github.com/atilla-legacy/legacy-server-go/internal/game/watchers"
	"github.com/atilla-legacy/legacy-server-go/internal/sim"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	games      = flag.Int("games", 100, "number of games to play")
	players    = flag.Int("players", 4, "players per game (2-6)")
	difficulty = flag.String("difficulty", string(rules.Normal), "beginner, normal, master or legendary")
	seed       = flag.Uint64("seed", 0, "base seed; 0 picks one from the clock")
	maxSteps   = flag.Int("max-steps", 10000, "abort a game after this many actions")
	workers    = flag.Int("workers", runtime.NumCPU(), "games played in parallel")
	saveDir    = flag.String("save-dir", "", "write each final state here as a save file")
	format     = flag.String("format", "json", "save file format: json or yaml")
	verbose    = flag.Bool("v", false, "log engine events")
)

type outcome struct {
	index  int
	seed   uint64
	result sim.Result
	final  *game.GameState
	stats  *rules.WatcherRegistry
	err    error
}

func main() {
	flag.Parse()

	logger := zap.NewNop()
	if *verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
			os.Exit(1)
		}
		logger = l
	}
	defer logger.Sync()

	if err := run(logger); err != nil {
		fmt.Fprintf(os.Stderr, "simulate: %v\n", err)
		os.Exit(1)
	}
}

func run(logger *zap.Logger) error {
	d := rules.Difficulty(*difficulty)
	if _, err := rules.Settings(d); err != nil {
		return err
	}
	saveFormat, err := game.ParseFormat(*format)
	if err != nil {
		return err
	}
	if *saveDir != "" {
		if err := os.MkdirAll(*saveDir, 0o755); err != nil {
			return fmt.Errorf("create save dir: %w", err)
		}
	}
	base := *seed
	if base == 0 {
		base = uint64(time.Now().UnixNano())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	outcomes := make([]outcome, *games)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(*workers, 1))

	start := time.Now()
	for i := 0; i < *games; i++ {
		g.Go(func() error {
			o := playOne(ctx, logger, i, base+uint64(i), d)
			if o.err == nil && *saveDir != "" {
				o.err = writeSave(o, saveFormat)
			}
			outcomes[i] = o
			if errors.Is(o.err, context.Canceled) {
				return o.err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	report(outcomes, base, time.Since(start))
	return nil
}

func playOne(ctx context.Context, logger *zap.Logger, index int, seed uint64, d rules.Difficulty) outcome {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	bus := rules.NewEventBus()
	stats := watchers.NewGameRegistry()
	stats.Attach(bus)
	engine := game.NewEngine(
		game.WithRand(rng),
		game.WithLogger(logger.With(zap.Int("game", index))),
		game.WithEventBus(bus),
	)
	planner := sim.NewPlanner(engine.Graph(), rand.New(rand.NewPCG(seed+1, seed)))

	state, err := game.NewInitialStateOn(engine.Graph(), rng, *players, d)
	if err != nil {
		return outcome{index: index, seed: seed, err: err}
	}
	final, res, err := sim.RunToCompletion(ctx, engine, planner, state, *maxSteps)
	return outcome{index: index, seed: seed, result: res, err: err, final: final, stats: stats}
}

func writeSave(o outcome, f game.Format) error {
	sf, err := game.NewSaveFile(o.final, time.Now())
	if err != nil {
		return err
	}
	data, err := game.EncodeSaveFile(sf, f)
	if err != nil {
		return err
	}
	name := fmt.Sprintf("game-%04d-%d.%s", o.index, o.seed, f)
	return os.WriteFile(filepath.Join(*saveDir, name), data, 0o644)
}

func report(outcomes []outcome, base uint64, elapsed time.Duration) {
	var won, lost, aborted int
	var turns, steps, legacies, outbreaks, storms, resolved, rejected []int
	reasons := map[string]int{}
	byRole := map[string]int{}
	outbreakCities := map[string]int{}
	crises := map[string]int{}

	for _, o := range outcomes {
		switch {
		case o.err != nil:
			aborted++
			fmt.Printf("game %d (seed %d): %v\n", o.index, o.seed, o.err)
			continue
		case o.result.Status == game.StatusWon:
			won++
		default:
			lost++
			reasons[o.final.LastMessage()]++
		}
		turns = append(turns, o.result.Turns)
		steps = append(steps, o.result.Steps)
		legacies = append(legacies, o.result.Legacies)
		outbreaks = append(outbreaks, o.result.Outbreaks)
		storms = append(storms, o.result.Storms)

		threats := o.stats.GetWatcher(watchers.KeyThreatsResolved).(*watchers.ThreatsResolvedWatcher)
		resolved = append(resolved, threats.Total())
		for _, p := range o.final.Players {
			byRole[string(p.Role)] += threats.GetCount(p.ID)
		}
		addCounts(outbreakCities, o.stats.GetWatcher(watchers.KeyOutbreaks).(*watchers.OutbreaksWatcher).Outbreaks())
		addCounts(crises, o.stats.GetWatcher(watchers.KeyCrises).(*watchers.CrisesWatcher).Crises())
		rejected = append(rejected, o.stats.GetWatcher(watchers.KeyRejections).(*watchers.RejectionsWatcher).GetCount())
	}

	total := len(outcomes)
	fmt.Printf("\n%d games, %d players, %s difficulty, base seed %d, %s\n",
		total, *players, *difficulty, base, elapsed.Round(time.Millisecond))
	fmt.Printf("  won      %5d  (%5.1f%%)\n", won, pct(won, total))
	fmt.Printf("  lost     %5d  (%5.1f%%)\n", lost, pct(lost, total))
	if aborted > 0 {
		fmt.Printf("  aborted  %5d\n", aborted)
	}
	fmt.Printf("  turns     mean %6.1f  median %d\n", mean(turns), median(turns))
	fmt.Printf("  actions   mean %6.1f  median %d\n", mean(steps), median(steps))
	fmt.Printf("  legacies  mean %6.2f\n", mean(legacies))
	fmt.Printf("  outbreaks mean %6.2f\n", mean(outbreaks))
	fmt.Printf("  storms    mean %6.2f\n", mean(storms))
	fmt.Printf("  resolved  mean %6.2f\n", mean(resolved))
	if r := mean(rejected); r > 0 {
		fmt.Printf("  rejected  mean %6.2f\n", r)
	}

	printCounts("threats resolved by role", byRole, 0)
	printCounts("outbreaks by city", outbreakCities, 5)
	printCounts("crises drawn", crises, 0)

	printCounts("losses by cause", reasons, 0)
}

// printCounts prints counts in descending order, at most limit rows when
// limit is positive.
func printCounts(title string, counts map[string]int, limit int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if limit > 0 && len(keys) > limit {
		keys = keys[:limit]
	}
	fmt.Printf("\n%s:\n", title)
	for _, k := range keys {
		fmt.Printf("  %5d  %s\n", counts[k], k)
	}
}

func addCounts(dst, src map[string]int) {
	for k, v := range src {
		dst[k] += v
	}
}

func pct(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return 100 * float64(n) / float64(total)
}

func mean(xs []int) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0
	for _, x := range xs {
		sum += x
	}
	return float64(sum) / float64(len(xs))
}

func median(xs []int) int {
	if len(xs) == 0 {
		return 0
	}
	s := append([]int(nil), xs...)
	sort.Ints(s)
	return s[len(s)/2]
}
