package main

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"drones-sim/internal/simulation"
)

// surveyResult is one run's outcome: how long (in simulated seconds) it
// took to drain the mission pool, or whether it never did within
// maxTicks.
type surveyResult struct {
	completed     bool
	elapsedAtDone float64
	ticksRun      int
}

func newSurveyCmd() *cobra.Command {
	var configDir string
	var runs int
	var maxTicks int

	cmd := &cobra.Command{
		Use:   "survey",
		Short: "Run the simulation headlessly N times and report mission-completion statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSurvey(configDir, runs, maxTicks)
		},
	}
	cmd.Flags().StringVar(&configDir, "config", ".", "directory containing world.json, stations.json, drones.json, missions.json")
	cmd.Flags().IntVar(&runs, "runs", 10, "number of independent simulation runs")
	cmd.Flags().IntVar(&maxTicks, "max-ticks", 100000, "give up on a run after this many ticks with missions still pending")
	return cmd
}

func runSurvey(configDir string, runs, maxTicks int) error {
	var results []surveyResult
	for i := 0; i < runs; i++ {
		l, err := loadSimulation(configDir)
		if err != nil {
			return err
		}
		result := surveyOnce(l.sim, maxTicks)
		results = append(results, result)
		log.Info().
			Int("run", i+1).
			Bool("completed", result.completed).
			Float64("elapsed", result.elapsedAtDone).
			Int("ticks", result.ticksRun).
			Msg("survey run finished")
	}

	report(results)
	return nil
}

// surveyOnce ticks sim directly (bypassing Run's wall-clock pacing, since
// a headless survey wants to run as fast as the host can compute) until
// the mission pool and every drone's assigned mission are empty, or
// maxTicks is exceeded.
func surveyOnce(sim *simulation.Simulation, maxTicks int) surveyResult {
	for i := 0; i < maxTicks; i++ {
		if err := sim.Tick(); err != nil {
			log.Error().Err(err).Msg("survey tick failed")
			return surveyResult{completed: false, ticksRun: i}
		}
		snap := sim.Snapshot()
		if snap.PendingCount == 0 && allIdle(snap) {
			return surveyResult{completed: true, elapsedAtDone: snap.Elapsed, ticksRun: i + 1}
		}
	}
	return surveyResult{completed: false, ticksRun: maxTicks}
}

func allIdle(snap simulation.Snapshot) bool {
	for _, d := range snap.Drones {
		if d.State != "wait" && d.State != "onCharge" {
			return false
		}
	}
	return true
}

func report(results []surveyResult) {
	completed := 0
	var totalElapsed float64
	for _, r := range results {
		if r.completed {
			completed++
			totalElapsed += r.elapsedAtDone
		}
	}

	fmt.Printf("runs: %d, completed: %d\n", len(results), completed)
	if completed > 0 {
		fmt.Printf("mean completion time: %s\n", time.Duration(totalElapsed/float64(completed)*float64(time.Second)))
	}
}
