package main

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/gdamore/tcell/v2"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"drones-sim/internal/simulation"
)

func newRunCmd() *cobra.Command {
	var configDir string
	var addr string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the simulation interactively with a keyboard control loop and HTTP status endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInteractive(configDir, addr)
		},
	}
	cmd.Flags().StringVar(&configDir, "config", ".", "directory containing world.json, stations.json, drones.json, missions.json")
	cmd.Flags().StringVar(&addr, "addr", ":8080", "HTTP listen address for the /state endpoint")
	return cmd
}

// speed holds the live realtime multiplier the keyboard loop adjusts;
// tcell's event loop and Run's ticking goroutine both touch it, so it is
// read/written atomically rather than guarded by Simulation's own lock.
type speed struct {
	factor atomic.Value // float64
}

func newSpeed(initial float64) *speed {
	s := &speed{}
	s.factor.Store(initial)
	return s
}

func (s *speed) get() float64 { return s.factor.Load().(float64) }
func (s *speed) double()      { s.factor.Store(s.get() * 2) }

func (s *speed) half() {
	f := s.get() / 2
	if f < 0.125 {
		f = 0.125
	}
	s.factor.Store(f)
}

func runInteractive(configDir, addr string) error {
	l, err := loadSimulation(configDir)
	if err != nil {
		return err
	}

	mux := chi.NewRouter()
	mux.Get("/state", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(l.sim.Snapshot())
	})
	mux.Post("/toggle", func(w http.ResponseWriter, r *http.Request) {
		running := l.sim.ToggleRunning()
		json.NewEncoder(w).Encode(map[string]bool{"running": running})
	})

	server := &http.Server{Addr: addr, Handler: mux}
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info().Str("addr", addr).Msg("serving /state")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("http server failed")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	pace := newSpeed(1.0)

	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()

	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			switch e := ev.(type) {
			case *tcell.EventKey:
				switch {
				case e.Key() == tcell.KeyEscape:
					cancel()
					return
				case e.Rune() == ' ':
					l.sim.ToggleRunning()
				case e.Rune() == '+':
					pace.double()
				case e.Rune() == '-':
					pace.half()
				}
			}
		}
	}()

	l.sim.SetRunning(true)
	runErr := l.sim.Run(ctx, pace.get)

	shutdownCtx, shutdownCancel := context.WithCancel(context.Background())
	defer shutdownCancel()
	server.Shutdown(shutdownCtx)
	wg.Wait()

	return runErr
}
