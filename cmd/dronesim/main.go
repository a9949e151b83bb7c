// Command dronesim runs the drone swarm area-scan, agro-spray, path-transit
// and perimeter-patrol mission simulation, either interactively (run) or as
// a headless multi-trial survey (survey).
package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	root := &cobra.Command{
		Use:   "dronesim",
		Short: "Drone swarm mission simulator (area scan, agro spray, path transit, perimeter patrol)",
	}
	root.AddCommand(newRunCmd())
	root.AddCommand(newSurveyCmd())

	if err := root.Execute(); err != nil {
		log.Fatal().Err(err).Msg("dronesim failed")
	}
}
