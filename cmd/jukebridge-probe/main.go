// jukebridge-probe is a diagnostic CLI that runs the refresh-rate probe
// standalone and prints the interval it would register with the display
// framework. Useful for checking what a given host reports before wiring
// the bridge into a full emulator build.
package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/anderstorpsfestivalen/jukebridge/pkg/refresh"
)

type stdoutScheduler struct{}

func (stdoutScheduler) Register(intervalMS int) {
	log.Info().Int("interval_ms", intervalMS).Msg("[probe] registered refresh interval")
}

func (stdoutScheduler) Update(intervalMS int) {
	log.Info().Int("interval_ms", intervalMS).Msg("[probe] updated refresh interval")
}

func main() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()

	prober := refresh.NewProber()
	sched := stdoutScheduler{}

	ms := refresh.Detect(prober, sched)
	log.Info().Int("interval_ms", ms).Msg("[probe] chosen refresh interval")
}
