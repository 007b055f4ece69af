package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-d string   local sqlite database path
//	-r string   remote Postgres DSN (empty disables sync)
//	-u string   user id
//	-s string   device (session) id
//	-i int      auto-save sweep interval in seconds
//
// The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-d", "-r", "-u", "-s", "-i"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.LocalDSN, "d", cfg.LocalDSN, "local sqlite database path")
	fs.StringVar(&cfg.RemoteDSN, "r", cfg.RemoteDSN, "remote Postgres DSN")
	fs.StringVar(&cfg.UserID, "u", cfg.UserID, "user id")
	fs.StringVar(&cfg.DeviceID, "s", cfg.DeviceID, "device id")
	sweepInterval := fs.Int("i", int(cfg.SweepInterval.Seconds()), "auto-save sweep interval (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.SweepInterval = time.Duration(*sweepInterval) * time.Second
}
