package main

import (
	"time"

	"github.com/spf13/cobra"

	"relay-agent/src/config"
	"relay-agent/src/tui"
)

var watchInterval time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Show a live dashboard of recent builds",
	Long: `Watch opens a terminal dashboard listing recent builds from the
build-history store. With RELAY_POSTGRES_DSN set it follows builds
recorded by any listener or build agent sharing the database.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 2*time.Second, "refresh interval")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	return tui.RunWatch(st, watchInterval)
}
