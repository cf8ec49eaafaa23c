package main

import (
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/webchat/internal/monitor"
)

func newMonitorCmd() *cobra.Command {
	var cf clientFlags
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Watch relay status in a terminal UI",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := cf.client()
			if err != nil {
				return err
			}
			return monitor.Run(monitor.Options{
				Context:  cmd.Context(),
				Client:   client,
				PollTick: interval,
			})
		},
	}
	cf.register(cmd)
	cmd.Flags().DurationVar(&interval, "interval", time.Second, "poll interval")
	return cmd
}
