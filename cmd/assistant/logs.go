package main

import (
	"fmt"
	"strings"

	"ai-assistant-client/internal/config"
	"ai-assistant-client/internal/pkg/logger"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var levelColors = map[string]*color.Color{
	"ERROR": color.New(color.FgRed),
	"WARN":  color.New(color.FgYellow),
	"INFO":  color.New(color.FgGreen),
	"DEBUG": color.New(color.FgHiBlack),
}

// newLogsCmd reads the log file directly, so it works while the backend is down.
func newLogsCmd() *cobra.Command {
	var (
		level  string
		limit  int
		socket bool
	)
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the newest diagnostic log entries",
		Args:  cobra.NoArgs,
		// No API client needed.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			path := cfg.App.LogFilePath
			if socket {
				path = cfg.App.SocketLogPath
			}
			entries, err := logger.ReadEntries(path, strings.ToUpper(level), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, e := range entries {
				c, ok := levelColors[e.Level]
				if !ok {
					c = color.New()
				}
				fmt.Fprintf(out, "%s %s [%s] %s", e.Timestamp, c.Sprintf("%-5s", e.Level), e.Module, e.Message)
				if len(e.Details) > 0 {
					fmt.Fprintf(out, " %v", e.Details)
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&level, "level", "l", "", "only show this level (debug, info, warn, error)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "number of entries")
	cmd.Flags().BoolVar(&socket, "socket", false, "read the socket log instead")
	return cmd
}
