package main

import (
	"encoding/json"
	"fmt"
	"time"

	"ai-assistant-client/internal/pkg/logger"
	"ai-assistant-client/pkg/socket"

	"github.com/spf13/cobra"
)

func newWatchCmd(get func() *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "watch CHANNEL...",
		Short: "Print live messages from socket channels, e.g. jobs or sessions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := get()
			token := app.cfg.API.Token
			if token == "" {
				token = app.cfg.API.APIKey
			}
			s, err := socket.New(socket.Options{
				BaseURL:           app.cfg.API.BaseURL,
				Token:             token,
				HeartbeatInterval: app.cfg.Socket.HeartbeatInterval,
				HeartbeatTimeout:  app.cfg.Socket.HeartbeatTimeout,
				Logger:            logger.NewIsolatedLogger(app.cfg.App.SocketLogPath),
			})
			if err != nil {
				return err
			}
			if err := s.Connect(cmd.Context()); err != nil {
				return err
			}
			defer s.Disconnect()

			for _, channel := range args {
				channel := channel
				s.Subscribe(channel, func(data json.RawMessage) {
					citationColor.Fprintf(app.out, "%s %s ", time.Now().Format("15:04:05"), channel)
					fmt.Fprintln(app.out, string(data))
				})
			}
			referenceColor.Fprintf(app.out, "watching %v, press Ctrl+C to stop\n", args)

			<-cmd.Context().Done()
			return nil
		},
	}
}
