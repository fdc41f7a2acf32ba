package main

import (
	"fmt"

	"ai-assistant-client/pkg/chat"

	"github.com/spf13/cobra"
)

func newSessionsCmd(get func() *cli) *cobra.Command {
	var assistantFlag string
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Browse the sessions of an assistant",
	}
	cmd.PersistentFlags().StringVarP(&assistantFlag, "assistant", "a", "", "assistant id (defaults to INTRIC_ASSISTANT_ID)")

	// manager opens a chat manager for the selected assistant.
	manager := func(cmd *cobra.Command) (*chat.Manager, error) {
		app := get()
		id, err := app.assistantID(assistantFlag)
		if err != nil {
			return nil, err
		}
		assistant, err := app.client.Assistants.Get(cmd.Context(), id)
		if err != nil {
			return nil, err
		}
		return chat.NewManager(chat.Params{
			Assistant:  *assistant,
			Assistants: app.client.Assistants,
			Alerter:    app.alerter,
			Logger:     app.log,
		}), nil
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List sessions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := manager(cmd)
			if err != nil {
				return err
			}
			defer m.Close()
			if limit <= 0 {
				limit = chat.DefaultPageSize
			}
			if err := m.RefreshHistory(cmd.Context()); err != nil {
				return err
			}
			for m.HasMoreSessions().Get() && m.LoadedSessions().Get() < limit {
				if _, err := m.LoadMoreSessions(cmd.Context(), limit-m.LoadedSessions().Get()); err != nil {
					return err
				}
			}
			out := get().out
			history := m.History().Get()
			if len(history) > limit {
				history = history[:limit]
			}
			for _, s := range history {
				fmt.Fprintf(out, "%-36s  %s  %s\n", s.ID, formatTime(s.CreatedAt), s.Name)
			}
			referenceColor.Fprintf(out, "%d of %d sessions\n", len(history), m.TotalSessions().Get())
			return nil
		},
	}
	list.Flags().IntVarP(&limit, "limit", "n", chat.DefaultPageSize, "number of sessions to show")

	show := &cobra.Command{
		Use:   "show SESSION_ID",
		Short: "Print every message of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := manager(cmd)
			if err != nil {
				return err
			}
			defer m.Close()
			session, err := m.LoadSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := get().out
			questionColor.Fprintf(out, "%s\n\n", session.Name)
			for _, msg := range session.Messages {
				writeMessage(out, msg)
			}
			return nil
		},
	}

	del := &cobra.Command{
		Use:   "delete SESSION_ID",
		Short: "Delete a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := manager(cmd)
			if err != nil {
				return err
			}
			defer m.Close()
			if err := m.DeleteSession(cmd.Context(), args[0]); err != nil {
				return err
			}
			okColor.Fprintf(get().out, "deleted %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(list, show, del)
	return cmd
}
