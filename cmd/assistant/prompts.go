package main

import (
	"context"
	"fmt"

	"ai-assistant-client/pkg/api"
	"ai-assistant-client/pkg/assistants"
	"ai-assistant-client/pkg/editing"
	"ai-assistant-client/pkg/prompts"

	"github.com/spf13/cobra"
)

// editor opens the assistant editor for the selected assistant.
func (c *cli) editor(ctx context.Context, assistantFlag string) (*editing.ResourceEditor, error) {
	id, err := c.assistantID(assistantFlag)
	if err != nil {
		return nil, err
	}
	assistant, err := c.client.Assistants.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return assistants.NewEditor(assistants.EditorParams{
		Assistant:  *assistant,
		Assistants: c.client.Assistants,
		Files:      c.client.Files,
		Alerter:    c.alerter,
		Logger:     c.log,
	})
}

func newPromptsCmd(get func() *cli) *cobra.Command {
	var assistantFlag string
	cmd := &cobra.Command{
		Use:   "prompts",
		Short: "Show the prompt history of an assistant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := get()
			id, err := app.assistantID(assistantFlag)
			if err != nil {
				return err
			}
			m := prompts.NewManager(prompts.Params{
				Prompts: app.client.Prompts,
				LoadHistory: func(ctx context.Context) ([]api.PromptSparse, error) {
					return app.client.Assistants.ListPrompts(ctx, id)
				},
				Alerter: app.alerter,
				Logger:  app.log,
			})
			if err := m.Init(cmd.Context()); err != nil {
				return err
			}
			for _, p := range m.AllPrompts().Get() {
				marker := " "
				if p.IsSelected {
					marker = okColor.Sprint("*")
				}
				fmt.Fprintf(app.out, "%s %-36s  %s  %s\n", marker, p.ID, formatTime(p.CreatedAt), p.Description)
			}
			if preview := m.PreviewedPrompt().Get(); preview != nil {
				fmt.Fprintln(app.out)
				fmt.Fprintln(app.out, preview.Text)
			}
			return nil
		},
	}
	cmd.PersistentFlags().StringVarP(&assistantFlag, "assistant", "a", "", "assistant id (defaults to INTRIC_ASSISTANT_ID)")

	restore := &cobra.Command{
		Use:   "restore PROMPT_ID",
		Short: "Make an earlier prompt version the current one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := get()
			ctx := cmd.Context()
			editor, err := app.editor(ctx, assistantFlag)
			if err != nil {
				return err
			}
			defer editor.Close()

			m := prompts.NewManager(prompts.Params{
				Prompts:          app.client.Prompts,
				LoadHistory:      func(context.Context) ([]api.PromptSparse, error) { return nil, nil },
				OnPromptSelected: func(p api.Prompt) { assistants.ApplyPrompt(editor, p) },
				Alerter:          app.alerter,
				Logger:           app.log,
			})
			prompt, err := m.LoadPreview(ctx, args[0])
			if err != nil {
				return err
			}
			m.SelectPrompt(*prompt)
			if err := editor.SaveChanges(ctx); err != nil {
				return err
			}
			okColor.Fprintf(app.out, "restored prompt %s\n", prompt.ID)
			return nil
		},
	}

	describe := &cobra.Command{
		Use:   "describe PROMPT_ID DESCRIPTION",
		Short: "Change the description of a prompt version",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := get()
			m := prompts.NewManager(prompts.Params{Prompts: app.client.Prompts, Alerter: app.alerter, Logger: app.log})
			return m.UpdatePromptDescription(cmd.Context(), args[0], args[1])
		},
	}

	cmd.AddCommand(restore, describe)
	return cmd
}

func newRenameCmd(get func() *cli) *cobra.Command {
	var assistantFlag string
	cmd := &cobra.Command{
		Use:   "rename NAME",
		Short: "Rename an assistant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := get()
			id, err := app.assistantID(assistantFlag)
			if err != nil {
				return err
			}
			assistant, err := app.client.Assistants.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			editable, err := editing.MakeEditable(assistant)
			if err != nil {
				return err
			}
			editable.Set("name", args[0])
			changes, err := assistants.Patch(cmd.Context(), app.client.Assistants, editable)
			if err != nil {
				return err
			}
			if changes == nil {
				fmt.Fprintf(app.out, "%s is already named %s\n", assistant.ID, assistant.Name)
				return nil
			}
			saved, err := assistants.Decode(editable.Original())
			if err != nil {
				return err
			}
			okColor.Fprintf(app.out, "renamed %s to %s\n", saved.ID, saved.Name)
			return nil
		},
	}
	cmd.Flags().StringVarP(&assistantFlag, "assistant", "a", "", "assistant id (defaults to INTRIC_ASSISTANT_ID)")
	return cmd
}
