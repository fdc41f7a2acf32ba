package main

import (
	"fmt"
	"strings"

	"ai-assistant-client/pkg/api"
	"ai-assistant-client/pkg/attachments"
	"ai-assistant-client/pkg/chat"
	"ai-assistant-client/pkg/state"

	"github.com/spf13/cobra"
)

func newAskCmd(get func() *cli) *cobra.Command {
	var (
		assistantFlag string
		sessionID     string
		files         []string
	)
	cmd := &cobra.Command{
		Use:   "ask QUESTION",
		Short: "Ask a question and stream the answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := get()
			ctx := cmd.Context()
			id, err := app.assistantID(assistantFlag)
			if err != nil {
				return err
			}
			assistant, err := app.client.Assistants.Get(ctx, id)
			if err != nil {
				return err
			}

			var uploaded []api.File
			if len(files) > 0 {
				if uploaded, err = app.uploadAttachments(cmd, assistant, files); err != nil {
					return err
				}
			}

			m := chat.NewManager(chat.Params{
				Assistant:  *assistant,
				Assistants: app.client.Assistants,
				Alerter:    app.alerter,
				Logger:     app.log,
			})
			defer m.Close()

			if sessionID != "" {
				if _, err := m.LoadSession(ctx, sessionID); err != nil {
					return err
				}
			}

			question := strings.Join(args, " ")
			questionColor.Fprintf(app.out, "> %s\n", question)

			refs := newCitations()
			printed := ""
			err = m.AskQuestion(ctx, question, uploaded, func() {
				msgs := m.CurrentSession().Get().Messages
				if len(msgs) == 0 {
					return
				}
				answer := msgs[len(msgs)-1].Answer
				if !strings.HasPrefix(answer, printed) {
					// The answer was replaced, e.g. by an error notice.
					fmt.Fprintln(app.out)
					printed = ""
				}
				fmt.Fprint(app.out, refs.render(answer[len(printed):]))
				printed = answer
			})
			fmt.Fprintln(app.out)
			if err != nil {
				return err
			}

			session := m.CurrentSession().Get()
			if n := len(session.Messages); n > 0 {
				refs.writeReferences(app.out, session.Messages[n-1].References)
			}
			referenceColor.Fprintf(app.out, "session %s\n", session.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&assistantFlag, "assistant", "a", "", "assistant id (defaults to INTRIC_ASSISTANT_ID)")
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "continue this session")
	cmd.Flags().StringArrayVarP(&files, "file", "f", nil, "attach a file, may be repeated")
	return cmd
}

// uploadAttachments uploads paths under the limits of assistant and returns
// the files that reached the server.
func (c *cli) uploadAttachments(cmd *cobra.Command, assistant *api.Assistant, paths []string) ([]api.File, error) {
	limits, err := c.client.Limits.Get(cmd.Context())
	if err != nil {
		return nil, err
	}
	local := make([]attachments.LocalFile, 0, len(paths))
	for _, p := range paths {
		f, err := attachments.FileFromPath(p)
		if err != nil {
			return nil, err
		}
		local = append(local, f)
	}

	rules := state.NewWritable(attachments.RulesFor(limits.Attachments, assistant.CompletionModel))
	m := attachments.NewManager(attachments.Params{
		Files:         c.client.Files,
		Rules:         rules.ReadOnly(),
		MaxConcurrent: c.cfg.Uploads.MaxConcurrent,
		OnFileUploaded: func(f api.File) {
			referenceColor.Fprintf(c.out, "uploaded %s\n", f.Name)
		},
		Alerter: c.alerter,
		Logger:  c.log,
	})
	defer m.Close()

	m.QueueValidUploads(local, nil)
	m.Wait()

	uploaded := m.Uploaded()
	if len(uploaded) == 0 {
		return nil, fmt.Errorf("none of the files could be attached")
	}
	return uploaded, nil
}
