// Command assistant is a terminal front-end for an assistant: ask questions,
// browse sessions, upload knowledge and watch background jobs.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ai-assistant-client/internal/config"
	"ai-assistant-client/internal/pkg/logger"
	"ai-assistant-client/pkg/alert"
	"ai-assistant-client/pkg/api"

	"github.com/spf13/cobra"
)

const moduleName = "CLI"

// cli holds what every command needs once the configuration is loaded.
type cli struct {
	cfg     *config.Config
	log     logger.ILogger
	alerter alert.Alerter
	client  *api.Client
	out     io.Writer
}

func newCLI(out io.Writer) (*cli, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// The console belongs to the command output, so diagnostics only go to file.
	log := logger.NewIsolatedLogger(cfg.App.LogFilePath)
	alerter := alert.NewConsole(os.Stderr)

	if exp, ok, err := cfg.TokenExpiry(); err != nil {
		log.Warn(moduleName, "Cannot read token expiry", map[string]interface{}{"error": err.Error()})
	} else if ok && time.Now().After(exp) {
		alerter.Alert(fmt.Sprintf("Your token expired at %s, requests will be rejected.", exp.Format(time.RFC1123)))
	}

	client, err := api.NewClient(api.Options{
		BaseURL: cfg.API.BaseURL,
		APIKey:  cfg.API.APIKey,
		Token:   cfg.API.Token,
		Logger:  log,
	})
	if err != nil {
		return nil, err
	}
	return &cli{cfg: cfg, log: log, alerter: alerter, client: client, out: out}, nil
}

// assistantID resolves the --assistant flag, falling back to the configured id.
func (c *cli) assistantID(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if c.cfg.API.AssistantID != "" {
		return c.cfg.API.AssistantID, nil
	}
	return "", fmt.Errorf("no assistant selected: pass --assistant or set INTRIC_ASSISTANT_ID")
}

func newRootCmd() *cobra.Command {
	var app *cli
	root := &cobra.Command{
		Use:           "assistant",
		Short:         "Talk to an assistant from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			app, err = newCLI(cmd.OutOrStdout())
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app != nil {
				_ = app.log.Sync()
			}
		},
	}
	get := func() *cli { return app }

	root.AddCommand(
		newAskCmd(get),
		newSessionsCmd(get),
		newJobsCmd(get),
		newUploadCmd(get),
		newWatchCmd(get),
		newSpacesCmd(get),
		newPromptsCmd(get),
		newRenameCmd(get),
		newTemplatesCmd(get),
		newLogsCmd(),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, readable(err))
		os.Exit(1)
	}
}
