package main

import (
	"context"
	"fmt"
	"time"

	"ai-assistant-client/pkg/api"
	"ai-assistant-client/pkg/attachments"
	"ai-assistant-client/pkg/jobs"

	"github.com/spf13/cobra"
)

func (c *cli) jobManager() *jobs.Manager {
	return jobs.NewManager(jobs.Params{
		Jobs:          c.client.Jobs,
		InfoBlobs:     c.client.InfoBlobs,
		PollInterval:  c.cfg.Jobs.PollInterval,
		RetryDelay:    c.cfg.Jobs.RetryDelay,
		MaxFailures:   c.cfg.Jobs.MaxFailures,
		MaxConcurrent: c.cfg.Uploads.MaxConcurrent,
		Alerter:       c.alerter,
		Logger:        c.log,
	})
}

// waitJobs prints the running jobs whenever they change and returns once
// nothing runs anymore. Failed polls are retried by the manager.
func (c *cli) waitJobs(ctx context.Context, m *jobs.Manager) error {
	unsubscribe := m.Jobs().Subscribe(func(list []api.Job) {
		for _, job := range list {
			writeJob(c.out, job)
		}
	})
	defer unsubscribe()

	tick := time.NewTicker(200 * time.Millisecond)
	defer tick.Stop()
	for m.CurrentlyRunning().Get() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
		}
	}
	return nil
}

func newJobsCmd(get func() *cli) *cobra.Command {
	var (
		all    bool
		follow bool
	)
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List background jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := get()
			ctx := cmd.Context()

			list, err := app.client.Jobs.List(ctx, all)
			if err != nil {
				return err
			}
			for _, job := range list {
				writeJob(app.out, job)
			}
			if !follow {
				return nil
			}

			m := app.jobManager()
			defer m.Close()
			for _, job := range list {
				if job.Running() {
					m.AddJob(job)
				}
			}
			if err := app.waitJobs(ctx, m); err != nil {
				return err
			}
			okColor.Fprintln(app.out, "all jobs finished")
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include finished jobs")
	cmd.Flags().BoolVarP(&follow, "follow", "F", false, "poll until every job finished")
	return cmd
}

func newUploadCmd(get func() *cli) *cobra.Command {
	var (
		groupID string
		noWait  bool
	)
	cmd := &cobra.Command{
		Use:   "upload FILE...",
		Short: "Upload files into a collection",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := get()
			files := make([]attachments.LocalFile, 0, len(args))
			for _, p := range args {
				f, err := attachments.FileFromPath(p)
				if err != nil {
					return err
				}
				files = append(files, f)
			}

			m := app.jobManager()
			defer m.Close()

			unsubscribe := m.Uploads().Subscribe(func(ups []jobs.Upload) {
				for _, u := range ups {
					if u.Status == attachments.StatusCompleted {
						continue
					}
					referenceColor.Fprintf(app.out, "%-30s %3d%%\r", u.File.Name, u.Progress)
				}
			})
			m.QueueUploads(groupID, files)
			m.WaitUploads()
			unsubscribe()
			fmt.Fprintln(app.out)

			for _, u := range m.Uploads().Get() {
				fmt.Fprintf(app.out, "%s  %s\n", okColor.Sprint(u.Status), u.File.Name)
			}
			if noWait {
				return nil
			}
			return app.waitJobs(cmd.Context(), m)
		},
	}
	cmd.Flags().StringVarP(&groupID, "group", "g", "", "collection id")
	cmd.Flags().BoolVar(&noWait, "no-wait", false, "return once the files are uploaded")
	_ = cmd.MarkFlagRequired("group")
	return cmd
}
