package main

import (
	"fmt"

	"ai-assistant-client/pkg/api"
	"ai-assistant-client/pkg/spaces"

	"github.com/spf13/cobra"
)

func (c *cli) spaceManager(current api.Space) *spaces.Manager {
	return spaces.NewManager(spaces.Params{
		CurrentSpace: current,
		SpaceService: c.client.Spaces,
		Assistants:   c.client.Assistants,
		Alerter:      c.alerter,
		Logger:       c.log,
	})
}

func newSpacesCmd(get func() *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "spaces",
		Short: "Manage spaces",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List the spaces you can access",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := get()
			m := app.spaceManager(api.Space{})
			defer m.Close()
			list, err := m.RefreshSpaces(cmd.Context())
			if err != nil {
				return err
			}
			for _, s := range list {
				kind := ""
				if s.Personal {
					kind = referenceColor.Sprint("(personal)")
				}
				fmt.Fprintf(app.out, "%-36s  %s %s\n", s.ID, s.Name, kind)
			}
			return nil
		},
	}

	show := &cobra.Command{
		Use:   "show [SPACE_ID]",
		Short: "Show the applications and knowledge of a space, the personal one by default",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := get()
			ctx := cmd.Context()
			var (
				space *api.Space
				err   error
			)
			if len(args) == 0 {
				space, err = app.client.Spaces.GetPersonal(ctx)
			} else {
				space, err = app.client.Spaces.Get(ctx, args[0])
			}
			if err != nil {
				return err
			}
			m := app.spaceManager(*space)
			defer m.Close()
			view := m.CurrentSpace().Get()

			questionColor.Fprintf(app.out, "%s (%s)\n", view.Name, view.RouteID)
			section := func(title string, items []api.Named) {
				fmt.Fprintf(app.out, "%s:\n", title)
				for _, it := range items {
					fmt.Fprintf(app.out, "  %-36s  %s\n", it.ID, it.Name)
				}
			}
			fmt.Fprintln(app.out, "Assistants:")
			for _, a := range view.AssistantList {
				fmt.Fprintf(app.out, "  %-36s  %s\n", a.ID, a.Name)
			}
			section("Apps", view.AppList)
			section("Services", view.ServiceList)
			section("Collections", view.CollectionList)
			section("Websites", view.WebsiteList)
			return nil
		},
	}

	create := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a space",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := get()
			m := app.spaceManager(api.Space{})
			defer m.Close()
			space, err := m.CreateSpace(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			okColor.Fprintf(app.out, "created %s %s\n", space.ID, space.Name)
			return nil
		},
	}

	del := &cobra.Command{
		Use:   "delete SPACE_ID",
		Short: "Delete a space",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := get()
			m := app.spaceManager(api.Space{})
			defer m.Close()
			if err := m.DeleteSpace(cmd.Context(), args[0]); err != nil {
				return err
			}
			okColor.Fprintf(app.out, "deleted %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(list, show, create, del)
	return cmd
}
