package main

import (
	"fmt"

	"ai-assistant-client/pkg/api"
	"ai-assistant-client/pkg/templates"

	"github.com/spf13/cobra"
)

func newTemplatesCmd(get func() *cli) *cobra.Command {
	var (
		spaceID string
		apps    bool
	)
	// adapter picks the resource kind and the target space.
	adapter := func(cmd *cobra.Command, app *cli) (templates.Adapter, error) {
		id := spaceID
		if id == "" {
			personal, err := app.client.Spaces.GetPersonal(cmd.Context())
			if err != nil {
				return nil, err
			}
			id = personal.ID
		}
		if apps {
			return templates.NewAppAdapter(app.client.Templates, id), nil
		}
		return templates.NewAssistantAdapter(app.client.Templates, id), nil
	}

	cmd := &cobra.Command{
		Use:   "templates",
		Short: "List templates by category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := get()
			a, err := adapter(cmd, app)
			if err != nil {
				return err
			}
			list, err := a.Templates(cmd.Context())
			if err != nil {
				return err
			}
			for _, category := range a.Categorise(list) {
				questionColor.Fprintln(app.out, category.Title)
				referenceColor.Fprintln(app.out, category.Description)
				for _, t := range category.Templates {
					fmt.Fprintf(app.out, "  %-14s  %s\n", t.ID, t.Name)
				}
				fmt.Fprintln(app.out)
			}
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&spaceID, "space", "", "target space (defaults to the personal space)")
	cmd.PersistentFlags().BoolVar(&apps, "apps", false, "use app templates instead of assistant templates")

	var (
		name        string
		collections []string
	)
	create := &cobra.Command{
		Use:   "create [TEMPLATE_ID]",
		Short: "Create an assistant or app, from a template when one is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := get()
			ctx := cmd.Context()
			a, err := adapter(cmd, app)
			if err != nil {
				return err
			}
			list, err := a.Templates(ctx)
			if err != nil {
				return err
			}

			c := templates.NewController(templates.Params{Adapter: a, Templates: list, Alerter: app.alerter, Logger: app.log})
			defer c.Close()
			c.SetName(name)

			if len(args) == 0 {
				c.SetCreationMode(templates.ModeBlank)
			} else {
				var chosen *api.Template
				for i := range list {
					if list[i].ID == args[0] {
						chosen = &list[i]
					}
				}
				if chosen == nil {
					return fmt.Errorf("unknown template %s", args[0])
				}
				c.SelectTemplate(*chosen)
				c.SetCreationMode(templates.ModeTemplate)
				groups := make([]api.Named, 0, len(collections))
				for _, id := range collections {
					groups = append(groups, api.Named{ID: id})
				}
				c.SetCollections(groups)
			}
			if c.Form().Get().Name == "" {
				return fmt.Errorf("a name is required for blank creation")
			}

			var created string
			// A template with a wizard takes two steps, like the form would.
			for i := 0; i < 2 && created == ""; i++ {
				label := c.CreateButtonLabel().Get()
				if err := c.CreateOrContinue(ctx, func(id string) { created = id }); err != nil {
					return err
				}
				if created == "" && label != "Next" {
					break
				}
			}
			if created == "" {
				return fmt.Errorf("nothing was created")
			}
			okColor.Fprintf(app.out, "created %s %s\n", a.ResourceName().Singular, created)
			return nil
		},
	}
	create.Flags().StringVarP(&name, "name", "n", "", "name of the new resource, defaults to the template name")
	create.Flags().StringSliceVar(&collections, "collection", nil, "collection ids for templates that need knowledge")

	cmd.AddCommand(create)
	return cmd
}
