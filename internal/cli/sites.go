package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/kirillkom/directory-console/internal/core/domain"
	"github.com/kirillkom/directory-console/internal/core/usecase"
)

func sitesCommand(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sites",
		Short: "List and manage directory sites",
	}
	cmd.AddCommand(
		sitesListCommand(s),
		sitesShowCommand(s),
		sitesCreateCommand(s),
		sitesUpdateCommand(s),
		sitesDeleteCommand(s),
	)
	return cmd
}

func sitesListCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List sites",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := s.app.Views.Sites(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if s.asJSON() {
				return writeJSON(out, view)
			}
			rows := make([][]string, 0, len(view.Sites))
			for _, site := range view.Sites {
				rows = append(rows, []string{
					strconv.FormatInt(site.ID, 10),
					site.Name,
					site.Slug,
					orDash(site.NAFCode()),
					orDash(site.Department()),
				})
			}
			if err := table(out, []string{"ID", "NAME", "SLUG", "NAF", "DEPARTMENT"}, rows); err != nil {
				return err
			}
			staleNote(out, view.Freshness)
			return nil
		},
	}
}

func sitesShowCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "show SITE_ID",
		Short: "Show a site with its imports, pages, prompts and map summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			siteID, err := parseID("site id", args[0])
			if err != nil {
				return err
			}
			panel, err := s.app.Views.SitePanel(cmd.Context(), siteID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if s.asJSON() {
				return writeJSON(out, panel)
			}

			site := panel.Site
			fmt.Fprintf(out, "%s (%s) #%d\n", site.Name, site.Slug, site.ID)
			if site.Description != "" {
				fmt.Fprintln(out, site.Description)
			}
			fmt.Fprintf(out, "NAF: %s  Department: %s  Created: %s\n\n",
				orDash(site.NAFCode()), orDash(site.Department()), formatTime(site.CreatedAt))

			fmt.Fprintln(out, "Imports")
			if err := printBoard(out, panel.Imports); err != nil {
				return err
			}
			fmt.Fprintf(out, "\nPages: %d  Prompts: %d  Establishments: %d (%d on map)\n",
				len(panel.Pages.Pages), len(panel.Prompts.Prompts), panel.Map.Total, len(panel.Map.Markers))
			return nil
		},
	}
}

func siteFormFlags(cmd *cobra.Command, form *usecase.SiteForm) {
	flags := cmd.Flags()
	flags.StringVar(&form.Name, "name", form.Name, "Site name")
	flags.StringVar(&form.Slug, "slug", form.Slug, "Site slug")
	flags.StringVar(&form.Description, "description", form.Description, "Description")
	flags.StringVar(&form.NAFCode, "naf", form.NAFCode, "Registry NAF code filter, e.g. 43.22A")
	flags.StringVar(&form.Department, "department", form.Department, "Registry department filter, e.g. 75")
	flags.StringVar(&form.OpenAIPrompt, "prompt", form.OpenAIPrompt, "Default generation prompt")
}

func sitesCreateCommand(s *session) *cobra.Command {
	var form usecase.SiteForm
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a site",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			site, err := s.app.Directory.CreateSite(cmd.Context(), &form, nil)
			if err != nil {
				return err
			}
			return s.printSite(cmd, site)
		},
	}
	siteFormFlags(cmd, &form)
	return cmd
}

// sitesUpdateCommand starts from the current site so unspecified flags keep
// their values.
func sitesUpdateCommand(s *session) *cobra.Command {
	var form usecase.SiteForm
	cmd := &cobra.Command{
		Use:   "update SITE_ID",
		Short: "Update a site",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			siteID, err := parseID("site id", args[0])
			if err != nil {
				return err
			}
			current, _, err := s.app.Resources.Site(cmd.Context(), siteID)
			if err != nil {
				return err
			}
			merged := usecase.SiteFormFrom(current)
			flags := cmd.Flags()
			overlay := func(name string, dst *string, v string) {
				if flags.Changed(name) {
					*dst = v
				}
			}
			overlay("name", &merged.Name, form.Name)
			overlay("slug", &merged.Slug, form.Slug)
			overlay("description", &merged.Description, form.Description)
			overlay("naf", &merged.NAFCode, form.NAFCode)
			overlay("department", &merged.Department, form.Department)
			overlay("prompt", &merged.OpenAIPrompt, form.OpenAIPrompt)

			site, err := s.app.Directory.UpdateSite(cmd.Context(), siteID, &merged)
			if err != nil {
				return err
			}
			return s.printSite(cmd, site)
		},
	}
	siteFormFlags(cmd, &form)
	return cmd
}

func sitesDeleteCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "delete SITE_ID",
		Short: "Delete a site",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			siteID, err := parseID("site id", args[0])
			if err != nil {
				return err
			}
			if err := s.app.Directory.DeleteSite(cmd.Context(), siteID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "site %d deleted\n", siteID)
			return nil
		},
	}
}

func (s *session) printSite(cmd *cobra.Command, site *domain.Site) error {
	out := cmd.OutOrStdout()
	if s.asJSON() {
		return writeJSON(out, site)
	}
	fmt.Fprintf(out, "site %d %s (%s)\n", site.ID, site.Name, site.Slug)
	return nil
}
