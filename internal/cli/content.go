package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kirillkom/directory-console/internal/core/domain"
	"github.com/kirillkom/directory-console/internal/core/usecase"
)

func pagesCommand(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pages",
		Short: "Manage the manual pages of a site",
	}
	cmd.AddCommand(
		pagesListCommand(s),
		pagesShowCommand(s),
		pagesCreateCommand(s),
		pagesUpdateCommand(s),
		pagesDeleteCommand(s),
	)
	return cmd
}

func pagesListCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "list SITE_ID",
		Short: "List pages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			siteID, err := parseID("site id", args[0])
			if err != nil {
				return err
			}
			view, err := s.app.Views.Pages(cmd.Context(), siteID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if s.asJSON() {
				return writeJSON(out, view)
			}
			rows := make([][]string, 0, len(view.Pages))
			for _, page := range view.Pages {
				rows = append(rows, []string{
					strconv.FormatInt(page.ID, 10),
					page.Title,
					page.Slug,
					formatTime(page.UpdatedAt),
				})
			}
			if err := table(out, []string{"ID", "TITLE", "SLUG", "UPDATED"}, rows); err != nil {
				return err
			}
			staleNote(out, view.Freshness)
			return nil
		},
	}
}

func pagesShowCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "show SITE_ID PAGE_ID",
		Short: "Show one page with its content",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			siteID, err := parseID("site id", args[0])
			if err != nil {
				return err
			}
			pageID, err := parseID("page id", args[1])
			if err != nil {
				return err
			}
			page, err := s.app.Directory.Page(cmd.Context(), siteID, pageID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if s.asJSON() {
				return writeJSON(out, page)
			}
			fmt.Fprintf(out, "page %d %s (%s)\n", page.ID, page.Title, page.Slug)
			fmt.Fprintf(out, "seo: %s\nupdated: %s\n\n", orDash(page.SEODescription), formatTime(page.UpdatedAt))
			fmt.Fprintln(out, page.Content)
			return nil
		},
	}
}

// readContent resolves a --content-file flag; "-" reads stdin.
func readContent(cmd *cobra.Command, path string) (string, error) {
	var r io.Reader
	if path == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(path)
		if err != nil {
			return "", err
		}
		defer f.Close()
		r = f
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read content: %w", err)
	}
	return string(raw), nil
}

func pagesCreateCommand(s *session) *cobra.Command {
	var (
		form        usecase.PageForm
		contentFile string
	)
	cmd := &cobra.Command{
		Use:   "create SITE_ID",
		Short: "Create a page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			siteID, err := parseID("site id", args[0])
			if err != nil {
				return err
			}
			if contentFile != "" {
				if form.Content, err = readContent(cmd, contentFile); err != nil {
					return err
				}
			}
			page, err := s.app.Directory.CreatePage(cmd.Context(), siteID, &form)
			if err != nil {
				return err
			}
			return s.printPage(cmd, page)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&form.Title, "title", "", "Page title")
	flags.StringVar(&form.Slug, "slug", "", "Page slug")
	flags.StringVar(&form.Content, "content", "", "Page content")
	flags.StringVar(&contentFile, "content-file", "", "Read the content from a file, - for stdin")
	flags.StringVar(&form.SEODescription, "seo-description", "", "SEO description")
	return cmd
}

// pagesUpdateCommand sends only the fields whose flags were given.
func pagesUpdateCommand(s *session) *cobra.Command {
	var title, slug, content, contentFile, seo string
	cmd := &cobra.Command{
		Use:   "update SITE_ID PAGE_ID",
		Short: "Update a page",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			siteID, err := parseID("site id", args[0])
			if err != nil {
				return err
			}
			pageID, err := parseID("page id", args[1])
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			var update domain.ManualPageUpdate
			if flags.Changed("title") {
				update.Title = &title
			}
			if flags.Changed("slug") {
				update.Slug = &slug
			}
			if flags.Changed("content-file") {
				if content, err = readContent(cmd, contentFile); err != nil {
					return err
				}
				update.Content = &content
			} else if flags.Changed("content") {
				update.Content = &content
			}
			if flags.Changed("seo-description") {
				update.SEODescription = &seo
			}

			page, err := s.app.Directory.UpdatePage(cmd.Context(), siteID, pageID, update)
			if err != nil {
				return err
			}
			return s.printPage(cmd, page)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&title, "title", "", "Page title")
	flags.StringVar(&slug, "slug", "", "Page slug")
	flags.StringVar(&content, "content", "", "Page content")
	flags.StringVar(&contentFile, "content-file", "", "Read the content from a file, - for stdin")
	flags.StringVar(&seo, "seo-description", "", "SEO description")
	return cmd
}

func pagesDeleteCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "delete SITE_ID PAGE_ID",
		Short: "Delete a page",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			siteID, err := parseID("site id", args[0])
			if err != nil {
				return err
			}
			pageID, err := parseID("page id", args[1])
			if err != nil {
				return err
			}
			if err := s.app.Directory.DeletePage(cmd.Context(), siteID, pageID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "page %d deleted\n", pageID)
			return nil
		},
	}
}

func (s *session) printPage(cmd *cobra.Command, page *domain.ManualPage) error {
	out := cmd.OutOrStdout()
	if s.asJSON() {
		return writeJSON(out, page)
	}
	fmt.Fprintf(out, "page %d %s (%s)\n", page.ID, page.Title, page.Slug)
	return nil
}

func promptsCommand(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prompts",
		Short: "Manage the generation prompt templates of a site",
	}
	cmd.AddCommand(
		promptsListCommand(s),
		promptsCreateCommand(s),
		promptsDeleteCommand(s),
		promptsPlaceholdersCommand(),
	)
	return cmd
}

func promptsListCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "list SITE_ID",
		Short: "List prompt templates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			siteID, err := parseID("site id", args[0])
			if err != nil {
				return err
			}
			view, err := s.app.Views.Prompts(cmd.Context(), siteID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if s.asJSON() {
				return writeJSON(out, view)
			}
			rows := make([][]string, 0, len(view.Prompts))
			for _, p := range view.Prompts {
				rows = append(rows, []string{
					strconv.FormatInt(p.Template.ID, 10),
					p.Template.Label,
					string(p.Template.Scope),
					orDash(strings.Join(p.Placeholders, ", ")),
				})
			}
			if err := table(out, []string{"ID", "LABEL", "SCOPE", "PLACEHOLDERS"}, rows); err != nil {
				return err
			}
			staleNote(out, view.Freshness)
			return nil
		},
	}
}

func promptsCreateCommand(s *session) *cobra.Command {
	form := usecase.NewPromptForm()
	var scope string
	cmd := &cobra.Command{
		Use:   "create SITE_ID",
		Short: "Create a prompt template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			siteID, err := parseID("site id", args[0])
			if err != nil {
				return err
			}
			form.Scope = domain.PromptScope(strings.TrimSpace(scope))
			prompt, err := s.app.Directory.CreatePrompt(cmd.Context(), siteID, &form)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if s.asJSON() {
				return writeJSON(out, prompt)
			}
			fmt.Fprintf(out, "prompt %d %s (%s)\n", prompt.ID, prompt.Label, prompt.Scope)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&form.Label, "label", "", "Template label")
	flags.StringVar(&form.Prompt, "prompt", "", "Template text with {placeholders}")
	flags.StringVar(&scope, "scope", string(domain.ScopeCity), "Scope: city, postal_code or custom")
	return cmd
}

func promptsDeleteCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "delete SITE_ID PROMPT_ID",
		Short: "Delete a prompt template",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			siteID, err := parseID("site id", args[0])
			if err != nil {
				return err
			}
			promptID, err := parseID("prompt id", args[1])
			if err != nil {
				return err
			}
			if err := s.app.Directory.DeletePrompt(cmd.Context(), siteID, promptID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "prompt %d deleted\n", promptID)
			return nil
		},
	}
}

// promptsPlaceholdersCommand works offline and prints a variables skeleton.
func promptsPlaceholdersCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "placeholders PROMPT_TEXT",
		Short: "List the placeholders of a prompt text and print a variables skeleton",
		Args:  cobra.ExactArgs(1),
		// No backend needed.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			names := usecase.Placeholders(args[0])
			if len(names) == 0 {
				fmt.Fprintln(out, "no placeholders")
				return nil
			}
			fmt.Fprintln(out, strings.Join(names, "\n"))
			fmt.Fprintln(out, usecase.VariablesSkeleton(args[0]))
			return nil
		},
	}
}

func generateCommand(s *session) *cobra.Command {
	form := usecase.NewGenerateForm()
	cmd := &cobra.Command{
		Use:   "generate SITE_ID",
		Short: "Generate content from a prompt template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			siteID, err := parseID("site id", args[0])
			if err != nil {
				return err
			}
			result, err := s.app.Directory.Generate(cmd.Context(), siteID, &form)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if s.asJSON() {
				return writeJSON(out, result)
			}
			fmt.Fprintf(out, "Prompt:\n%s\n\nContent:\n%s\n", result.Prompt, result.Content)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.Int64Var(&form.TemplateID, "template", 0, "Prompt template id")
	flags.StringVar(&form.VariablesText, "vars", usecase.DefaultVariablesText, "Variables as a JSON object of strings")
	return cmd
}
