// Package cli is the command tree of the console binary.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/kirillkom/directory-console/internal/bootstrap"
	"github.com/kirillkom/directory-console/internal/config"
	"github.com/kirillkom/directory-console/internal/observability/logging"
)

// session carries what every command needs once the root pre-run has loaded
// the configuration.
type session struct {
	apiURL    string
	logLevel  string
	logFormat string
	output    string
	logOutput io.Writer

	cfg config.Config
	app *bootstrap.App
}

// Run executes the console with args and releases the session afterwards,
// including when a command fails.
func Run(ctx context.Context, args []string, stdout io.Writer) error {
	s := &session{logOutput: os.Stderr}
	defer s.close()

	cmd := newRootCommand(s)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	return cmd.ExecuteContext(ctx)
}

func newRootCommand(s *session) *cobra.Command {

	rootCmd := &cobra.Command{
		Use:           "console",
		Short:         "Operate the business directory: sites, registry imports, content and maps",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return s.open(cmd.Context())
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&s.apiURL, "api-url", "", "Directory API base URL (overrides DIRECTORY_API_URL)")
	flags.StringVar(&s.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides LOG_LEVEL)")
	flags.StringVar(&s.logFormat, "log-format", "text", "Log format: text or json")
	flags.StringVarP(&s.output, "output", "o", "table", "Output format: table or json")

	rootCmd.AddCommand(
		sitesCommand(s),
		importsCommand(s),
		pagesCommand(s),
		promptsCommand(s),
		generateCommand(s),
		mapCommand(s),
		exportCommand(s),
	)
	return rootCmd
}

func (s *session) open(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if s.apiURL != "" {
		cfg.DirectoryAPIURL = s.apiURL
	}
	if s.logLevel != "" {
		cfg.LogLevel = s.logLevel
	}
	if s.output != "table" && s.output != "json" {
		return fmt.Errorf("unsupported output format %q", s.output)
	}
	s.cfg = cfg

	logger := logging.New(s.logOutput, "console", cfg.LogLevel, s.logFormat)
	app, err := bootstrap.New(ctx, cfg, logger, bootstrap.Options{Service: "console"})
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	s.app = app
	return nil
}

func (s *session) close() {
	if s.app != nil {
		s.app.Close()
		s.app = nil
	}
}

func parseID(name, raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", name, raw)
	}
	return id, nil
}
