package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kirillkom/directory-console/internal/core/domain"
	"github.com/kirillkom/directory-console/internal/core/usecase"
	natsqueue "github.com/kirillkom/directory-console/internal/infrastructure/queue/nats"
)

func importsCommand(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "imports",
		Short: "Start and follow registry imports",
	}
	cmd.AddCommand(
		importsListCommand(s),
		importsCreateCommand(s),
		importsWatchCommand(s),
		importsEventsCommand(s),
	)
	return cmd
}

func importsListCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "list SITE_ID",
		Short: "Show the import board of a site",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			siteID, err := parseID("site id", args[0])
			if err != nil {
				return err
			}
			board, err := s.app.Monitor.Board(cmd.Context(), siteID)
			if err != nil {
				return err
			}
			if s.asJSON() {
				return writeJSON(cmd.OutOrStdout(), board)
			}
			return printBoard(cmd.OutOrStdout(), board)
		},
	}
}

// importsCreateCommand defaults the filters to the site's registry filters.
func importsCreateCommand(s *session) *cobra.Command {
	var form usecase.ImportForm
	cmd := &cobra.Command{
		Use:   "create SITE_ID",
		Short: "Start a registry import for a site",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			siteID, err := parseID("site id", args[0])
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if !flags.Changed("naf") || !flags.Changed("department") {
				site, _, err := s.app.Resources.Site(cmd.Context(), siteID)
				if err != nil {
					return err
				}
				defaults := usecase.ImportFormFor(site)
				if !flags.Changed("naf") {
					form.NAFCode = defaults.NAFCode
				}
				if !flags.Changed("department") {
					form.Department = defaults.Department
				}
			}

			job, err := s.app.Directory.CreateImport(cmd.Context(), siteID, &form)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if s.asJSON() {
				return writeJSON(out, job)
			}
			fmt.Fprintf(out, "import %d queued for site %d (status %s)\n", job.ID, siteID, job.Status)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&form.NAFCode, "naf", "", "NAF code, defaults to the site's filter")
	flags.StringVar(&form.Department, "department", "", "Department, defaults to the site's filter")
	flags.StringVar(&form.City, "city", "", "City")
	return cmd
}

func importsWatchCommand(s *session) *cobra.Command {
	var untilDone bool
	cmd := &cobra.Command{
		Use:   "watch SITE_ID",
		Short: "Follow the import board of a site",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			siteID, err := parseID("site id", args[0])
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			watch, err := s.app.Monitor.Watch(ctx, siteID)
			if err != nil {
				return err
			}
			defer watch.Close()

			out := cmd.OutOrStdout()
			for {
				select {
				case <-ctx.Done():
					return nil
				case board, ok := <-watch.Boards():
					if !ok {
						return nil
					}
					if s.asJSON() {
						if err := writeJSON(out, board); err != nil {
							return err
						}
					} else {
						fmt.Fprintf(out, "-- %s (next poll in %s)\n", formatTime(board.UpdatedAt), board.PollInterval)
						if err := printBoard(out, board); err != nil {
							return err
						}
					}
					if untilDone && board.HasData && board.AllTerminal {
						return nil
					}
				}
			}
		},
	}
	cmd.Flags().BoolVar(&untilDone, "until-done", true, "Stop once every job is terminal")
	return cmd
}

// importsEventsCommand tails the transitions published by the watcher.
func importsEventsCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "Print import job transitions published on NATS",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if s.cfg.NATSURL == "" {
				return fmt.Errorf("NATS_URL is not configured")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			subscriber, err := natsqueue.New(s.cfg.NATSURL, s.cfg.NATSSubject, natsqueue.Options{
				Name:   "directory-console",
				Logger: s.app.Logger,
			})
			if err != nil {
				return err
			}
			defer subscriber.Close()

			out := cmd.OutOrStdout()
			return subscriber.SubscribeJobTransitions(ctx, func(_ context.Context, t domain.JobTransition) error {
				if s.asJSON() {
					return writeJSON(out, t)
				}
				from := string(t.From)
				if from == "" {
					from = "-"
				}
				fmt.Fprintf(out, "%s site=%d job=%d %s -> %s imported=%d closed=%d errors=%d\n",
					t.ObservedAt.Local().Format(time.TimeOnly), t.SiteID, t.JobID, from, t.To,
					t.TotalImported, t.TotalClosed, t.TotalErrors)
				return nil
			})
		},
	}
}

func printBoard(w io.Writer, board usecase.ImportBoard) error {
	if !board.HasData {
		if board.Error != "" {
			fmt.Fprintf(w, "imports unavailable: %s\n", board.Error)
		} else {
			fmt.Fprintln(w, "imports loading")
		}
		return nil
	}
	if len(board.Jobs) == 0 {
		fmt.Fprintln(w, "no imports yet")
		return nil
	}

	rows := make([][]string, 0, len(board.Jobs))
	for _, view := range board.Jobs {
		job := view.Job
		progress := ""
		if view.Progressing {
			progress = "+"
		}
		rows = append(rows, []string{
			strconv.FormatInt(job.ID, 10),
			view.Phase,
			strconv.Itoa(job.TotalImported) + progress,
			strconv.Itoa(job.TotalClosed),
			strconv.Itoa(job.TotalErrors),
			view.Elapsed.Round(time.Second).String(),
			orDash(string(view.Condition)),
			orDash(job.LastError),
		})
	}
	if err := table(w, []string{"JOB", "STATUS", "IMPORTED", "CLOSED", "ERRORS", "ELAPSED", "CONDITION", "LAST ERROR"}, rows); err != nil {
		return err
	}
	if board.Stale {
		staleNote(w, usecase.Freshness{Stale: true, Error: board.Error})
	}
	return nil
}
