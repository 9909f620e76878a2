package cli

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kirillkom/directory-console/internal/core/domain"
	"github.com/kirillkom/directory-console/internal/core/usecase"
)

func mapCommand(s *session) *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "map SITE_ID",
		Short: "Show the geocoded establishments of a site",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			siteID, err := parseID("site id", args[0])
			if err != nil {
				return err
			}
			if watch {
				return s.watchMap(cmd, siteID)
			}
			view, err := s.app.Views.Map(cmd.Context(), siteID)
			if err != nil {
				return err
			}
			return s.printMap(cmd.OutOrStdout(), view)
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "Keep polling and print the map on every change")
	return cmd
}

// watchMap follows the import jobs of the site alongside the map, so a
// completed import refreshes the establishments right away.
func (s *session) watchMap(cmd *cobra.Command, siteID int64) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	imports, err := s.app.Monitor.Watch(ctx, siteID)
	if err != nil {
		return err
	}
	defer imports.Close()
	go func() {
		for range imports.Boards() {
		}
	}()

	watch, err := s.app.Views.WatchMap(ctx, siteID)
	if err != nil {
		return err
	}
	defer watch.Close()

	out := cmd.OutOrStdout()
	for {
		select {
		case <-ctx.Done():
			return nil
		case view, ok := <-watch.Views():
			if !ok {
				return nil
			}
			if !s.asJSON() {
				fmt.Fprintf(out, "-- %s\n", formatTime(view.UpdatedAt))
			}
			if err := s.printMap(out, view); err != nil {
				return err
			}
		}
	}
}

func (s *session) printMap(out io.Writer, view usecase.EstablishmentsMapView) error {
	if s.asJSON() {
		return writeJSON(out, view)
	}
	fmt.Fprintf(out, "center %.5f,%.5f zoom %d, %d of %d establishments geocoded\n",
		view.Center.Lat, view.Center.Lon, view.Zoom, len(view.Markers), view.Total)
	rows := make([][]string, 0, len(view.Markers))
	for _, m := range view.Markers {
		state := "active"
		if !m.Active {
			state = "closed"
		}
		rows = append(rows, []string{
			strconv.FormatInt(m.EstablishmentID, 10),
			m.Title,
			fmt.Sprintf("%.5f,%.5f", m.Position.Lat, m.Position.Lon),
			state,
			strings.Join(m.Lines, " / "),
		})
	}
	if err := table(out, []string{"ID", "NAME", "POSITION", "STATE", "DETAILS"}, rows); err != nil {
		return err
	}
	staleNote(out, view.Freshness)
	return nil
}

func exportCommand(s *session) *cobra.Command {
	var (
		active     string
		postalCode string
	)
	cmd := &cobra.Command{
		Use:   "export SITE_ID",
		Short: "Export the establishments of a site to a spreadsheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			siteID, err := parseID("site id", args[0])
			if err != nil {
				return err
			}
			filter := domain.EstablishmentFilter{PostalCode: postalCode}
			if active != "" {
				v, err := strconv.ParseBool(active)
				if err != nil {
					return fmt.Errorf("--active must be true or false, got %q", active)
				}
				filter.Active = &v
			}

			result, err := s.app.Exports.Export(cmd.Context(), siteID, filter)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if s.asJSON() {
				return writeJSON(out, result)
			}
			fmt.Fprintf(out, "%d establishments written to %s (%d bytes)\n", result.Rows, result.Key, result.Bytes)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&active, "active", "", "Only active (true) or closed (false) establishments")
	flags.StringVar(&postalCode, "postal-code", "", "Only establishments with this postal code")
	return cmd
}
