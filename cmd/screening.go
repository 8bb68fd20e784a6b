package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	cinebus "github.com/PDelos/CineBus-AP2"
)

var screeningCmd = &cobra.Command{
	Use:   "screening <lon,lat>",
	Short: "Finds the earliest screening reachable in time",
	Args:  cobra.ExactArgs(1),
	RunE:  screening,
}

var (
	screeningTitle    string
	screeningLanguage string
	screeningFilter   string
	screeningAt       string
	screeningAll      bool
)

func init() {
	screeningCmd.Flags().StringVarP(&screeningTitle, "title", "t", "", "Film title")
	screeningCmd.Flags().StringVarP(&screeningLanguage, "language", "l", "", "Screening language")
	screeningCmd.Flags().StringVarP(&screeningFilter, "filter", "", "", "Filter expression, e.g. 'Start.Hour() >= 20'")
	screeningCmd.Flags().StringVarP(&screeningAt, "now", "", "", "Departure time (RFC 3339). Defaults to now")
	screeningCmd.Flags().BoolVarP(&screeningAll, "all", "a", false, "List every reachable screening")
	rootCmd.AddCommand(screeningCmd)
}

func screening(cmd *cobra.Command, args []string) error {
	origin, err := parseCoordinate(args[0])
	if err != nil {
		return err
	}

	now := time.Now().In(cfg.Timezone)
	if screeningAt != "" {
		now, err = time.Parse(time.RFC3339, screeningAt)
		if err != nil {
			return fmt.Errorf("invalid --now: %w", err)
		}
	}

	filter := cinebus.MatchTitleLanguage(screeningTitle, screeningLanguage)
	if screeningFilter != "" {
		f, err := cinebus.CompileFilter(screeningFilter)
		if err != nil {
			return err
		}
		filter = cinebus.AllOf(filter, f)
	}

	dl, err := newDownloader()
	if err != nil {
		return err
	}
	m, err := newManager(dl)
	if err != nil {
		return err
	}
	if _, err := m.Refresh(cmd.Context()); err != nil {
		return err
	}
	city, err := m.City()
	if err != nil {
		return err
	}

	events, err := loadScreenings(cmd.Context(), dl)
	if err != nil {
		return err
	}
	events = cinebus.SortByStartTime(now, events)

	if screeningAll {
		reachable, err := cinebus.FeasibleEvents(cmd.Context(), now, events, filter, city, origin, cfg.Workers)
		if err != nil {
			return err
		}
		for _, r := range reachable {
			fmt.Printf(
				"%s  %s @ %s [%s]  %s away\n",
				r.Event.Start.In(cfg.Timezone).Format("15:04"),
				r.Event.Title, r.Event.Cinema, r.Event.Language,
				r.TravelTime.Round(time.Second),
			)
		}
		return nil
	}

	ev, found, err := cinebus.FindEarliestFeasible(now, events, filter, city, origin)
	if err != nil {
		return err
	}
	if !found {
		fmt.Println("No screening can be reached in time")
		return nil
	}

	fmt.Printf(
		"%s @ %s [%s], starts %s\n",
		ev.Title, ev.Cinema, ev.Language,
		ev.Start.In(cfg.Timezone).Format("2006-01-02 15:04"),
	)

	p, err := city.ShortestPath(origin, ev.Location)
	if err != nil {
		return err
	}
	printPath(city.Graph, p)

	return nil
}
