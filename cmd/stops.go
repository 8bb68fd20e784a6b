package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/PDelos/CineBus-AP2/model"
)

var stopsCmd = &cobra.Command{
	Use:   "stops <lon,lat> [limit]",
	Short: "Lists bus stops near a geographical location",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  stops,
}

var nearestCmd = &cobra.Command{
	Use:   "nearest <lon,lat>",
	Short: "Shows the graph node closest to a geographical location",
	Args:  cobra.ExactArgs(1),
	RunE:  nearest,
}

var stopsRadius float64

func init() {
	stopsCmd.Flags().Float64VarP(&stopsRadius, "radius", "r", 500, "Search radius in meters")
	rootCmd.AddCommand(stopsCmd)
	rootCmd.AddCommand(nearestCmd)
}

func stops(cmd *cobra.Command, args []string) error {
	at, err := parseCoordinate(args[0])
	if err != nil {
		return err
	}

	limit := 0
	if len(args) == 2 {
		limit, err = strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid limit: %w", err)
		}
		if limit < 0 {
			return fmt.Errorf("limit must be >= 0")
		}
	}

	city, err := loadCity(cmd.Context())
	if err != nil {
		return err
	}

	for _, stop := range city.NearbyStops(at, stopsRadius, limit) {
		fmt.Printf("%s: %s (%s) %.0fm\n", stop.ID, stop.Name, stop.Address, model.Distance(at, stop.Position))
	}

	return nil
}

func nearest(cmd *cobra.Command, args []string) error {
	at, err := parseCoordinate(args[0])
	if err != nil {
		return err
	}

	city, err := loadCity(cmd.Context())
	if err != nil {
		return err
	}

	n, err := city.NearestNode(at)
	if err != nil {
		return err
	}

	fmt.Printf("%s [%s] %s %.0fm\n", n.ID, n.Kind, n.Name, model.Distance(at, n.Position))
	return nil
}
