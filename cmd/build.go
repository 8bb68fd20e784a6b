package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/PDelos/CineBus-AP2/graph"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Builds the city graph and caches it in storage",
	Args:  cobra.NoArgs,
	RunE:  build,
}

var forceBuild bool

func init() {
	buildCmd.Flags().BoolVarP(&forceBuild, "force", "f", false, "Fetch datasets even if the cached graph is fresh")
	rootCmd.AddCommand(buildCmd)
}

func build(cmd *cobra.Command, args []string) error {
	dl, err := newDownloader()
	if err != nil {
		return err
	}
	m, err := newManager(dl)
	if err != nil {
		return err
	}

	if forceBuild {
		_, err = m.ForceRefresh(cmd.Context())
	} else {
		_, err = m.Refresh(cmd.Context())
	}
	if err != nil {
		return err
	}

	city, err := m.City()
	if err != nil {
		return err
	}

	fmt.Printf("Graph '%s' built at %s\n", m.Name, city.BuiltAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("  %d street nodes\n", len(city.Graph.Nodes(graph.KindStreet)))
	fmt.Printf("  %d stops\n", len(city.Graph.Nodes(graph.KindStop)))
	fmt.Printf("  %d edges\n", city.Graph.EdgeCount())

	return nil
}
