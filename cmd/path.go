package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/PDelos/CineBus-AP2/graph"
)

var pathCmd = &cobra.Command{
	Use:   "path <lon,lat> <lon,lat>",
	Short: "Shows the fastest way between two locations",
	Args:  cobra.ExactArgs(2),
	RunE:  path,
}

func init() {
	rootCmd.AddCommand(pathCmd)
}

func path(cmd *cobra.Command, args []string) error {
	from, err := parseCoordinate(args[0])
	if err != nil {
		return err
	}
	to, err := parseCoordinate(args[1])
	if err != nil {
		return err
	}

	city, err := loadCity(cmd.Context())
	if err != nil {
		return err
	}

	p, err := city.ShortestPath(from, to)
	if err != nil {
		return err
	}

	printPath(city.Graph, p)
	return nil
}

// Prints a path one leg per line, merging consecutive legs of the
// same kind.
func printPath(g *graph.Graph, p graph.Path) {
	fmt.Printf("%s, %.0fm\n", p.Duration().Round(time.Second), p.Length())

	for i := 0; i < len(p.Edges); {
		kind := p.Edges[i].Kind
		from := p.Edges[i].From
		cost, length := 0.0, 0.0

		j := i
		for ; j < len(p.Edges) && p.Edges[j].Kind == kind; j++ {
			cost += p.Edges[j].Cost
			length += p.Edges[j].Length
		}
		to := p.Edges[j-1].To

		fmt.Printf(
			"  %-6s %s -> %s  %s, %.0fm\n",
			kind, nodeLabel(g, from), nodeLabel(g, to),
			time.Duration(cost*float64(time.Second)).Round(time.Second), length,
		)
		i = j
	}
}

func nodeLabel(g *graph.Graph, id string) string {
	n, found := g.Node(id)
	if !found || n.Name == "" {
		return id
	}
	return fmt.Sprintf("%s (%s)", n.Name, id)
}
