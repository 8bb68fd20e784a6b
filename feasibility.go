package cinebus

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"

	"github.com/PDelos/CineBus-AP2/graph"
	"github.com/PDelos/CineBus-AP2/model"
)

const DefaultFeasibilityWorkers = 8

// Keeps events starting at or after now, ordered by how soon they
// start. Events starting at the same time keep their relative order.
func SortByStartTime(now time.Time, events []model.Event) []model.Event {
	upcoming := []model.Event{}
	for _, ev := range events {
		if !ev.Start.Before(now) {
			upcoming = append(upcoming, ev)
		}
	}

	sort.SliceStable(upcoming, func(i, j int) bool {
		return upcoming[i].Start.Sub(now) < upcoming[j].Start.Sub(now)
	})

	return upcoming
}

// Returns the first event, in the given order, that passes filter and
// can be reached from origin before it starts. Arriving exactly at the
// start time counts as reachable.
//
// Events are expected to be sorted as by SortByStartTime. The scan
// stops at the first match, so an event further down the list is never
// considered even if it's closer.
//
// Not finding anything is reported through the bool, not as an error.
// An event whose location isn't connected to origin fails the scan
// with graph.ErrNoPath.
func FindEarliestFeasible(
	now time.Time,
	events []model.Event,
	filter Filter,
	router Router,
	origin model.Coordinate,
) (model.Event, bool, error) {

	for _, ev := range events {
		if filter != nil && !filter(ev) {
			continue
		}

		travel, err := router.TravelTime(origin, ev.Location)
		if err != nil {
			return model.Event{}, false, fmt.Errorf("routing to %s: %w", ev.Cinema, err)
		}

		if !now.Add(travel).After(ev.Start) {
			return ev, true, nil
		}
	}

	return model.Event{}, false, nil
}

type Reachable struct {
	Event      model.Event
	TravelTime time.Duration
}

// Like FindEarliestFeasible, but evaluates every candidate and returns
// all that can be reached in time, in the order given. Routing runs on
// up to workers goroutines.
//
// Unlike FindEarliestFeasible, events whose location isn't connected to
// origin are left out rather than failing the whole listing.
func FeasibleEvents(
	ctx context.Context,
	now time.Time,
	events []model.Event,
	filter Filter,
	router Router,
	origin model.Coordinate,
	workers int,
) ([]Reachable, error) {

	if workers <= 0 {
		workers = DefaultFeasibilityWorkers
	}

	type result struct {
		index     int
		reachable Reachable
		ok        bool
	}

	p := pool.NewWithResults[result]().
		WithContext(ctx).
		WithCancelOnError().
		WithMaxGoroutines(workers)

	for i, ev := range events {
		if filter != nil && !filter(ev) {
			continue
		}

		p.Go(func(ctx context.Context) (result, error) {
			if err := ctx.Err(); err != nil {
				return result{}, err
			}

			travel, err := router.TravelTime(origin, ev.Location)
			if errors.Is(err, graph.ErrNoPath) {
				log.Debug().Str("title", ev.Title).Str("cinema", ev.Cinema).Msg("cinema unreachable")
				return result{index: i}, nil
			}
			if err != nil {
				return result{}, fmt.Errorf("routing to %s: %w", ev.Cinema, err)
			}

			return result{
				index:     i,
				reachable: Reachable{Event: ev, TravelTime: travel},
				ok:        !now.Add(travel).After(ev.Start),
			}, nil
		})
	}

	results, err := p.Wait()
	if err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].index < results[j].index
	})

	reachable := []Reachable{}
	for _, r := range results {
		if r.ok {
			reachable = append(reachable, r.reachable)
		}
	}

	return reachable, nil
}
