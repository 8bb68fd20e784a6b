package cinebus

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/rs/zerolog/log"

	"github.com/PDelos/CineBus-AP2/model"
)

// Decides whether an event is worth considering.
type Filter func(model.Event) bool

// Matches events by title and language. Titles compare case
// insensitively. An empty title or language matches anything.
func MatchTitleLanguage(title string, language string) Filter {
	title = strings.TrimSpace(title)
	language = strings.TrimSpace(language)

	return func(ev model.Event) bool {
		if title != "" && !strings.EqualFold(ev.Title, title) {
			return false
		}
		if language != "" && !strings.EqualFold(ev.Language, language) {
			return false
		}
		return true
	}
}

// Compiles a boolean expression over the fields of model.Event, e.g.
//
//	Language == "Original" && Start.Hour() >= 20
//
// An event for which the expression fails at runtime is rejected.
func CompileFilter(code string) (Filter, error) {
	program, err := expr.Compile(code, expr.Env(model.Event{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compiling filter: %w", err)
	}

	return func(ev model.Event) bool {
		return runFilter(program, ev)
	}, nil
}

func runFilter(program *vm.Program, ev model.Event) bool {
	out, err := expr.Run(program, ev)
	if err != nil {
		log.Debug().Err(err).Str("title", ev.Title).Msg("filter failed")
		return false
	}
	ok, _ := out.(bool)
	return ok
}

// Combines filters, matching only events that pass all of them. Nil
// filters are ignored.
func AllOf(filters ...Filter) Filter {
	return func(ev model.Event) bool {
		for _, f := range filters {
			if f != nil && !f(ev) {
				return false
			}
		}
		return true
	}
}
