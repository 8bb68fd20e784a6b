// Package server exposes routing and screening search over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	cinebus "github.com/PDelos/CineBus-AP2"
	"github.com/PDelos/CineBus-AP2/graph"
	"github.com/PDelos/CineBus-AP2/model"
)

const (
	DefaultStopRadius = 300.0 // meters
	DefaultStopLimit  = 10
	DefaultTimeout    = 10 * time.Second
)

// Provides the current city. Satisfied by *cinebus.Manager.
type CitySource interface {
	City() (*cinebus.City, error)
}

// Provides the current screening catalog.
type ScreeningSource func(ctx context.Context) ([]model.Event, error)

type Server struct {
	Cities     CitySource
	Screenings ScreeningSource

	// Routing goroutines per /screenings request.
	Workers int

	// Origins allowed by CORS. Anything goes if empty.
	AllowedOrigins []string

	TimeNow func() time.Time
}

func New(cities CitySource, screenings ScreeningSource) *Server {
	return &Server{
		Cities:     cities,
		Screenings: screenings,
		Workers:    cinebus.DefaultFeasibilityWorkers,
		TimeNow:    time.Now,
	}
}

func (s *Server) Handler() http.Handler {
	origins := s.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	r.With(observe("health")).Get("/health", s.health)
	r.With(observe("nearest")).Get("/nearest", s.nearest)
	r.With(observe("stops")).Get("/stops", s.stops)
	r.With(observe("path")).Get("/path", s.path)
	r.With(observe("screening")).Get("/screening", s.screening)
	r.With(observe("screenings")).Get("/screenings", s.screenings)

	r.Handle("/metrics", promhttp.Handler())

	return r
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type HealthResponse struct {
	Status  string    `json:"status"`
	Nodes   int       `json:"nodes,omitempty"`
	Edges   int       `json:"edges,omitempty"`
	BuiltAt time.Time `json:"built_at,omitempty"`
	Error   string    `json:"error,omitempty"`
}

type NodeResponse struct {
	ID       string  `json:"id"`
	Kind     string  `json:"kind"`
	Lon      float64 `json:"lon"`
	Lat      float64 `json:"lat"`
	Name     string  `json:"name,omitempty"`
	Address  string  `json:"address,omitempty"`
	Color    string  `json:"color,omitempty"`
	Distance float64 `json:"distance"`
}

type LegResponse struct {
	From     string  `json:"from"`
	To       string  `json:"to"`
	Kind     string  `json:"kind"`
	Duration float64 `json:"duration"`
	Length   float64 `json:"length"`
	Color    string  `json:"color,omitempty"`
}

type PathResponse struct {
	Duration float64           `json:"duration"`
	Length   float64           `json:"length"`
	Nodes    []string          `json:"nodes"`
	Legs     []LegResponse     `json:"legs"`
	Geometry *geojson.Geometry `json:"geometry"`
}

type EventResponse struct {
	Title    string    `json:"title"`
	Cinema   string    `json:"cinema"`
	Lon      float64   `json:"lon"`
	Lat      float64   `json:"lat"`
	Start    time.Time `json:"start"`
	Language string    `json:"language"`
}

type ScreeningResponse struct {
	Event      EventResponse `json:"event"`
	TravelTime float64       `json:"travel_time"`
	Slack      float64       `json:"slack"`
	Path       *PathResponse `json:"path,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Warn().Err(err).Msg("writing response")
	}
}

func writeError(w http.ResponseWriter, status int, format string, args ...interface{}) {
	writeJSON(w, status, ErrorResponse{Error: fmt.Sprintf(format, args...)})
}

// Maps routing errors to a status code.
func writeRouteError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, graph.ErrNoPath):
		writeError(w, http.StatusNotFound, "%s", err)
	case errors.Is(err, graph.ErrNotFound):
		writeError(w, http.StatusNotFound, "%s", err)
	default:
		log.Error().Err(err).Msg("routing")
		writeError(w, http.StatusInternalServerError, "routing failed")
	}
}

// Parses "lon,lat".
func parseCoordinate(value string) (orb.Point, error) {
	parts := strings.Split(value, ",")
	if len(parts) != 2 {
		return orb.Point{}, fmt.Errorf("'%s' is not on form <lon>,<lat>", value)
	}

	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return orb.Point{}, fmt.Errorf("parsing longitude: %w", err)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return orb.Point{}, fmt.Errorf("parsing latitude: %w", err)
	}

	if lon < -180 || lon > 180 || lat < -90 || lat > 90 {
		return orb.Point{}, fmt.Errorf("'%s' is out of range", value)
	}

	return orb.Point{lon, lat}, nil
}

func queryCoordinate(r *http.Request, key string) (orb.Point, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return orb.Point{}, fmt.Errorf("%s is required", key)
	}
	p, err := parseCoordinate(value)
	if err != nil {
		return orb.Point{}, fmt.Errorf("%s: %w", key, err)
	}
	return p, nil
}

// Returns the current city, or writes a 503 and returns nil.
func (s *Server) city(w http.ResponseWriter) *cinebus.City {
	city, err := s.Cities.City()
	if err != nil {
		log.Warn().Err(err).Msg("no city available")
		writeError(w, http.StatusServiceUnavailable, "city graph not available")
		return nil
	}
	return city
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	city, err := s.Cities.City()
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status: "error",
			Error:  err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Nodes:   city.Graph.NodeCount(),
		Edges:   city.Graph.EdgeCount(),
		BuiltAt: city.BuiltAt,
	})
}

func nodeResponse(n graph.Node) NodeResponse {
	return NodeResponse{
		ID:      n.ID,
		Kind:    n.Kind.String(),
		Lon:     n.Position.Lon(),
		Lat:     n.Position.Lat(),
		Name:    n.Name,
		Address: n.Address,
		Color:   n.Color,
	}
}

func (s *Server) nearest(w http.ResponseWriter, r *http.Request) {
	at, err := queryCoordinate(r, "at")
	if err != nil {
		writeError(w, http.StatusBadRequest, "%s", err)
		return
	}

	city := s.city(w)
	if city == nil {
		return
	}

	n, err := city.NearestNode(at)
	if err != nil {
		writeRouteError(w, err)
		return
	}

	resp := nodeResponse(n)
	resp.Distance = model.Distance(at, n.Position)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) stops(w http.ResponseWriter, r *http.Request) {
	at, err := queryCoordinate(r, "at")
	if err != nil {
		writeError(w, http.StatusBadRequest, "%s", err)
		return
	}

	radius := DefaultStopRadius
	if value := r.URL.Query().Get("radius"); value != "" {
		radius, err = strconv.ParseFloat(value, 64)
		if err != nil || radius <= 0 {
			writeError(w, http.StatusBadRequest, "radius must be a positive number")
			return
		}
	}

	limit := DefaultStopLimit
	if value := r.URL.Query().Get("limit"); value != "" {
		limit, err = strconv.Atoi(value)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
	}

	city := s.city(w)
	if city == nil {
		return
	}

	stops := []NodeResponse{}
	for _, n := range city.NearbyStops(at, radius, limit) {
		resp := nodeResponse(n)
		resp.Distance = model.Distance(at, n.Position)
		stops = append(stops, resp)
	}

	writeJSON(w, http.StatusOK, stops)
}

func pathResponse(p graph.Path) *PathResponse {
	legs := []LegResponse{}
	for _, e := range p.Edges {
		legs = append(legs, LegResponse{
			From:     e.From,
			To:       e.To,
			Kind:     e.Kind.String(),
			Duration: e.Cost,
			Length:   e.Length,
			Color:    e.Color,
		})
	}

	return &PathResponse{
		Duration: p.Cost,
		Length:   p.Length(),
		Nodes:    p.Nodes,
		Legs:     legs,
		Geometry: geojson.NewGeometry(p.Line()),
	}
}

func (s *Server) path(w http.ResponseWriter, r *http.Request) {
	from, err := queryCoordinate(r, "from")
	if err != nil {
		writeError(w, http.StatusBadRequest, "%s", err)
		return
	}
	to, err := queryCoordinate(r, "to")
	if err != nil {
		writeError(w, http.StatusBadRequest, "%s", err)
		return
	}

	city := s.city(w)
	if city == nil {
		return
	}

	p, err := city.ShortestPath(from, to)
	if err != nil {
		writeRouteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, pathResponse(p))
}

// Query parameters shared by /screening and /screenings.
type screeningQuery struct {
	at     orb.Point
	now    time.Time
	filter cinebus.Filter
}

func (s *Server) parseScreeningQuery(r *http.Request) (screeningQuery, error) {
	q := screeningQuery{now: s.TimeNow()}

	at, err := queryCoordinate(r, "at")
	if err != nil {
		return q, err
	}
	q.at = at

	if value := r.URL.Query().Get("now"); value != "" {
		q.now, err = time.Parse(time.RFC3339, value)
		if err != nil {
			return q, fmt.Errorf("now must be RFC 3339: %w", err)
		}
	}

	filters := []cinebus.Filter{
		cinebus.MatchTitleLanguage(r.URL.Query().Get("title"), r.URL.Query().Get("language")),
	}
	if code := r.URL.Query().Get("filter"); code != "" {
		f, err := cinebus.CompileFilter(code)
		if err != nil {
			return q, err
		}
		filters = append(filters, f)
	}
	q.filter = cinebus.AllOf(filters...)

	return q, nil
}

func eventResponse(ev model.Event) EventResponse {
	return EventResponse{
		Title:    ev.Title,
		Cinema:   ev.Cinema,
		Lon:      ev.Location.Lon(),
		Lat:      ev.Location.Lat(),
		Start:    ev.Start,
		Language: ev.Language,
	}
}

func (s *Server) loadScreenings(ctx context.Context, w http.ResponseWriter) ([]model.Event, bool) {
	events, err := s.Screenings(ctx)
	if err != nil {
		log.Error().Err(err).Msg("loading screenings")
		writeError(w, http.StatusServiceUnavailable, "screenings not available")
		return nil, false
	}
	return events, true
}

// The earliest screening reachable in time, with the way there.
func (s *Server) screening(w http.ResponseWriter, r *http.Request) {
	q, err := s.parseScreeningQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "%s", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), DefaultTimeout)
	defer cancel()

	city := s.city(w)
	if city == nil {
		return
	}
	events, ok := s.loadScreenings(ctx, w)
	if !ok {
		return
	}

	ev, found, err := cinebus.FindEarliestFeasible(
		q.now,
		cinebus.SortByStartTime(q.now, events),
		q.filter,
		city,
		q.at,
	)
	if err != nil {
		writeRouteError(w, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "no screening can be reached in time")
		return
	}

	p, err := city.ShortestPath(q.at, ev.Location)
	if err != nil {
		writeRouteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ScreeningResponse{
		Event:      eventResponse(ev),
		TravelTime: p.Cost,
		Slack:      ev.Start.Sub(q.now.Add(p.Duration())).Seconds(),
		Path:       pathResponse(p),
	})
}

// Every screening reachable in time, soonest first.
func (s *Server) screenings(w http.ResponseWriter, r *http.Request) {
	q, err := s.parseScreeningQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "%s", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), DefaultTimeout)
	defer cancel()

	city := s.city(w)
	if city == nil {
		return
	}
	events, ok := s.loadScreenings(ctx, w)
	if !ok {
		return
	}

	reachable, err := cinebus.FeasibleEvents(
		ctx,
		q.now,
		cinebus.SortByStartTime(q.now, events),
		q.filter,
		city,
		q.at,
		s.Workers,
	)
	if err != nil {
		writeRouteError(w, err)
		return
	}

	resp := []ScreeningResponse{}
	for _, rr := range reachable {
		resp = append(resp, ScreeningResponse{
			Event:      eventResponse(rr.Event),
			TravelTime: rr.TravelTime.Seconds(),
			Slack:      rr.Event.Start.Sub(q.now.Add(rr.TravelTime)).Seconds(),
		})
	}

	writeJSON(w, http.StatusOK, resp)
}
