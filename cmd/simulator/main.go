package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
)

// City is a trip endpoint.
type City struct {
	Name string
	Lat  float64
	Lon  float64
}

var cities = []City{
	{"Mumbai", 19.0760, 72.8777},
	{"Pune", 18.5204, 73.8567},
	{"Nashik", 19.9975, 73.7898},
	{"Ahmedabad", 23.0225, 72.5714},
	{"Surat", 21.1702, 72.8311},
	{"Nagpur", 21.1458, 79.0882},
	{"Hyderabad", 17.3850, 78.4867},
	{"Bengaluru", 12.9716, 77.5946},
	{"Chennai", 13.0827, 80.2707},
	{"Delhi", 28.7041, 77.1025},
	{"Jaipur", 26.9124, 75.7873},
	{"Indore", 22.7196, 75.8577},
}

func haversineKm(a, b City) float64 {
	R := 6371.0
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	s := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(s), math.Sqrt(1-s))
	return R * c
}

// roadKm approximates road distance from the great-circle distance.
func roadKm(a, b City) float64 {
	return math.Round(haversineKm(a, b)*1.25*10) / 10
}

// --- API client ---

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api status %d: %s", e.Status, e.Message)
}

// Client talks to the FleetFlow API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if resp.StatusCode >= 300 || !env.Success {
		return &APIError{Status: resp.StatusCode, Message: env.Error}
	}
	if out != nil {
		return json.Unmarshal(env.Data, out)
	}
	return nil
}

// Authenticate logs in, registering the account first if it does not exist.
func (c *Client) Authenticate(ctx context.Context, username, password string) error {
	var res struct {
		Token string `json:"token"`
	}
	creds := map[string]string{"username": username, "password": password}
	err := c.do(ctx, http.MethodPost, "/auth/login", creds, &res)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
		register := map[string]string{
			"username": username, "password": password,
			"name": "Dispatch Simulator", "role": "manager",
		}
		err = c.do(ctx, http.MethodPost, "/auth/register", register, &res)
	}
	if err != nil {
		return fmt.Errorf("authenticate %s: %w", username, err)
	}
	c.token = res.Token
	return nil
}

type Vehicle struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	MaxCapacity float64 `json:"max_capacity"`
	Odometer    float64 `json:"odometer"`
	Status      string  `json:"status"`
}

type Driver struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	LicenseCategory string `json:"license_category"`
	LicenseExpiry   string `json:"license_expiry"`
	Status          string `json:"status"`
}

type Trip struct {
	ID            string   `json:"id"`
	VehicleID     string   `json:"vehicle_id"`
	DriverID      string   `json:"driver_id"`
	Status        string   `json:"status"`
	StartOdometer *float64 `json:"start_odometer"`
}

type Dashboard struct {
	ActiveFleet     int     `json:"active_fleet"`
	InShop          int     `json:"in_shop"`
	Available       int     `json:"available"`
	UtilizationRate float64 `json:"utilization_rate"`
	PendingCargo    int     `json:"pending_cargo"`
}

func (c *Client) Seed(ctx context.Context) error {
	var res struct {
		Message string `json:"message"`
	}
	if err := c.do(ctx, http.MethodPost, "/seed", nil, &res); err != nil {
		return err
	}
	log.WithField("result", res.Message).Info("Seed requested")
	return nil
}

func (c *Client) AvailableVehicles(ctx context.Context) ([]Vehicle, error) {
	var out []Vehicle
	err := c.do(ctx, http.MethodGet, "/vehicles?status=Available", nil, &out)
	return out, err
}

func (c *Client) OnDutyDrivers(ctx context.Context) ([]Driver, error) {
	var out []Driver
	err := c.do(ctx, http.MethodGet, "/drivers?status=On+Duty", nil, &out)
	return out, err
}

func (c *Client) CreateTrip(ctx context.Context, in map[string]any) (*Trip, error) {
	var t Trip
	if err := c.do(ctx, http.MethodPost, "/trips", in, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *Client) Transition(ctx context.Context, tripID, action string, body any) (*Trip, error) {
	var t Trip
	if err := c.do(ctx, http.MethodPatch, "/trips/"+tripID+"/"+action, body, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *Client) KPIs(ctx context.Context) (*Dashboard, error) {
	var d Dashboard
	if err := c.do(ctx, http.MethodGet, "/kpis", nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// --- Dispatch simulation ---

// leg is a dispatched trip waiting to finish.
type leg struct {
	km    float64
	start float64
}

// Simulator dispatches trips in a loop, finishing each one on the next tick.
type Simulator struct {
	client     *Client
	rng        *rand.Rand
	cancelRate float64
	inFlight   map[string]leg
	now        func() time.Time
}

func NewSimulator(client *Client, seed int64, cancelRate float64) *Simulator {
	return &Simulator{
		client:     client,
		rng:        rand.New(rand.NewSource(seed)),
		cancelRate: cancelRate,
		inFlight:   map[string]leg{},
		now:        time.Now,
	}
}

func licensedFor(d Driver, vehicleType string) bool {
	for _, c := range strings.Split(d.LicenseCategory, ",") {
		if strings.EqualFold(strings.TrimSpace(c), vehicleType) {
			return true
		}
	}
	return false
}

func licenseValid(d Driver, now time.Time) bool {
	expiry, err := time.Parse(time.RFC3339, d.LicenseExpiry)
	if err != nil {
		return false
	}
	return !expiry.Before(now.UTC().Truncate(24 * time.Hour))
}

// pair matches an available vehicle with a licensed, on-duty driver.
func (s *Simulator) pair(vehicles []Vehicle, drivers []Driver) (Vehicle, Driver, bool) {
	s.rng.Shuffle(len(vehicles), func(i, j int) { vehicles[i], vehicles[j] = vehicles[j], vehicles[i] })
	for _, v := range vehicles {
		for _, d := range drivers {
			if licensedFor(d, v.Type) && licenseValid(d, s.now()) {
				return v, d, true
			}
		}
	}
	return Vehicle{}, Driver{}, false
}

// Finish completes or cancels every trip dispatched on the previous tick.
func (s *Simulator) Finish(ctx context.Context) {
	for id, l := range s.inFlight {
		delete(s.inFlight, id)
		if s.rng.Float64() < s.cancelRate {
			if _, err := s.client.Transition(ctx, id, "cancel", nil); err != nil {
				log.WithError(err).WithField("trip_id", id).Warn("Failed to cancel trip")
				continue
			}
			log.WithField("trip_id", id).Info("Cancelled trip")
			continue
		}
		end := l.start + l.km
		if _, err := s.client.Transition(ctx, id, "complete", map[string]float64{"end_odometer": end}); err != nil {
			log.WithError(err).WithField("trip_id", id).Warn("Failed to complete trip")
			continue
		}
		log.WithFields(log.Fields{"trip_id": id, "km": l.km, "end_odometer": end}).Info("Completed trip")
	}
}

// Dispatch creates and dispatches one trip. It returns false when no vehicle
// and driver can be paired.
func (s *Simulator) Dispatch(ctx context.Context) (bool, error) {
	vehicles, err := s.client.AvailableVehicles(ctx)
	if err != nil {
		return false, err
	}
	drivers, err := s.client.OnDutyDrivers(ctx)
	if err != nil {
		return false, err
	}
	v, d, ok := s.pair(vehicles, drivers)
	if !ok {
		return false, nil
	}

	from := cities[s.rng.Intn(len(cities))]
	to := cities[s.rng.Intn(len(cities))]
	for to.Name == from.Name {
		to = cities[s.rng.Intn(len(cities))]
	}
	km := roadKm(from, to)
	cargo := math.Floor(v.MaxCapacity * (0.3 + 0.7*s.rng.Float64()))

	trip, err := s.client.CreateTrip(ctx, map[string]any{
		"vehicle_id":        v.ID,
		"driver_id":         d.ID,
		"origin":            from.Name,
		"destination":       to.Name,
		"cargo_weight":      cargo,
		"cargo_description": "simulated load",
		"revenue":           math.Round(km * 55),
	})
	if err != nil {
		return false, fmt.Errorf("create trip: %w", err)
	}
	dispatched, err := s.client.Transition(ctx, trip.ID, "dispatch", nil)
	if err != nil {
		return false, fmt.Errorf("dispatch trip %s: %w", trip.ID, err)
	}
	start := v.Odometer
	if dispatched.StartOdometer != nil {
		start = *dispatched.StartOdometer
	}
	s.inFlight[trip.ID] = leg{km: km, start: start}

	log.WithFields(log.Fields{
		"trip_id": trip.ID,
		"vehicle": v.Name,
		"driver":  d.Name,
		"route":   from.Name + " -> " + to.Name,
		"cargo":   cargo,
	}).Info("Dispatched trip")
	return true, nil
}

// Tick finishes last tick's trips, dispatches new ones and logs the KPIs.
func (s *Simulator) Tick(ctx context.Context, perTick int) {
	s.Finish(ctx)
	for i := 0; i < perTick; i++ {
		ok, err := s.Dispatch(ctx)
		if err != nil {
			log.WithError(err).Warn("Dispatch failed")
			break
		}
		if !ok {
			log.Debug("No vehicle and driver pair available")
			break
		}
	}
	if k, err := s.client.KPIs(ctx); err == nil {
		log.WithFields(log.Fields{
			"active_fleet":     k.ActiveFleet,
			"available":        k.Available,
			"in_shop":          k.InShop,
			"utilization_rate": k.UtilizationRate,
			"pending_cargo":    k.PendingCargo,
		}).Info("Fleet KPIs")
	}
}

func envInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return fallback
}

func main() {
	apiURL := os.Getenv("API_BASE_URL")
	if apiURL == "" {
		apiURL = "http://localhost:8080/api"
	}
	username := os.Getenv("SIM_USERNAME")
	if username == "" {
		username = "simulator"
	}
	password := os.Getenv("SIM_PASSWORD")
	if password == "" {
		password = "simulator"
	}

	interval := 5 * time.Second
	if n := envInt("SIM_TICK_SECONDS", 0); n >= 1 {
		interval = time.Duration(n) * time.Second
	}
	perTick := envInt("SIM_TRIPS_PER_TICK", 2)
	cancelRate := float64(envInt("SIM_CANCEL_PERCENT", 10)) / 100

	log.WithFields(log.Fields{
		"api_url":        apiURL,
		"interval":       interval,
		"trips_per_tick": perTick,
	}).Info("Starting dispatch simulation")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := NewClient(apiURL)
	if err := client.Authenticate(ctx, username, password); err != nil {
		log.WithError(err).Fatal("Failed to authenticate")
	}
	if os.Getenv("SIM_SEED") != "false" {
		if err := client.Seed(ctx); err != nil {
			log.WithError(err).Warn("Seed failed")
		}
	}

	sim := NewSimulator(client, time.Now().UnixNano(), cancelRate)
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("Simulation stopped")
			return
		case <-tick.C:
			sim.Tick(ctx, perTick)
		}
	}
}
