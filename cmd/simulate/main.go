package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

type SimConfig struct {
	APIBaseURL   string
	Manifest     string
	Duration     time.Duration
	Workers      int
	BookingRatio float64
	AcceptRatio  float64
	ReadRatio    float64
	RaceBookers  int
}

// manifest mirrors the file written by cmd/seed.
type manifest struct {
	AdminToken  string `json:"admin_token"`
	Specialists []struct {
		ID        uuid.UUID `json:"id"`
		Specialty string    `json:"specialty"`
		Token     string    `json:"token"`
	} `json:"specialists"`
	Patients []struct {
		ID    uuid.UUID `json:"id"`
		Token string    `json:"token"`
	} `json:"patients"`
}

type slot struct {
	Date  string `json:"date"`
	Label string `json:"label"`
}

type day struct {
	Date  string `json:"date"`
	Slots []slot `json:"slots"`
}

type booked struct {
	ID           uuid.UUID `json:"id"`
	SpecialistID uuid.UUID `json:"specialist_id"`
}

type DataPool struct {
	manifest     manifest
	specialistBy map[uuid.UUID]string
	mu           sync.RWMutex
	appointments []booked
}

func (dp *DataPool) AddAppointment(b booked) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.appointments = append(dp.appointments, b)
}

func (dp *DataPool) GetRandomAppointment(rng *rand.Rand) (booked, bool) {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	if len(dp.appointments) == 0 {
		return booked{}, false
	}
	return dp.appointments[rng.Intn(len(dp.appointments))], true
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, status int) {
	atomic.AddInt64(&om.Total, 1)
	switch {
	case status >= 200 && status < 300:
		atomic.AddInt64(&om.Success, 1)
	case status == http.StatusConflict:
		atomic.AddInt64(&om.Conflict, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, lo, hi, p50, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	n := len(latencies)
	return sum / time.Duration(n), latencies[0], latencies[n-1], latencies[n*50/100], latencies[min(n*95/100, n-1)]
}

type Metrics struct {
	Race    OperationMetrics
	Booking OperationMetrics
	Accept  OperationMetrics
	Days    OperationMetrics
	List    OperationMetrics
}

type Simulator struct {
	config  SimConfig
	pool    *DataPool
	client  *http.Client
	metrics Metrics
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("simulator starting")

	cfg := loadConfig()
	if err := validateConfig(cfg); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	pool, err := loadDataPool(cfg.Manifest)
	if err != nil {
		log.Fatalf("load manifest: %v", err)
	}
	log.Printf("loaded: %d specialists, %d patients",
		len(pool.manifest.Specialists), len(pool.manifest.Patients))

	sim := &Simulator{
		config: cfg,
		pool:   pool,
		client: &http.Client{Timeout: 10 * time.Second},
	}

	sim.Race()
	sim.Run()
	sim.PrintReport()
}

func loadConfig() SimConfig {
	cfg := SimConfig{
		APIBaseURL:   getEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		Manifest:     getEnv("SEED_OUTPUT", "seed.json"),
		Duration:     getDuration("SIM_DURATION", 30*time.Second),
		Workers:      getInt("SIM_WORKERS", 10),
		BookingRatio: getFloat("SIM_BOOKING_RATIO", 0.4),
		AcceptRatio:  getFloat("SIM_ACCEPT_RATIO", 0.2),
		ReadRatio:    getFloat("SIM_READ_RATIO", 0.4),
		RaceBookers:  getInt("SIM_RACE_BOOKERS", 20),
	}

	total := cfg.BookingRatio + cfg.AcceptRatio + cfg.ReadRatio
	if total > 0 {
		cfg.BookingRatio /= total
		cfg.AcceptRatio /= total
		cfg.ReadRatio /= total
	}
	return cfg
}

func validateConfig(cfg SimConfig) error {
	if cfg.Workers <= 0 {
		return fmt.Errorf("SIM_WORKERS must be > 0")
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("SIM_DURATION must be > 0")
	}
	return nil
}

func loadDataPool(path string) (*DataPool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if len(m.Specialists) == 0 || len(m.Patients) == 0 {
		return nil, fmt.Errorf("%s has no specialists or no patients, run cmd/seed first", path)
	}

	dp := &DataPool{manifest: m, specialistBy: make(map[uuid.UUID]string, len(m.Specialists))}
	for _, sp := range m.Specialists {
		dp.specialistBy[sp.ID] = sp.Token
	}
	return dp, nil
}

// Race sends many patients at the same slot at once. Exactly one of them
// must get 201.
func (s *Simulator) Race() {
	if s.config.RaceBookers <= 1 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sp := s.pool.manifest.Specialists[0]
	target, ok := s.firstFreeSlot(ctx, sp.ID, sp.Specialty, sp.Token)
	if !ok {
		log.Printf("race skipped: specialist %s has no free slot", sp.ID)
		return
	}
	log.Printf("race: %d patients booking %s %s", s.config.RaceBookers, target.Date, target.Label)

	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < s.config.RaceBookers; i++ {
		p := s.pool.manifest.Patients[i%len(s.pool.manifest.Patients)]
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			s.reserve(ctx, &s.metrics.Race, p.Token, sp.ID, sp.Specialty, target)
		}()
	}
	close(start)
	wg.Wait()

	if won := atomic.LoadInt64(&s.metrics.Race.Success); won != 1 {
		log.Printf("race: DOUBLE BOOKING CHECK FAILED, %d bookings succeeded", won)
	}
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	log.Printf("starting simulation for %s with %d workers", s.config.Duration, s.config.Workers)

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	log.Println("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

	for {
		select {
		case <-ctx.Done():
			return
		default:
			r := rng.Float64()
			switch {
			case r < s.config.BookingRatio:
				s.doBooking(ctx, rng)
			case r < s.config.BookingRatio+s.config.AcceptRatio:
				s.doAccept(ctx, rng)
			default:
				s.doList(ctx, rng)
			}
		}
	}
}

func (s *Simulator) doBooking(ctx context.Context, rng *rand.Rand) {
	m := s.pool.manifest
	sp := m.Specialists[rng.Intn(len(m.Specialists))]
	p := m.Patients[rng.Intn(len(m.Patients))]

	days, ok := s.availableDays(ctx, sp.ID, sp.Specialty, p.Token)
	if !ok || len(days) == 0 {
		return
	}
	d := days[rng.Intn(len(days))]
	s.reserve(ctx, &s.metrics.Booking, p.Token, sp.ID, sp.Specialty, d.Slots[rng.Intn(len(d.Slots))])
}

func (s *Simulator) doAccept(ctx context.Context, rng *rand.Rand) {
	b, ok := s.pool.GetRandomAppointment(rng)
	if !ok {
		return
	}
	path := fmt.Sprintf("/appointments/%s/accept", b.ID)
	status, _, latency := s.call(ctx, http.MethodPost, path, s.pool.specialistBy[b.SpecialistID], nil)
	// accepting twice is a validation error, count it as a conflict
	if status == http.StatusBadRequest {
		status = http.StatusConflict
	}
	s.metrics.Accept.Record(latency, status)
}

func (s *Simulator) doList(ctx context.Context, rng *rand.Rand) {
	p := s.pool.manifest.Patients[rng.Intn(len(s.pool.manifest.Patients))]
	status, _, latency := s.call(ctx, http.MethodGet, "/appointments", p.Token, nil)
	s.metrics.List.Record(latency, status)
}

func (s *Simulator) reserve(ctx context.Context, om *OperationMetrics, token string, specialistID uuid.UUID, specialty string, sl slot) {
	req := map[string]any{
		"specialist_id": specialistID,
		"specialty":     specialty,
		"date":          sl.Date,
		"label":         sl.Label,
	}
	status, body, latency := s.call(ctx, http.MethodPost, "/appointments", token, req)
	om.Record(latency, status)

	if status == http.StatusCreated {
		var b booked
		if err := json.Unmarshal(body, &b); err == nil && b.ID != uuid.Nil {
			s.pool.AddAppointment(b)
		}
	}
}

func (s *Simulator) availableDays(ctx context.Context, specialistID uuid.UUID, specialty, token string) ([]day, bool) {
	path := fmt.Sprintf("/specialists/%s/days?specialty=%s", specialistID, url.QueryEscape(specialty))
	status, body, latency := s.call(ctx, http.MethodGet, path, token, nil)
	s.metrics.Days.Record(latency, status)
	if status != http.StatusOK {
		return nil, false
	}
	var days []day
	if err := json.Unmarshal(body, &days); err != nil {
		return nil, false
	}
	return days, true
}

func (s *Simulator) firstFreeSlot(ctx context.Context, specialistID uuid.UUID, specialty, token string) (slot, bool) {
	days, ok := s.availableDays(ctx, specialistID, specialty, token)
	if !ok || len(days) == 0 || len(days[0].Slots) == 0 {
		return slot{}, false
	}
	return days[0].Slots[0], true
}

// call returns status 0 when the request never got an answer.
func (s *Simulator) call(ctx context.Context, method, path, token string, payload any) (int, []byte, time.Duration) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, 0
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.config.APIBaseURL+path, body)
	if err != nil {
		return 0, nil, 0
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	start := time.Now()
	resp, err := s.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		return 0, nil, latency
	}
	defer resp.Body.Close()

	out, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, out, latency
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n", s.config.Workers)
	fmt.Println()

	printOperationReport("Same-slot race", &s.metrics.Race)
	printOperationReport("Booking", &s.metrics.Booking)
	printOperationReport("Accept", &s.metrics.Accept)
	printOperationReport("Available days", &s.metrics.Days)
	printOperationReport("List appointments", &s.metrics.List)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	success := atomic.LoadInt64(&om.Success)
	conflict := atomic.LoadInt64(&om.Conflict)
	failed := atomic.LoadInt64(&om.Error)

	avg, lo, hi, p50, p95 := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, float64(success)/float64(total)*100)
	if conflict > 0 {
		fmt.Printf("  Conflicts: %d (%.1f%%)\n", conflict, float64(conflict)/float64(total)*100)
	}
	if failed > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", failed, float64(failed)/float64(total)*100)
	}
	fmt.Printf("  Latency: avg=%s min=%s max=%s p50=%s p95=%s\n",
		avg.Round(time.Millisecond), lo.Round(time.Millisecond), hi.Round(time.Millisecond),
		p50.Round(time.Millisecond), p95.Round(time.Millisecond))
	fmt.Println()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
