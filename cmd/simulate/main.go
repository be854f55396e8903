// Command simulate hammers the booking API with concurrent, deliberately
// overlapping create requests and then verifies in the database that no
// provider ended up with two overlapping active appointments.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prosante/appointment-scheduling/internal/db"
	"github.com/prosante/appointment-scheduling/internal/logging"
)

type SimConfig struct {
	APIBaseURL  string
	Duration    time.Duration
	Workers     int
	Providers   int
	PostgresDSN string
}

type Metrics struct {
	Total    int64
	Success  int64
	Conflict int64
	Rejected int64
	Error    int64

	mu        sync.Mutex
	latencies []time.Duration
}

func (m *Metrics) Record(latency time.Duration, status int) {
	atomic.AddInt64(&m.Total, 1)
	switch {
	case status == http.StatusCreated:
		atomic.AddInt64(&m.Success, 1)
	case status == http.StatusConflict:
		atomic.AddInt64(&m.Conflict, 1)
	case status >= 400 && status < 500:
		atomic.AddInt64(&m.Rejected, 1)
	default:
		atomic.AddInt64(&m.Error, 1)
	}

	m.mu.Lock()
	m.latencies = append(m.latencies, latency)
	m.mu.Unlock()
}

func (m *Metrics) Percentile(p float64) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.latencies) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), m.latencies...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := int(float64(len(sorted)-1) * p)
	return sorted[idx]
}

func main() {
	logger := logging.New(os.Getenv("APP_ENV"), "simulate")

	cfg := SimConfig{
		APIBaseURL:  envOr("SIM_API_URL", "http://127.0.0.1:8080"),
		Duration:    envDuration("SIM_DURATION", 30*time.Second),
		Workers:     envInt("SIM_WORKERS", 16),
		Providers:   envInt("SIM_PROVIDERS", 4),
		PostgresDSN: os.Getenv("POSTGRES_DSN"),
	}
	if cfg.PostgresDSN == "" {
		logger.Fatal().Msg("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	professionals, err := loadProfessionals(context.Background(), pool, cfg.Providers+cfg.Workers)
	if err != nil {
		logger.Fatal().Err(err).Msg("load professionals")
	}
	if len(professionals) < cfg.Providers+2 {
		logger.Fatal().Int("found", len(professionals)).Msg("not enough seeded professionals, run cmd/seed first")
	}

	// A small set of hot providers concentrates contention on few calendars.
	providers := professionals[:cfg.Providers]
	requesters := professionals[cfg.Providers:]

	logger.Info().
		Int("workers", cfg.Workers).
		Int("providers", len(providers)).
		Dur("duration", cfg.Duration).
		Msg("simulation starting")

	metrics := &Metrics{}
	runCtx, stopRun := context.WithTimeout(context.Background(), cfg.Duration)
	defer stopRun()

	var wg sync.WaitGroup
	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			client := &http.Client{Timeout: 10 * time.Second}
			rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)))
			for runCtx.Err() == nil {
				bookOnce(runCtx, client, rng, cfg.APIBaseURL, providers, requesters, metrics)
			}
		}(w)
	}
	wg.Wait()

	logger.Info().
		Int64("total", metrics.Total).
		Int64("created", metrics.Success).
		Int64("conflicts", metrics.Conflict).
		Int64("rejected", metrics.Rejected).
		Int64("errors", metrics.Error).
		Dur("p50", metrics.Percentile(0.50)).
		Dur("p95", metrics.Percentile(0.95)).
		Dur("p99", metrics.Percentile(0.99)).
		Msg("simulation finished")

	overlaps, err := countOverlaps(context.Background(), pool)
	if err != nil {
		logger.Fatal().Err(err).Msg("verify overlaps")
	}
	if overlaps > 0 {
		logger.Error().Int("overlapping_pairs", overlaps).Msg("DOUBLE BOOKING DETECTED")
		os.Exit(1)
	}
	logger.Info().Msg("no overlapping active appointments found")
}

// bookOnce posts a booking for a random hot provider on a weekday next
// week. Slots are drawn from a narrow window so collisions are frequent.
func bookOnce(ctx context.Context, client *http.Client, rng *rand.Rand, baseURL string, providers, requesters []uuid.UUID, metrics *Metrics) {
	provider := providers[rng.Intn(len(providers))]
	requester := requesters[rng.Intn(len(requesters))]
	if provider == requester {
		return
	}

	// Monday through Friday of next week, 09:00-12:00, 15-minute grid.
	date := nextWeekday(time.Now(), 1+rng.Intn(5))
	minutes := 9*60 + 15*rng.Intn(12)
	slot := fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)

	body, _ := json.Marshal(map[string]any{
		"provider_id":        provider.String(),
		"patient_first_name": "Sim",
		"patient_last_name":  "Patient",
		"patient_phone":      "0612345678",
		"reason":             "simulation de charge",
		"appointment_date":   date,
		"appointment_time":   slot,
		"duration":           30,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/appointments", bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Professional-ID", requester.String())

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() == nil {
			metrics.Record(time.Since(start), 0)
		}
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	metrics.Record(time.Since(start), resp.StatusCode)
}

func nextWeekday(from time.Time, weekday int) string {
	d := from.AddDate(0, 0, 7) // start from next week
	for int(d.Weekday()) != weekday {
		d = d.AddDate(0, 0, 1)
	}
	return d.Format("2006-01-02")
}

func loadProfessionals(ctx context.Context, pool *pgxpool.Pool, limit int) ([]uuid.UUID, error) {
	rows, err := pool.Query(ctx, `SELECT id FROM professionals LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// countOverlaps finds pairs of active appointments for the same provider
// whose [starts_at, ends_at) ranges intersect. Zero is the only acceptable
// answer.
func countOverlaps(ctx context.Context, pool *pgxpool.Pool) (int, error) {
	var n int
	err := pool.QueryRow(ctx, `
		SELECT count(*)
		FROM appointments a
		JOIN appointments b
		  ON a.provider_id = b.provider_id
		 AND a.id < b.id
		 AND a.starts_at < b.ends_at
		 AND b.starts_at < a.ends_at
		WHERE a.status IN ('pending', 'confirmed')
		  AND b.status IN ('pending', 'confirmed')
	`).Scan(&n)
	return n, err
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
