package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prosante/appointment-scheduling/internal/db"
	"github.com/prosante/appointment-scheduling/internal/logging"
)

var professions = []string{
	"Médecin généraliste",
	"Kinésithérapeute",
	"Infirmier",
	"Ostéopathe",
	"Sage-femme",
	"Orthophoniste",
	"Podologue",
	"Psychologue",
	"Dentiste",
	"Ergothérapeute",
}

func main() {
	logger := logging.New(os.Getenv("APP_ENV"), "seed")
	logger.Info().Msg("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		logger.Fatal().Msg("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	ids, err := seedProfessionals(context.Background(), pool, 200)
	if err != nil {
		logger.Fatal().Err(err).Msg("seed professionals")
	}
	if err := seedAvailabilities(context.Background(), pool, ids); err != nil {
		logger.Fatal().Err(err).Msg("seed availabilities")
	}
	if err := seedBlockedIntervals(context.Background(), pool, ids); err != nil {
		logger.Fatal().Err(err).Msg("seed blocked intervals")
	}

	logger.Info().Int("professionals", len(ids)).Msg("seed complete")
}

func seedProfessionals(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		phone := frenchPhone()
		email := gofakeit.Email()
		address := gofakeit.Street()
		city := gofakeit.City()

		_, err := tx.Exec(ctx, `
			INSERT INTO professionals (id, first_name, last_name, profession, phone, email, address, city, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		`, id, gofakeit.FirstName(), gofakeit.LastName(),
			professions[gofakeit.Number(0, len(professions)-1)],
			phone, email, address, city)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return ids, nil
}

// seedAvailabilities gives every professional a Monday-Friday schedule,
// with some mornings-only and a few Saturdays.
func seedAvailabilities(ctx context.Context, pool *pgxpool.Pool, ids []uuid.UUID) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, pid := range ids {
		for day := 1; day <= 5; day++ {
			end := "18:00"
			if gofakeit.Number(0, 4) == 0 {
				end = "12:30"
			}
			if err := insertRule(ctx, tx, pid, day, "09:00", end); err != nil {
				return err
			}
		}
		if gofakeit.Number(0, 3) == 0 {
			if err := insertRule(ctx, tx, pid, 6, "09:00", "12:00"); err != nil {
				return err
			}
		}
	}

	return tx.Commit(ctx)
}

func insertRule(ctx context.Context, tx pgx.Tx, pid uuid.UUID, day int, start, end string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO availabilities (id, professional_id, day_of_week, start_time, end_time, is_active)
		VALUES ($1, $2, $3, $4, $5, true)
	`, uuid.New(), pid, day, start, end)
	return err
}

func seedBlockedIntervals(ctx context.Context, pool *pgxpool.Pool, ids []uuid.UUID) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, pid := range ids {
		// Roughly one professional in three has an upcoming absence.
		if gofakeit.Number(0, 2) != 0 {
			continue
		}
		start := time.Now().AddDate(0, 0, gofakeit.Number(3, 60)).Truncate(time.Hour)
		end := start.Add(time.Duration(gofakeit.Number(2, 72)) * time.Hour)

		_, err := tx.Exec(ctx, `
			INSERT INTO blocked_intervals (id, professional_id, start_datetime, end_datetime, reason, created_at)
			VALUES ($1, $2, $3, $4, $5, now())
		`, uuid.New(), pid, start, end, "congés")
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func frenchPhone() string {
	n := "0" + fmt.Sprint(gofakeit.Number(1, 9))
	for i := 0; i < 4; i++ {
		n += fmt.Sprintf("%02d", gofakeit.Number(0, 99))
	}
	return n
}
