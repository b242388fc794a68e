// seed inserts a recipient and a handful of recurring schedules for a
// fixed dev wallet address into the local database.
// Run: go run ./cmd/seed
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/voicepay/scheduler/internal/infrastructure/postgres"
)

const seedUser = "0x000000000000000000000000000000000000dEv"

type scheduleSpec struct {
	name       string
	recipient  string
	amount     string
	interval   string
	intervalMS *int64
	timesTotal *int
}

var schedules = []scheduleSpec{
	{name: "rent", recipient: "0x1111111111111111111111111111111111111a", amount: "500.00", interval: "monthly"},
	{name: "allowance", recipient: "0x2222222222222222222222222222222222222b", amount: "25.00", interval: "weekly"},
	{name: "subscription", recipient: "0x3333333333333333333333333333333333333c", amount: "9.99", interval: "monthly", timesTotal: intPtr(12)},
}

func intPtr(v int) *int { return &v }

func main() {
	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	pool, err := postgres.NewPool(ctx, dbURL)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer pool.Close()

	_, err = pool.Exec(ctx,
		`INSERT INTO recipients (user_address, name, wallet, note) VALUES
		 ($1, 'landlord', $2, 'seed'), ($1, 'kid', $3, 'seed'), ($1, 'streaming service', $4, 'seed')
		 ON CONFLICT DO NOTHING`,
		seedUser, schedules[0].recipient, schedules[1].recipient, schedules[2].recipient,
	)
	if err != nil {
		log.Fatalf("seed recipients: %v", err)
	}

	now := time.Now().UTC()
	startDate := now.Add(time.Minute).Format("2006-01-02")

	var inserted int
	var scheduleIDs []string

	for _, s := range schedules {
		id := uuid.New()
		amount, err := decimal.NewFromString(s.amount)
		if err != nil {
			log.Fatalf("parse seed amount for %s: %v", s.name, err)
		}
		_, err = pool.Exec(ctx, `
			INSERT INTO schedules (
				id, user_address, name, recipient, amount, currency, interval,
				interval_ms, start_date, tod_hour, tod_minute, tod_second,
				times_total, times_remaining, note, next_run, created_at, active
			) VALUES ($1,$2,$3,$4,$5,'USDC',$6,$7,$8,$9,$10,$11,$12,$12,'seed',$13,$14,true)
			ON CONFLICT (id) DO NOTHING`,
			id, seedUser, s.name, s.recipient, amount, s.interval,
			s.intervalMS, startDate, now.Hour(), now.Minute(), 0,
			s.timesTotal, now.Add(time.Minute), now,
		)
		if err != nil {
			log.Fatalf("insert schedule %s: %v", s.name, err)
		}
		scheduleIDs = append(scheduleIDs, id.String())
		inserted++
	}

	fmt.Println("Seed complete")
	fmt.Println()
	fmt.Printf("  User address:   %s\n", seedUser)
	fmt.Printf("  Schedules:      %d\n", inserted)
	fmt.Printf("  First due:      ~1 minute from now (fired once the Reconciler adds them to the index)\n")
	fmt.Println()
	fmt.Println("  Sample schedule IDs:")
	for _, id := range scheduleIDs {
		fmt.Printf("    %s\n", id)
	}
	fmt.Println()
	fmt.Println("How to test:")
	fmt.Println()
	fmt.Println("  1. Start cmd/api, cmd/dispatcher, and cmd/executor locally.")
	fmt.Println("  2. POST /auth/nonce then /auth/verify with a signature over the")
	fmt.Println("     returned nonce, signed by the seed wallet's private key, to")
	fmt.Println("     obtain a bearer token.")
	fmt.Println("  3. GET /transactions with that token once the dispatcher has")
	fmt.Println("     fired the seeded schedules.")
}
