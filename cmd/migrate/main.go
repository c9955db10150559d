package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"class-election/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
)

const usage = "Usage: go run ./cmd/migrate [drop|up|seed|reset]"

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}

	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	command := os.Args[1]

	ctx := context.Background()
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer conn.Close(ctx)

	switch command {
	case "drop":
		if err := exec(ctx, conn, repository.DropStatements, "Dropped"); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		fmt.Println("✅ All tables dropped successfully")

	case "up":
		if err := exec(ctx, conn, repository.SchemaStatements, "Created"); err != nil {
			log.Fatalf("Failed to create tables: %v", err)
		}
		fmt.Println("✅ All tables created successfully")

	case "seed":
		if err := seedData(ctx, conn); err != nil {
			log.Fatalf("Failed to seed data: %v", err)
		}
		fmt.Println("✅ Data seeded successfully")

	case "reset":
		if err := exec(ctx, conn, repository.DropStatements, "Dropped"); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		if err := exec(ctx, conn, repository.SchemaStatements, "Created"); err != nil {
			log.Fatalf("Failed to create tables: %v", err)
		}
		fmt.Println("✅ Schema recreated successfully")

	default:
		fmt.Printf("Unknown command: %s\n", command)
		fmt.Println(usage)
		os.Exit(1)
	}
}

func exec(ctx context.Context, conn *pgx.Conn, queries []string, verb string) error {
	for _, query := range queries {
		if _, err := conn.Exec(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %w\nQuery: %s", err, query)
		}
		fmt.Printf("  %s: %s\n", verb, statementName(query))
	}
	return nil
}

type seedCandidate struct {
	name, regNo, bio, position string
}

var (
	seedPositions = []string{"President", "Vice President", "Secretary", "Treasurer"}

	seedCandidates = []seedCandidate{
		{"Amara Okafor", "CAND001", "Student welfare first", "President"},
		{"Brian Mwangi", "CAND002", "Transparent leadership", "President"},
		{"Chloe Njeri", "CAND003", "", "Vice President"},
		{"David Otieno", "CAND004", "Organised and on time", "Secretary"},
		{"Esther Wanjiru", "CAND005", "", "Treasurer"},
		{"Felix Kamau", "CAND006", "Every shilling accounted for", "Treasurer"},
	}

	seedVoters = [][2]string{
		{"Grace Achieng", "STU001"},
		{"Henry Kiprop", "STU002"},
		{"Irene Chebet", "STU003"},
		{"James Mutua", "STU004"},
		{"Kevin Omondi", "STU005"},
	}
)

// seedData loads a small demo election. Existing rows are kept.
func seedData(ctx context.Context, conn *pgx.Conn) error {
	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, title := range seedPositions {
		if _, err := tx.Exec(ctx, `
			INSERT INTO positions (title) VALUES ($1)
			ON CONFLICT (title) DO NOTHING`, title); err != nil {
			return fmt.Errorf("failed to seed position %q: %w", title, err)
		}
	}
	fmt.Printf("  Seeded %d positions\n", len(seedPositions))

	for _, c := range seedCandidates {
		// reg_no is not unique for candidates; reuse the oldest row.
		var id int64
		err := tx.QueryRow(ctx, `SELECT id FROM candidates WHERE reg_no = $1 ORDER BY id LIMIT 1`, c.regNo).Scan(&id)
		if errors.Is(err, pgx.ErrNoRows) {
			err = tx.QueryRow(ctx, `
				INSERT INTO candidates (name, reg_no, bio) VALUES ($1, $2, NULLIF($3, ''))
				RETURNING id`, c.name, c.regNo, c.bio).Scan(&id)
		}
		if err != nil {
			return fmt.Errorf("failed to seed candidate %s: %w", c.regNo, err)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO candidate_positions (candidate_id, position_id)
			SELECT $1, id FROM positions WHERE title = $2
			ON CONFLICT DO NOTHING`, id, c.position); err != nil {
			return fmt.Errorf("failed to link candidate %s: %w", c.regNo, err)
		}
	}
	fmt.Printf("  Seeded %d candidates\n", len(seedCandidates))

	for _, v := range seedVoters {
		if _, err := tx.Exec(ctx, `
			INSERT INTO voters (name, reg_no, token) VALUES ($1, $2, $3)
			ON CONFLICT (reg_no) DO NOTHING`, v[0], v[1], uuid.New()); err != nil {
			return fmt.Errorf("failed to seed voter %s: %w", v[1], err)
		}
	}
	fmt.Printf("  Seeded %d voters\n", len(seedVoters))

	return tx.Commit(ctx)
}

func statementName(query string) string {
	if len(query) > 50 {
		return query[:50] + "..."
	}
	return query
}
