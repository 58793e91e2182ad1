// Package database records questionnaire submissions and their ranked
// results in Postgres. Persistence is optional: the server runs without it
// when no connection string is configured.
package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/AltoqOfficial/altoq-pwa-sub001/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB represents the database connection.
type DB struct {
	Pool *pgxpool.Pool
}

// NewDB creates a new database connection.
func NewDB(connStr string) (*DB, error) {
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Initialize sets up the database tables and indices.
func (db *DB) Initialize(ctx context.Context) error {
	_, err := db.Pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS submissions (
            id SERIAL PRIMARY KEY,
            submitted_at TIMESTAMPTZ NOT NULL DEFAULT now(),
            total_questions INTEGER NOT NULL,
            answers JSONB NOT NULL
        )
    `)
	if err != nil {
		return fmt.Errorf("failed to create submissions table: %w", err)
	}

	_, err = db.Pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS submission_results (
            id SERIAL PRIMARY KEY,
            submission_id INTEGER NOT NULL REFERENCES submissions(id),
            plan_id INTEGER NOT NULL,
            party TEXT NOT NULL,
            match_score INTEGER NOT NULL,
            match_percentage INTEGER NOT NULL
        )
    `)
	if err != nil {
		return fmt.Errorf("failed to create submission_results table: %w", err)
	}

	_, err = db.Pool.Exec(ctx, `
        CREATE INDEX IF NOT EXISTS submission_results_plan_idx
        ON submission_results (plan_id);
    `)
	if err != nil {
		return fmt.Errorf("failed to create indices: %w", err)
	}

	return nil
}

// StoreSubmission records a submission and its ranked results.
func (db *DB) StoreSubmission(ctx context.Context, answers map[string]models.OptionKey, results []models.PlanResult) error {
	answersJSON, err := json.Marshal(answers)
	if err != nil {
		return fmt.Errorf("failed to encode answers: %w", err)
	}

	var submissionID int
	err = db.Pool.QueryRow(ctx, `
        INSERT INTO submissions (total_questions, answers)
        VALUES ($1, $2)
        RETURNING id
    `, len(answers), answersJSON).Scan(&submissionID)
	if err != nil {
		return fmt.Errorf("failed to insert submission: %w", err)
	}

	for _, r := range results {
		_, err := db.Pool.Exec(ctx, `
            INSERT INTO submission_results (submission_id, plan_id, party, match_score, match_percentage)
            VALUES ($1, $2, $3, $4, $5)
        `, submissionID, r.PlanID, r.Party, r.MatchScore, r.MatchPercentage)
		if err != nil {
			return fmt.Errorf("failed to insert result for plan %d: %w", r.PlanID, err)
		}
	}

	return nil
}

// PlanAggregate is a per-plan rollup over all stored submissions.
type PlanAggregate struct {
	PlanID      int     `json:"plan_id"`
	Party       string  `json:"party"`
	Submissions int     `json:"submissions"`
	AvgScore    float64 `json:"avg_score"`
}

// TopPlans returns the plans most matched across stored submissions.
func (db *DB) TopPlans(ctx context.Context, limit int) ([]PlanAggregate, error) {
	rows, err := db.Pool.Query(ctx, `
        SELECT plan_id, party, COUNT(*), AVG(match_score)
        FROM submission_results
        GROUP BY plan_id, party
        ORDER BY AVG(match_score) DESC
        LIMIT $1
    `, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top plans: %w", err)
	}
	defer rows.Close()

	var aggregates []PlanAggregate
	for rows.Next() {
		var a PlanAggregate
		if err := rows.Scan(&a.PlanID, &a.Party, &a.Submissions, &a.AvgScore); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		aggregates = append(aggregates, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return aggregates, nil
}

// Close closes the database connection.
func (db *DB) Close() {
	db.Pool.Close()
}
