package store

import (
	"context"
	"fmt"
	"time"

	"horse.fit/newsradar/internal/globaltime"
	"horse.fit/newsradar/internal/pipeline"
)

// RunSummary is one archived pipeline run.
type RunSummary struct {
	RunID             int64     `json:"run_id"`
	StartedAt         time.Time `json:"started_at"`
	InputCount        int       `json:"input_count"`
	OutputCount       int       `json:"output_count"`
	DuplicatesRemoved int       `json:"duplicates_removed"`
	Pass1Successes    int       `json:"pass1_successes"`
	Pass2Successes    int       `json:"pass2_successes"`
	FetchFailures     int       `json:"fetch_failures"`
	LocationsFound    int       `json:"locations_found"`
	TotalMS           int64     `json:"total_ms"`
}

// Archive persists completed runs and their enriched items.
type Archive struct {
	pool *Pool
}

func NewArchive(pool *Pool) *Archive {
	return &Archive{pool: pool}
}

// SaveRun stores one run with all its output items and returns the run id.
func (a *Archive) SaveRun(ctx context.Context, startedAt time.Time, result pipeline.Result) (int64, error) {
	if a == nil || a.pool == nil {
		return 0, fmt.Errorf("archive is not initialized")
	}

	now := globaltime.UTC()

	var runID int64
	row := a.pool.QueryRow(ctx, `
		INSERT INTO runs (
			started_at, input_count, output_count, duplicates_removed,
			pass1_successes, pass2_successes, fetch_failures, locations_found,
			total_ms, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING run_id`,
		startedAt.UTC(),
		result.Counters.Input,
		len(result.Items),
		result.Counters.DuplicatesRemoved,
		result.Counters.Pass1Successes,
		result.Counters.Pass2Successes,
		result.Counters.FetchFailures,
		result.Counters.LocationsFound,
		result.Timings.Total.Milliseconds(),
		now,
	)
	if err := row.Scan(&runID); err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}

	for _, item := range result.Items {
		var location any
		if item.Location != "" {
			location = item.Location
		}
		err := a.pool.Exec(ctx, `
			INSERT INTO run_items (
				run_id, source, title, link, published, summary,
				location, has_article, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID,
			item.Source,
			item.Title,
			item.Link,
			item.Published.UTC(),
			item.Summary,
			location,
			item.Article != "",
			now,
		)
		if err != nil {
			return 0, fmt.Errorf("insert run item %s: %w", item.Link, err)
		}
	}

	return runID, nil
}

// ListRuns returns the most recent runs, newest first.
func (a *Archive) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if a == nil || a.pool == nil {
		return nil, fmt.Errorf("archive is not initialized")
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := a.pool.Query(ctx, `
		SELECT run_id, started_at, input_count, output_count, duplicates_removed,
		       pass1_successes, pass2_successes, fetch_failures, locations_found, total_ms
		FROM runs
		ORDER BY run_id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var run RunSummary
		err := rows.Scan(
			&run.RunID,
			&run.StartedAt,
			&run.InputCount,
			&run.OutputCount,
			&run.DuplicatesRemoved,
			&run.Pass1Successes,
			&run.Pass2Successes,
			&run.FetchFailures,
			&run.LocationsFound,
			&run.TotalMS,
		)
		if err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run rows: %w", err)
	}
	return runs, nil
}
