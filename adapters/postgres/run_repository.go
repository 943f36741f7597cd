package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"time"

	"gofestat/domain/core"
	"gofestat/domain/stats"
	"gofestat/internal/errors"
	"gofestat/ports"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// RunRepositoryImpl implements RunRepository for PostgreSQL
type RunRepositoryImpl struct {
	db *sqlx.DB
}

// NewRunRepository creates a new PostgreSQL run repository
func NewRunRepository(db *sqlx.DB) ports.RunRepository {
	return &RunRepositoryImpl{db: db}
}

// runRow is the fe_runs column layout; slices and the summary are JSONB
type runRow struct {
	ID         uuid.UUID `db:"id"`
	Frequency  float64   `db:"frequency"`
	Brave      bool      `db:"brave"`
	Pulsars    []byte    `db:"pulsars"`
	InputHash  string    `db:"input_hash"`
	Grid       []byte    `db:"grid"`
	Values     []byte    `db:"sky_values"`
	Summary    []byte    `db:"summary"`
	MaxFe      float64   `db:"max_fe"`
	CreatedAt  time.Time `db:"created_at"`
	DurationMS int64     `db:"duration_ms"`
}

const runColumns = `id, frequency, brave, pulsars, input_hash, grid, sky_values, summary, max_fe, created_at, duration_ms`

// Save inserts a run, replacing any row with the same ID
func (r *RunRepositoryImpl) Save(ctx context.Context, run *stats.FeRun) error {
	row, err := toRow(run)
	if err != nil {
		return err
	}

	_, err = r.db.NamedExecContext(ctx, `
		INSERT INTO fe_runs (`+runColumns+`)
		VALUES (:id, :frequency, :brave, :pulsars, :input_hash, :grid, :sky_values, :summary, :max_fe, :created_at, :duration_ms)
		ON CONFLICT (id) DO UPDATE SET
			frequency = EXCLUDED.frequency,
			brave = EXCLUDED.brave,
			pulsars = EXCLUDED.pulsars,
			input_hash = EXCLUDED.input_hash,
			grid = EXCLUDED.grid,
			sky_values = EXCLUDED.sky_values,
			summary = EXCLUDED.summary,
			max_fe = EXCLUDED.max_fe,
			duration_ms = EXCLUDED.duration_ms
	`, row)
	if err != nil {
		return errors.DatabaseError("failed to save run", err)
	}
	return nil
}

// Get retrieves a run by ID
func (r *RunRepositoryImpl) Get(ctx context.Context, id core.RunID) (*stats.FeRun, error) {
	var row runRow
	err := r.db.GetContext(ctx, &row, `SELECT `+runColumns+` FROM fe_runs WHERE id = $1`, id.String())
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NotFound("run " + id.String())
	}
	if err != nil {
		return nil, errors.DatabaseError("failed to load run", err)
	}
	return fromRow(&row)
}

// List returns the most recent runs, newest first
func (r *RunRepositoryImpl) List(ctx context.Context, limit int) ([]*stats.FeRun, error) {
	if limit <= 0 {
		limit = 50
	}

	var rows []runRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT `+runColumns+`
		FROM fe_runs
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, errors.DatabaseError("failed to list runs", err)
	}

	runs := make([]*stats.FeRun, 0, len(rows))
	for i := range rows {
		run, err := fromRow(&rows[i])
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}

func toRow(run *stats.FeRun) (*runRow, error) {
	id, err := uuid.Parse(run.ID.String())
	if err != nil {
		return nil, errors.InvalidInput("run ID is not a UUID: " + run.ID.String())
	}

	row := &runRow{
		ID:         id,
		Frequency:  run.Frequency,
		Brave:      run.Brave,
		InputHash:  run.InputHash.String(),
		MaxFe:      run.Summary.Max,
		CreatedAt:  run.CreatedAt.Time(),
		DurationMS: run.DurationMS,
	}
	if row.Pulsars, err = json.Marshal(run.PulsarNames); err != nil {
		return nil, errors.Wrap(err, "failed to encode pulsar names")
	}
	if row.Grid, err = json.Marshal(run.Grid); err != nil {
		return nil, errors.Wrap(err, "failed to encode sky grid")
	}
	if row.Values, err = json.Marshal(run.Values); err != nil {
		return nil, errors.Wrap(err, "failed to encode sky map")
	}
	if row.Summary, err = json.Marshal(run.Summary); err != nil {
		return nil, errors.Wrap(err, "failed to encode summary")
	}
	return row, nil
}

func fromRow(row *runRow) (*stats.FeRun, error) {
	run := &stats.FeRun{
		ID:         core.RunID(row.ID.String()),
		Frequency:  row.Frequency,
		Brave:      row.Brave,
		InputHash:  core.Hash(row.InputHash),
		CreatedAt:  core.NewTimestamp(row.CreatedAt),
		DurationMS: row.DurationMS,
	}
	if err := json.Unmarshal(row.Pulsars, &run.PulsarNames); err != nil {
		return nil, errors.Wrap(err, "failed to decode pulsar names")
	}
	if err := json.Unmarshal(row.Grid, &run.Grid); err != nil {
		return nil, errors.Wrap(err, "failed to decode sky grid")
	}
	if err := json.Unmarshal(row.Values, &run.Values); err != nil {
		return nil, errors.Wrap(err, "failed to decode sky map")
	}
	if err := json.Unmarshal(row.Summary, &run.Summary); err != nil {
		return nil, errors.Wrap(err, "failed to decode summary")
	}
	return run, nil
}
