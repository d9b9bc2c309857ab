package datarecording

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
)

// StepQuery selects the recorded steps. Zero fields select everything.
type StepQuery struct {
	// From drops the steps before it.
	From float64

	// Until, when positive, drops the steps after it.
	Until float64

	// Node keeps only the steps of a node. Use GlobalNode for global
	// reactions.
	Node *int

	// Reaction keeps only the steps of the named reaction.
	Reaction string

	Limit  int
	Offset int
}

func (q StepQuery) where() (string, []any) {
	var (
		conds []string
		args  []any
	)

	if q.From > 0 {
		conds = append(conds, "Time >= ?")
		args = append(args, q.From)
	}

	if q.Until > 0 {
		conds = append(conds, "Time <= ?")
		args = append(args, q.Until)
	}

	if q.Node != nil {
		conds = append(conds, "Node = ?")
		args = append(args, *q.Node)
	}

	if q.Reaction != "" {
		conds = append(conds, "Reaction = ?")
		args = append(args, q.Reaction)
	}

	if len(conds) == 0 {
		return "", nil
	}

	return " WHERE " + strings.Join(conds, " AND "), args
}

// StepSummary describes a recorded run.
type StepSummary struct {
	Steps       int
	Nodes       int
	GlobalSteps int
	FirstTime   float64
	LastTime    float64
}

// StepReader reads back what a StepRecorder wrote.
type StepReader struct {
	db *sql.DB
}

// OpenStepReader opens the database that New created for path.
func OpenStepReader(path string) (*StepReader, error) {
	filename := FileName(path)
	if _, err := os.Stat(filename); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		return nil, err
	}

	return NewStepReaderWithDB(db), nil
}

// NewStepReaderWithDB creates a StepReader on an open database.
func NewStepReaderWithDB(db *sql.DB) *StepReader {
	return &StepReader{db: db}
}

// Steps returns the steps selected by q in step order, and how many steps
// match q regardless of Limit and Offset.
func (r *StepReader) Steps(
	ctx context.Context,
	q StepQuery,
) ([]StepEntry, int, error) {
	where, args := q.where()

	var total int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM "+StepTableName+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count steps: %w", err)
	}

	query := "SELECT Step, Time, Node, Reaction FROM " + StepTableName +
		where + " ORDER BY Step"
	if q.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", q.Limit, q.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query steps: %w", err)
	}
	defer rows.Close()

	var steps []StepEntry
	for rows.Next() {
		var s StepEntry
		if err := rows.Scan(&s.Step, &s.Time, &s.Node, &s.Reaction); err != nil {
			return nil, 0, err
		}

		steps = append(steps, s)
	}

	return steps, total, rows.Err()
}

// Summary counts the recorded steps.
func (r *StepReader) Summary(ctx context.Context) (StepSummary, error) {
	var s StepSummary

	err := r.db.QueryRowContext(ctx, `SELECT
		COUNT(*),
		COUNT(DISTINCT CASE WHEN Node != ? THEN Node END),
		COALESCE(SUM(CASE WHEN Node = ? THEN 1 ELSE 0 END), 0),
		COALESCE(MIN(Time), 0),
		COALESCE(MAX(Time), 0)
		FROM `+StepTableName, GlobalNode, GlobalNode).
		Scan(&s.Steps, &s.Nodes, &s.GlobalSteps, &s.FirstTime, &s.LastTime)
	if err != nil {
		return StepSummary{}, fmt.Errorf("summarize steps: %w", err)
	}

	return s, nil
}

// ExecInfo returns the properties of the recorded execution.
func (r *StepReader) ExecInfo(ctx context.Context) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT Property, Value FROM "+execTableName)
	if err != nil {
		return nil, fmt.Errorf("query exec info: %w", err)
	}
	defer rows.Close()

	info := make(map[string]string)
	for rows.Next() {
		var e execInfo
		if err := rows.Scan(&e.Property, &e.Value); err != nil {
			return nil, err
		}

		info[e.Property] = e.Value
	}

	return info, rows.Err()
}

// Close closes the database.
func (r *StepReader) Close() error {
	return r.db.Close()
}
