package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Rep is one completed swing. Invalid reps are recorded too, they just don't count.
type Rep struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Seq       int       `json:"seq"`
	Valid     bool      `json:"valid"`
	HipAngle  int       `json:"hip_angle"`
	KneeAngle int       `json:"knee_angle"`
	CreatedAt time.Time `json:"created_at"`
}

// RepSummary aggregates the reps of one session.
type RepSummary struct {
	Total         int     `json:"total"`
	Valid         int     `json:"valid"`
	Invalid       int     `json:"invalid"`
	MeanHipAngle  float64 `json:"mean_hip_angle"`
	StdHipAngle   float64 `json:"std_hip_angle"`
	MeanKneeAngle float64 `json:"mean_knee_angle"`
}

// RepRepository provides operations for session reps.
type RepRepository struct {
	db *sql.DB
}

// Reps returns a RepRepository for managing reps.
func (s *Store) Reps() *RepRepository {
	return &RepRepository{db: s.db}
}

// Create records a rep and bumps the matching counter on its session.
// Seq is assigned as one past the session's current rep count.
// Returns ErrNotFound if the session does not exist.
func (r *RepRepository) Create(rep *Rep) error {
	if rep.CreatedAt.IsZero() {
		rep.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var reps, invalid int
	err = tx.QueryRow(`SELECT reps, invalid_reps FROM sessions WHERE id = ?`, rep.SessionID).Scan(&reps, &invalid)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	rep.Seq = reps + invalid + 1

	result, err := tx.Exec(
		`INSERT INTO reps (session_id, seq, valid, hip_angle, knee_angle, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rep.SessionID, rep.Seq, rep.Valid, rep.HipAngle, rep.KneeAngle, rep.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert rep: %w", err)
	}
	rep.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get rep id: %w", err)
	}

	column := "reps"
	if !rep.Valid {
		column = "invalid_reps"
	}
	if _, err := tx.Exec(`UPDATE sessions SET `+column+` = `+column+` + 1 WHERE id = ?`, rep.SessionID); err != nil {
		return fmt.Errorf("failed to update session counts: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ListBySession retrieves all reps of a session in order.
func (r *RepRepository) ListBySession(sessionID string) ([]*Rep, error) {
	rows, err := r.db.Query(
		`SELECT id, session_id, seq, valid, hip_angle, knee_angle, created_at
		 FROM reps WHERE session_id = ? ORDER BY seq`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list reps: %w", err)
	}
	defer rows.Close()

	reps := []*Rep{}
	for rows.Next() {
		var rep Rep
		if err := rows.Scan(&rep.ID, &rep.SessionID, &rep.Seq, &rep.Valid, &rep.HipAngle, &rep.KneeAngle, &rep.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan rep: %w", err)
		}
		reps = append(reps, &rep)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reps: %w", err)
	}

	return reps, nil
}

// Summary computes aggregate statistics over the reps of a session.
// The angle statistics cover valid reps only; they are zero when there are none.
func (r *RepRepository) Summary(sessionID string) (*RepSummary, error) {
	reps, err := r.ListBySession(sessionID)
	if err != nil {
		return nil, err
	}
	return summarize(reps), nil
}

func summarize(reps []*Rep) *RepSummary {
	sum := &RepSummary{Total: len(reps)}

	var hips, knees []float64
	for _, rep := range reps {
		if !rep.Valid {
			sum.Invalid++
			continue
		}
		sum.Valid++
		hips = append(hips, float64(rep.HipAngle))
		knees = append(knees, float64(rep.KneeAngle))
	}

	if len(hips) > 0 {
		sum.MeanHipAngle = stat.Mean(hips, nil)
		sum.MeanKneeAngle = stat.Mean(knees, nil)
	}
	// Sample standard deviation needs two points.
	if len(hips) > 1 {
		sum.StdHipAngle = stat.StdDev(hips, nil)
	}

	return sum
}
