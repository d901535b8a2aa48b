package state

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ShayCichocki/taskengine/pkg/models"
)

// ErrRunNotFound is returned by GetRun for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// RecordRun stores a finished run and its task reports. Recording the same
// run ID again replaces the earlier entry.
func (db *DB) RecordRun(s *models.RunSummary) error {
	if s == nil || s.RunID == "" {
		return errors.New("record run: summary has no run id")
	}

	return db.Transaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM run_tasks WHERE run_id = ?`, s.RunID); err != nil {
			return fmt.Errorf("replace run %s: %w", s.RunID, err)
		}
		if _, err := tx.Exec(`DELETE FROM runs WHERE id = ?`, s.RunID); err != nil {
			return fmt.Errorf("replace run %s: %w", s.RunID, err)
		}

		_, err := tx.Exec(`
			INSERT INTO runs (id, started_at, duration_ms, iterations, branch, base_branch,
				git_outcome, git_error, success, stopped, error)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			s.RunID,
			formatTime(s.StartedAt),
			s.Duration.Milliseconds(),
			s.Iterations,
			nullString(s.Branch),
			nullString(s.BaseBranch),
			string(s.GitOutcome),
			nullString(s.GitError),
			s.Success,
			s.Stopped,
			nullString(s.Error),
		)
		if err != nil {
			return fmt.Errorf("insert run %s: %w", s.RunID, err)
		}

		for i, r := range s.Tasks {
			_, err := tx.Exec(`
				INSERT INTO run_tasks (run_id, position, task_id, description, status,
					agent_id, duration_ms, error, blocked_reason)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			`,
				s.RunID,
				i,
				r.ID,
				nullString(r.Description),
				string(r.Status),
				nullString(r.AgentID),
				r.Duration.Milliseconds(),
				nullString(r.Error),
				nullString(r.BlockedReason),
			)
			if err != nil {
				return fmt.Errorf("insert task %s of run %s: %w", r.ID, s.RunID, err)
			}
		}
		return nil
	})
}

// ListRuns returns the most recent runs, newest first. Task reports are not
// loaded; Stats is filled from the stored task rows. A limit of zero or less
// returns every run.
func (db *DB) ListRuns(limit int) ([]models.RunSummary, error) {
	query := `
		SELECT id, started_at, duration_ms, iterations, branch, base_branch,
			git_outcome, git_error, success, stopped, error
		FROM runs
		ORDER BY started_at DESC, id
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []models.RunSummary
	for rows.Next() {
		s, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	for i := range runs {
		stats, err := db.runStats(runs[i].RunID)
		if err != nil {
			return nil, err
		}
		runs[i].Stats = stats
	}
	return runs, nil
}

// GetRun returns one run with its task reports in their recorded order.
func (db *DB) GetRun(id string) (*models.RunSummary, error) {
	row := db.QueryRow(`
		SELECT id, started_at, duration_ms, iterations, branch, base_branch,
			git_outcome, git_error, success, stopped, error
		FROM runs WHERE id = ?
	`, id)
	s, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	rows, err := db.Query(`
		SELECT task_id, description, status, agent_id, duration_ms, error, blocked_reason
		FROM run_tasks WHERE run_id = ? ORDER BY position
	`, id)
	if err != nil {
		return nil, fmt.Errorf("load tasks of run %s: %w", id, err)
	}
	defer rows.Close()

	s.Stats = models.NewTaskStats()
	for rows.Next() {
		var (
			r                                      models.TaskReport
			status                                 string
			durationMs                             int64
			description, agentID, errMsg, blockedR sql.NullString
		)
		if err := rows.Scan(&r.ID, &description, &status, &agentID, &durationMs, &errMsg, &blockedR); err != nil {
			return nil, fmt.Errorf("scan task of run %s: %w", id, err)
		}
		r.Status = models.TaskStatus(status)
		r.Description = description.String
		r.AgentID = agentID.String
		r.Duration = time.Duration(durationMs) * time.Millisecond
		r.Error = errMsg.String
		r.BlockedReason = blockedR.String
		s.Tasks = append(s.Tasks, r)
		s.Stats[r.Status]++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load tasks of run %s: %w", id, err)
	}
	return s, nil
}

func (db *DB) runStats(id string) (models.TaskStats, error) {
	rows, err := db.Query(`SELECT status, COUNT(*) FROM run_tasks WHERE run_id = ? GROUP BY status`, id)
	if err != nil {
		return nil, fmt.Errorf("stats of run %s: %w", id, err)
	}
	defer rows.Close()

	stats := models.NewTaskStats()
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("stats of run %s: %w", id, err)
		}
		stats[models.TaskStatus(status)] = n
	}
	return stats, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(r rowScanner) (*models.RunSummary, error) {
	var (
		s                            models.RunSummary
		startedAt, outcome           string
		durationMs                   int64
		branch, base, gitErr, runErr sql.NullString
	)
	err := r.Scan(&s.RunID, &startedAt, &durationMs, &s.Iterations, &branch, &base,
		&outcome, &gitErr, &s.Success, &s.Stopped, &runErr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan run: %w", err)
	}

	s.StartedAt, err = parseTime(startedAt)
	if err != nil {
		return nil, fmt.Errorf("parse started_at of run %s: %w", s.RunID, err)
	}
	s.Duration = time.Duration(durationMs) * time.Millisecond
	s.Branch = branch.String
	s.BaseBranch = base.String
	s.GitOutcome = models.GitOutcome(outcome)
	s.GitError = gitErr.String
	s.Error = runErr.String
	return &s, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
