package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/robfig/cron/v3"
)

// Maintain runs the dialect's housekeeping statements once.
func (db *DB) Maintain(ctx context.Context) error {
	var stmts []string
	switch db.dialect {
	case SQLite:
		stmts = []string{`PRAGMA wal_checkpoint(TRUNCATE)`, `PRAGMA optimize`}
	case Postgres:
		stmts = []string{`ANALYZE blocks`, `ANALYZE attachments`, `ANALYZE image_dimensions`}
	case MySQL:
		stmts = []string{`ANALYZE TABLE blocks, attachments, image_dimensions`}
	}
	for _, stmt := range stmts {
		rows, err := db.conn.QueryContext(ctx, stmt)
		if err != nil {
			return fmt.Errorf("maintenance %q: %w", stmt, err)
		}
		rows.Close()
	}
	return nil
}

// Maintenance runs Maintain on a cron schedule.
type Maintenance struct {
	db     *DB
	logger *log.Logger
	sched  *cron.Cron
}

// StartMaintenance schedules Maintain with a standard cron expression or
// descriptor such as "@hourly". An empty schedule disables maintenance.
func StartMaintenance(db *DB, schedule string, logger *log.Logger) (*Maintenance, error) {
	m := &Maintenance{db: db, logger: logger}
	if schedule == "" {
		return m, nil
	}
	c := cron.New()
	if _, err := c.AddFunc(schedule, m.run); err != nil {
		return nil, fmt.Errorf("invalid maintenance schedule %q: %w", schedule, err)
	}
	c.Start()
	m.sched = c
	logger.Info("maintenance scheduled", "schedule", schedule, "dialect", db.dialect)
	return m, nil
}

func (m *Maintenance) run() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	start := time.Now()
	if err := m.db.Maintain(ctx); err != nil {
		m.logger.Error("maintenance failed", "err", err)
		return
	}
	m.logger.Debug("maintenance done", "took", time.Since(start))
}

// Stop cancels the schedule and waits for a running pass to finish.
func (m *Maintenance) Stop() {
	if m.sched == nil {
		return
	}
	<-m.sched.Stop().Done()
	m.sched = nil
}
