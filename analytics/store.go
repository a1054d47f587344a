package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite"
)

// tsLayout is how event times are stored: UTC, fixed width, so string
// comparison orders correctly and substr(ts, 1, 10) is the day.
const tsLayout = "2006-01-02 15:04:05"

func formatTS(t time.Time) string {
	return t.UTC().Format(tsLayout)
}

// Store provides database operations for analytics.
type Store struct {
	db *sql.DB
}

// NewStore creates a new analytics store.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open analytics db: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;"); err != nil {
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS visits (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			slug TEXT NOT NULL,
			kind TEXT NOT NULL,
			visitor_id TEXT NOT NULL,
			ip_hash TEXT NOT NULL,
			browser TEXT NOT NULL,
			os TEXT NOT NULL,
			device TEXT NOT NULL,
			referrer TEXT NOT NULL DEFAULT '',
			timestamp TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS bot_visits (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			bot_name TEXT NOT NULL,
			ip_hash TEXT NOT NULL,
			user_agent TEXT NOT NULL,
			slug TEXT NOT NULL,
			timestamp TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_visits_timestamp ON visits(timestamp);
		CREATE INDEX IF NOT EXISTS idx_visits_slug ON visits(slug);
		CREATE INDEX IF NOT EXISTS idx_bot_visits_timestamp ON bot_visits(timestamp);

		CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	return err
}

// currentSchemaVersion is the latest schema version. Increment when adding migrations.
const currentSchemaVersion = 1

// migrate records the schema version so later releases can upgrade in place.
func (s *Store) migrate() error {
	verStr, err := s.GetSetting("schema_version")
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	version := 0
	if verStr != "" {
		version, err = strconv.Atoi(verStr)
		if err != nil {
			return fmt.Errorf("parse schema version %q: %w", verStr, err)
		}
	}
	if version < currentSchemaVersion {
		version = currentSchemaVersion
	}
	return s.SetSetting("schema_version", strconv.Itoa(version))
}

// GetSetting retrieves a setting value by key. Returns empty string if not found.
func (s *Store) GetSetting(key string) (string, error) {
	var val string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&val)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return val, err
}

// SetSetting stores a setting value by key (upsert).
func (s *Store) SetSetting(key, value string) error {
	_, err := s.db.Exec(`INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

// SaveVisit stores a human story event.
func (s *Store) SaveVisit(ctx context.Context, v *Visit) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO visits
		(slug, kind, visitor_id, ip_hash, browser, os, device, referrer, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.Slug, string(v.Kind), v.VisitorID, v.IPHash, v.Browser, v.OS, v.Device, v.Referrer, formatTS(v.Timestamp))
	return err
}

// SaveBotVisit stores a crawler event.
func (s *Store) SaveBotVisit(ctx context.Context, bv *BotVisit) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO bot_visits (bot_name, ip_hash, user_agent, slug, timestamp)
		VALUES (?, ?, ?, ?, ?)`,
		bv.BotName, bv.IPHash, bv.UserAgent, bv.Slug, formatTS(bv.Timestamp))
	return err
}

func (s *Store) dimension(ctx context.Context, column string, from, to time.Time) ([]DimensionStat, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+column+`, COUNT(*) FROM visits
		WHERE kind = 'view' AND timestamp >= ? AND timestamp < ?
		GROUP BY `+column+` ORDER BY COUNT(*) DESC, `+column+` LIMIT 10`, formatTS(from), formatTS(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := []DimensionStat{}
	for rows.Next() {
		var d DimensionStat
		if err := rows.Scan(&d.Name, &d.Count); err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	return result, rows.Err()
}

// GetStats returns aggregated statistics for [from, to). Each aggregate runs
// as its own query; the first failure cancels the rest.
func (s *Store) GetStats(ctx context.Context, from, to time.Time) (*Stats, error) {
	stats := &Stats{
		Period:        from.Format("2006-01-02") + " to " + to.Format("2006-01-02"),
		TopSites:      []SiteStat{},
		DeviceStats:   []DimensionStat{},
		ReferrerStats: []DimensionStat{},
		DailyViews:    []DailyView{},
	}
	f, t := formatTS(from), formatTS(to)

	// Every goroutine writes a distinct field of stats.
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := s.db.QueryRowContext(ctx, `SELECT
			COALESCE(SUM(kind = 'view'), 0), COALESCE(SUM(kind = 'download'), 0)
			FROM visits WHERE timestamp >= ? AND timestamp < ?`, f, t).
			Scan(&stats.TotalViews, &stats.TotalDownloads)
		if err != nil {
			return fmt.Errorf("count events: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		err := s.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT visitor_id) FROM visits
			WHERE timestamp >= ? AND timestamp < ?`, f, t).Scan(&stats.UniqueVisitors)
		if err != nil {
			return fmt.Errorf("count unique visitors: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bot_visits
			WHERE timestamp >= ? AND timestamp < ?`, f, t).Scan(&stats.BotVisits)
		if err != nil {
			return fmt.Errorf("count bot visits: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		rows, err := s.db.QueryContext(ctx, `SELECT slug,
			SUM(kind = 'view'), SUM(kind = 'download')
			FROM visits WHERE timestamp >= ? AND timestamp < ?
			GROUP BY slug ORDER BY SUM(kind = 'view') DESC, slug LIMIT 20`, f, t)
		if err != nil {
			return fmt.Errorf("top sites: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var st SiteStat
			if err := rows.Scan(&st.Slug, &st.Views, &st.Downloads); err != nil {
				return fmt.Errorf("top sites: %w", err)
			}
			stats.TopSites = append(stats.TopSites, st)
		}
		return rows.Err()
	})
	g.Go(func() error {
		devices, err := s.dimension(ctx, "device", from, to)
		if err != nil {
			return fmt.Errorf("device stats: %w", err)
		}
		stats.DeviceStats = devices
		return nil
	})
	g.Go(func() error {
		refs, err := s.dimension(ctx, "referrer", from, to)
		if err != nil {
			return fmt.Errorf("referrer stats: %w", err)
		}
		stats.ReferrerStats = refs
		return nil
	})
	g.Go(func() error {
		rows, err := s.db.QueryContext(ctx, `SELECT substr(timestamp, 1, 10) AS day, COUNT(*)
			FROM visits WHERE kind = 'view' AND timestamp >= ? AND timestamp < ?
			GROUP BY day ORDER BY day`, f, t)
		if err != nil {
			return fmt.Errorf("daily views: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var d DailyView
			if err := rows.Scan(&d.Date, &d.Views); err != nil {
				return fmt.Errorf("daily views: %w", err)
			}
			stats.DailyViews = append(stats.DailyViews, d)
		}
		return rows.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return stats, nil
}

// CleanupOldVisits removes visits and bot visits older than the retention period.
func (s *Store) CleanupOldVisits(retentionDays int) error {
	cutoff := formatTS(time.Now().AddDate(0, 0, -retentionDays))
	if _, err := s.db.Exec(`DELETE FROM visits WHERE timestamp < ?`, cutoff); err != nil {
		return fmt.Errorf("cleanup visits: %w", err)
	}
	if _, err := s.db.Exec(`DELETE FROM bot_visits WHERE timestamp < ?`, cutoff); err != nil {
		return fmt.Errorf("cleanup bot_visits: %w", err)
	}
	return nil
}

// StartCleanupScheduler runs periodic cleanup of old data. Returns a stop function.
func (s *Store) StartCleanupScheduler(retentionDays int, interval time.Duration) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ticker.C:
				if err := s.CleanupOldVisits(retentionDays); err != nil {
					log.Printf("analytics: cleanup: %v", err)
				}
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()

	return func() { close(done) }
}
