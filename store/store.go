// Package store persists detection results in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/cwbudde/algo-matchfilter/detect"
	"github.com/cwbudde/algo-matchfilter/template"
	"github.com/cwbudde/algo-matchfilter/waveform"
)

const schema = `
CREATE TABLE IF NOT EXISTS families (
	name        TEXT PRIMARY KEY,
	lowcut      REAL NOT NULL,
	highcut     REAL NOT NULL,
	filt_order  INTEGER NOT NULL,
	samp_rate   REAL NOT NULL,
	process_len INTEGER NOT NULL,
	channels    INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS detections (
	id              TEXT PRIMARY KEY,
	template_name   TEXT NOT NULL REFERENCES families(name),
	detect_time     INTEGER NOT NULL,
	no_chans        INTEGER NOT NULL,
	detect_val      REAL NOT NULL,
	threshold       REAL NOT NULL,
	threshold_type  TEXT NOT NULL,
	threshold_input REAL NOT NULL,
	channels        TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_detections_template ON detections(template_name, detect_time);
`

// Store is a detection sink backed by SQLite.
type Store struct {
	db *sql.DB
}

// FamilyRecord summarizes one stored family.
type FamilyRecord struct {
	Name       string
	Processing template.Processing
	Channels   int
	Detections int
}

// Open opens or creates the database at dsn and ensures the schema exists.
// ":memory:" gives a private in-memory database.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", dsn, err)
	}

	// SQLite serializes writers anyway; one connection also keeps an
	// in-memory database alive and shared.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: enable foreign keys: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveParty writes every family of party, including families without
// detections, in one transaction. Saving the same detection twice keeps a
// single row.
func (s *Store) SaveParty(ctx context.Context, party *detect.Party) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	famStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO families (name, lowcut, highcut, filt_order, samp_rate, process_len, channels)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			lowcut = excluded.lowcut, highcut = excluded.highcut, filt_order = excluded.filt_order,
			samp_rate = excluded.samp_rate, process_len = excluded.process_len, channels = excluded.channels`)
	if err != nil {
		return fmt.Errorf("store: prepare families: %w", err)
	}
	defer famStmt.Close()

	detStmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO detections
			(id, template_name, detect_time, no_chans, detect_val, threshold, threshold_type, threshold_input, channels)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("store: prepare detections: %w", err)
	}
	defer detStmt.Close()

	for _, f := range party.Families() {
		p := f.Template.Processing
		if _, err := famStmt.ExecContext(ctx, f.Name(), p.LowCut, p.HighCut, p.FilterOrder,
			p.SampleRate, int64(p.ProcessLength), len(f.Template.Stream)); err != nil {
			return fmt.Errorf("store: save family %s: %w", f.Name(), err)
		}

		for _, d := range f.Detections {
			if _, err := detStmt.ExecContext(ctx, d.ID(), d.TemplateName, d.DetectTime.UnixNano(),
				d.NoChans, d.DetectVal, d.Threshold, string(d.ThresholdType), d.ThresholdInput,
				joinChannels(d.Channels)); err != nil {
				return fmt.Errorf("store: save detection %s: %w", d.ID(), err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}

	return nil
}

// Families lists stored families by name with their detection counts.
func (s *Store) Families(ctx context.Context) ([]FamilyRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT f.name, f.lowcut, f.highcut, f.filt_order, f.samp_rate, f.process_len, f.channels,
		       COUNT(d.id)
		FROM families f LEFT JOIN detections d ON d.template_name = f.name
		GROUP BY f.name
		ORDER BY f.name`)
	if err != nil {
		return nil, fmt.Errorf("store: query families: %w", err)
	}
	defer rows.Close()

	var out []FamilyRecord

	for rows.Next() {
		var (
			r   FamilyRecord
			dur int64
		)

		if err := rows.Scan(&r.Name, &r.Processing.LowCut, &r.Processing.HighCut, &r.Processing.FilterOrder,
			&r.Processing.SampleRate, &dur, &r.Channels, &r.Detections); err != nil {
			return nil, fmt.Errorf("store: scan family: %w", err)
		}

		r.Processing.ProcessLength = time.Duration(dur)
		out = append(out, r)
	}

	return out, rows.Err()
}

// Detections returns the stored detections of one template ordered by time.
func (s *Store) Detections(ctx context.Context, templateName string) ([]*detect.Detection, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT template_name, detect_time, no_chans, detect_val, threshold, threshold_type, threshold_input, channels
		FROM detections
		WHERE template_name = ?
		ORDER BY detect_time`, templateName)
	if err != nil {
		return nil, fmt.Errorf("store: query detections: %w", err)
	}
	defer rows.Close()

	var out []*detect.Detection

	for rows.Next() {
		var (
			d        detect.Detection
			ns       int64
			typ      string
			channels string
		)

		if err := rows.Scan(&d.TemplateName, &ns, &d.NoChans, &d.DetectVal, &d.Threshold, &typ,
			&d.ThresholdInput, &channels); err != nil {
			return nil, fmt.Errorf("store: scan detection: %w", err)
		}

		d.DetectTime = time.Unix(0, ns).UTC()
		d.ThresholdType = detect.ThresholdType(typ)
		d.Channels = splitChannels(channels)
		out = append(out, &d)
	}

	return out, rows.Err()
}

func joinChannels(ids []waveform.ChannelID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}

	return strings.Join(parts, ",")
}

func splitChannels(s string) []waveform.ChannelID {
	if s == "" {
		return nil
	}

	parts := strings.Split(s, ",")
	out := make([]waveform.ChannelID, len(parts))

	for i, p := range parts {
		out[i] = waveform.ParseChannelID(p)
	}

	return out
}
