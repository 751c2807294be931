// Package store persists the per-game manifest and raw team-period rows as
// append-only CSV files. Both survive interruption at any point: a crash
// loses at most the unflushed batch, and the composite-key dedup set makes
// reruns incapable of appending duplicate rows.
package store

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"nba_priors/mining/internal/metrics"
	"nba_priors/mining/internal/models"
)

var manifestHeader = []string{"game_id", "status", "reason", "processed_at_utc"}
var rawHeader = []string{"game_id", "team", "game_state", "team_state", "pace", "ortg", "poss", "fta_rate"}

// Store is single-writer, single-reader within one process run; concurrent
// runs are excluded by the advisory lock.
type Store struct {
	manifestPath string
	rawPath      string
	batchSize    int

	entries []models.ManifestEntry
	seen    map[models.RowKey]struct{}

	pendingRows    []models.TeamPeriodRow
	pendingEntries []models.ManifestEntry
}

// Open loads the current manifest and raw row sets. Missing files are treated
// as empty stores.
func Open(manifestPath, rawPath string, batchSize int) (*Store, error) {
	s := &Store{
		manifestPath: manifestPath,
		rawPath:      rawPath,
		batchSize:    batchSize,
		seen:         make(map[models.RowKey]struct{}),
	}

	entries, err := loadManifest(manifestPath)
	if err != nil {
		return nil, err
	}
	s.entries = entries

	rows, err := LoadRows(rawPath)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		s.seen[r.Key()] = struct{}{}
	}

	log.Info().
		Int("manifest_entries", len(entries)).
		Int("raw_rows", len(rows)).
		Msg("Store loaded")

	return s, nil
}

// AlreadyProcessed returns the set of game ids to skip. Under normal mode any
// manifest entry counts; under retry-errors mode only games with a settled
// (DONE or SKIP_MEDIUM) entry are excluded, so prior errors get retried.
func (s *Store) AlreadyProcessed(retryErrors bool) map[string]struct{} {
	processed := make(map[string]struct{}, len(s.entries))
	for _, e := range s.entries {
		if retryErrors && !e.Processed() {
			continue
		}
		processed[e.GameID] = struct{}{}
	}
	return processed
}

// StageGame stages one game's outcome for the next flush. Rows whose
// composite key was already appended (this run or a previous one) are
// dropped; the number of rows actually staged is returned.
func (s *Store) StageGame(entry models.ManifestEntry, rows []models.TeamPeriodRow) int {
	added := 0
	for _, r := range rows {
		key := r.Key()
		if _, dup := s.seen[key]; dup {
			continue
		}
		s.seen[key] = struct{}{}
		s.pendingRows = append(s.pendingRows, r)
		added++
	}
	s.pendingEntries = append(s.pendingEntries, entry)
	return added
}

// Pending returns the number of staged manifest entries.
func (s *Store) Pending() int {
	return len(s.pendingEntries)
}

// FlushIfFull flushes when the staged batch has reached the batch size.
func (s *Store) FlushIfFull() (bool, error) {
	if len(s.pendingEntries) < s.batchSize {
		return false, nil
	}
	return true, s.Flush()
}

// Flush appends the staged batch. Raw rows are written before manifest
// entries so a crash between the two leaves the manifest behind the raw
// store; the rerun then reprocesses the game and the dedup set swallows the
// already-written rows.
func (s *Store) Flush() error {
	if len(s.pendingEntries) == 0 && len(s.pendingRows) == 0 {
		return nil
	}

	if len(s.pendingRows) > 0 {
		records := make([][]string, 0, len(s.pendingRows))
		for _, r := range s.pendingRows {
			records = append(records, []string{
				r.GameID,
				r.Team,
				string(r.GameState),
				string(r.TeamState),
				formatFloat(r.Pace),
				formatFloat(r.Ortg),
				formatFloat(r.Poss),
				formatFloat(r.FTARate),
			})
		}
		if err := appendCSV(s.rawPath, rawHeader, records); err != nil {
			return fmt.Errorf("flush raw rows: %w", err)
		}
	}

	if len(s.pendingEntries) > 0 {
		records := make([][]string, 0, len(s.pendingEntries))
		for _, e := range s.pendingEntries {
			records = append(records, []string{
				e.GameID,
				string(e.Status),
				e.Reason,
				e.ProcessedAt.UTC().Format(time.RFC3339),
			})
		}
		if err := appendCSV(s.manifestPath, manifestHeader, records); err != nil {
			return fmt.Errorf("flush manifest: %w", err)
		}
		s.entries = append(s.entries, s.pendingEntries...)
	}

	log.Info().
		Int("rows", len(s.pendingRows)).
		Int("entries", len(s.pendingEntries)).
		Msg("Batch flushed")
	metrics.BatchFlushesTotal.Inc()

	s.pendingRows = nil
	s.pendingEntries = nil
	return nil
}

// LoadRows reads the full raw store. A missing file yields an empty set.
func LoadRows(path string) ([]models.TeamPeriodRow, error) {
	records, err := readCSV(path)
	if err != nil {
		return nil, fmt.Errorf("load raw store: %w", err)
	}

	var rows []models.TeamPeriodRow
	for _, rec := range records {
		if len(rec) < 8 || rec[0] == "game_id" {
			continue
		}
		rows = append(rows, models.TeamPeriodRow{
			GameID:    rec[0],
			Team:      rec[1],
			GameState: models.GameState(rec[2]),
			TeamState: models.TeamState(rec[3]),
			Pace:      parseFloat(rec[4]),
			Ortg:      parseFloat(rec[5]),
			Poss:      parseFloat(rec[6]),
			FTARate:   parseFloat(rec[7]),
		})
	}
	return rows, nil
}

func loadManifest(path string) ([]models.ManifestEntry, error) {
	records, err := readCSV(path)
	if err != nil {
		return nil, fmt.Errorf("load manifest: %w", err)
	}

	var entries []models.ManifestEntry
	for _, rec := range records {
		if len(rec) < 4 || rec[0] == "game_id" {
			continue
		}
		// Unparseable timestamps keep the entry; only the time is lost.
		ts, _ := time.Parse(time.RFC3339, rec[3])
		entries = append(entries, models.ManifestEntry{
			GameID:      rec[0],
			Status:      models.Status(rec[1]),
			Reason:      rec[2],
			ProcessedAt: ts,
		})
	}
	return entries, nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	return r.ReadAll()
}

func appendCSV(path string, header []string, records [][]string) error {
	_, statErr := os.Stat(path)
	writeHeader := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write(header); err != nil {
			return err
		}
	}
	if err := w.WriteAll(records); err != nil {
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Sync()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
