// Package fs persists run reports under the state directory.
package fs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/outflow-sh/outflow/internal/domain"
	"github.com/outflow-sh/outflow/pkg/log"
)

const lastRunName = "last_run.json"

// RunReport is the archived record of one bulk run.
type RunReport struct {
	RunID      string         `json:"runId"`
	Kind       string         `json:"kind"`
	StartedAt  time.Time      `json:"startedAt"`
	FinishedAt time.Time      `json:"finishedAt"`
	Summary    domain.Summary `json:"summary"`
	Ledger     domain.Ledger  `json:"ledger"`
}

// ReportStore archives run reports as JSON files. Each run gets its own file
// and the newest is mirrored to last_run.json for cheap retrieval.
type ReportStore struct {
	dir string
	log log.Logger
}

// NewReportStore creates the store rooted at dir.
func NewReportStore(dir string, logger log.Logger) *ReportStore {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &ReportStore{dir: dir, log: logger}
}

// Save archives the report. Writes go to a temp file first and are renamed
// into place so readers never observe a torn report.
func (s *ReportStore) Save(r RunReport) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("fs: create report dir: %w", err)
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("fs: encode report: %w", err)
	}

	name := fmt.Sprintf("run_%s_%s.json", r.StartedAt.UTC().Format("20060102T150405"), r.RunID)
	if err := s.writeAtomic(name, data); err != nil {
		return err
	}
	if err := s.writeAtomic(lastRunName, data); err != nil {
		return err
	}
	s.log.Info("run report archived",
		log.String("runId", r.RunID),
		log.Int("total", r.Summary.Total))
	return nil
}

func (s *ReportStore) writeAtomic(name string, data []byte) error {
	dst := filepath.Join(s.dir, name)
	tmp, err := os.CreateTemp(s.dir, name+".tmp*")
	if err != nil {
		return fmt.Errorf("fs: create temp report: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("fs: write report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("fs: close report: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("fs: publish report: %w", err)
	}
	return nil
}

// LoadLast returns the most recently archived report. os.ErrNotExist when no
// run has completed yet.
func (s *ReportStore) LoadLast() (RunReport, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, lastRunName))
	if err != nil {
		return RunReport{}, err
	}
	var r RunReport
	if err := json.Unmarshal(data, &r); err != nil {
		return RunReport{}, fmt.Errorf("fs: decode report: %w", err)
	}
	return r, nil
}
