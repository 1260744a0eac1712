package jsonfile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/mamadbah2/warehouse/internal/config"
	"github.com/mamadbah2/warehouse/internal/domain/models"
)

// Store persists each ledger table as an indented JSON document in its own file.
type Store struct {
	stockPath  string
	reportPath string
	totalPath  string
	logger     *zap.Logger
}

// NewStore builds a file store rooted at the configured data directory.
func NewStore(cfg config.StorageConfig, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", cfg.DataDir, err)
	}

	return &Store{
		stockPath:  filepath.Join(cfg.DataDir, cfg.WarehouseFile),
		reportPath: filepath.Join(cfg.DataDir, cfg.ReportFile),
		totalPath:  filepath.Join(cfg.DataDir, cfg.TotalTakenFile),
		logger:     logger,
	}, nil
}

// LoadStock reads the stock table. A missing file yields an empty table.
func (s *Store) LoadStock() (models.StockTable, error) {
	table := models.StockTable{}
	if err := s.load(s.stockPath, &table); err != nil {
		return nil, err
	}
	return table, nil
}

// LoadRemovals reads the removal history.
func (s *Store) LoadRemovals() (models.RemovalReport, error) {
	report := models.RemovalReport{}
	if err := s.load(s.reportPath, &report); err != nil {
		return nil, err
	}
	return report, nil
}

// LoadTotals reads the cumulative removal totals.
func (s *Store) LoadTotals() (models.TotalTaken, error) {
	totals := models.TotalTaken{}
	if err := s.load(s.totalPath, &totals); err != nil {
		return nil, err
	}
	return totals, nil
}

// SaveStock rewrites the stock file.
func (s *Store) SaveStock(table models.StockTable) error {
	return s.save(s.stockPath, table)
}

// SaveRemovals rewrites the removal history file.
func (s *Store) SaveRemovals(report models.RemovalReport) error {
	return s.save(s.reportPath, report)
}

// SaveTotals rewrites the totals file.
func (s *Store) SaveTotals(totals models.TotalTaken) error {
	return s.save(s.totalPath, totals)
}

func (s *Store) load(path string, dst any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Info("data file missing, starting empty", zap.String("path", path))
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}

	return nil
}

// save writes to a temp file in the target directory and renames it over
// the target, so readers only ever see a complete document.
func (s *Store) save(path string, src any) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()

	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "    ")
	if err = enc.Encode(src); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}

	s.logger.Debug("data file written", zap.String("path", path))
	return nil
}
