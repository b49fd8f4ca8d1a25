// Package backup dumps the whole store to a line-oriented SQL file and
// restores it, taking a safety snapshot of the current state first.
package backup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yukikurage/relief-management-api/internal/access"
	"github.com/yukikurage/relief-management-api/internal/constants"
	apierrors "github.com/yukikurage/relief-management-api/internal/errors"
	"github.com/yukikurage/relief-management-api/internal/models"
	"gorm.io/gorm"
)

var ErrSnapshotMissing = apierrors.New(apierrors.KindNotFound, "snapshot not found")

// Config is everything the backup service needs from its environment.
type Config struct {
	Store          SnapshotStore
	Lock           ImportLock
	Gate           *Gate
	MaxImportBytes int64
	// RequiredTables must all be created by an imported dump. Defaults to
	// the tables of every model.
	RequiredTables []string
}

// ExportFile is a dump handed back to the caller.
type ExportFile struct {
	Name     string
	Data     []byte
	Snapshot SnapshotInfo
}

// Status describes the live store.
type Status struct {
	Driver string       `json:"driver"`
	Tables []TableCount `json:"tables"`
}

// Service guards the exporter and importer with database permissions.
type Service struct {
	exporter *Exporter
	importer *Importer
	store    SnapshotStore
	now      func() time.Time
	log      *logrus.Logger
}

func NewService(db *gorm.DB, cfg Config, log *logrus.Logger) (*Service, error) {
	dialect, err := DialectFor(db)
	if err != nil {
		return nil, err
	}
	if cfg.Lock == nil {
		cfg.Lock = NewLocalLock()
	}
	if cfg.RequiredTables == nil {
		if cfg.RequiredTables, err = ModelTables(db); err != nil {
			return nil, err
		}
	}

	exporter := NewExporter(db, dialect, log)
	return &Service{
		exporter: exporter,
		importer: NewImporter(db, exporter, cfg.Store, cfg.Lock, cfg.Gate, cfg.MaxImportBytes, cfg.RequiredTables, log),
		store:    cfg.Store,
		now:      time.Now,
		log:      log,
	}, nil
}

// ModelTables returns the table name of every model, as gorm names them for db.
func ModelTables(db *gorm.DB) ([]string, error) {
	all := models.All()
	tables := make([]string, 0, len(all))
	for _, m := range all {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(m); err != nil {
			return nil, fmt.Errorf("resolve table of %T: %w", m, err)
		}
		tables = append(tables, stmt.Schema.Table)
	}
	return tables, nil
}

func authorize(id *access.Identity, action access.Action) error {
	decision := access.Permit(id, action, access.Global(access.ResourceDatabase))
	if decision.Allowed {
		return nil
	}
	if decision.Reason == access.ReasonUnauthenticated {
		return apierrors.New(apierrors.KindUnauthenticated, string(decision.Reason))
	}
	return apierrors.New(apierrors.KindAccessDenied, string(decision.Reason))
}

// Export dumps the store, keeps a copy in the snapshot store and returns it.
func (s *Service) Export(ctx context.Context, id *access.Identity) (*ExportFile, error) {
	if err := authorize(id, access.ActionExport); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if _, err := s.exporter.Export(ctx, &buf); err != nil {
		return nil, apierrors.Store("failed to export the database", err)
	}
	data := buf.Bytes()

	name := "backup_" + s.now().Format(constants.SnapshotTimestampLayout) + constants.DumpFileExtension
	snapshot, err := s.store.Save(ctx, name, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
	if err != nil {
		return nil, apierrors.Wrap(apierrors.KindSnapshotWrite, "failed to store the export", err)
	}

	return &ExportFile{Name: snapshot.Name, Data: data, Snapshot: snapshot}, nil
}

// Import replaces the store contents with the dump read from r.
func (s *Service) Import(ctx context.Context, id *access.Identity, filename string, r io.Reader) (*ImportResult, error) {
	if err := authorize(id, access.ActionImport); err != nil {
		return nil, err
	}
	return s.importer.Import(ctx, filename, r)
}

func (s *Service) Snapshots(ctx context.Context, id *access.Identity) ([]SnapshotInfo, error) {
	if err := authorize(id, access.ActionExport); err != nil {
		return nil, err
	}
	list, err := s.store.List(ctx)
	if err != nil {
		return nil, apierrors.Wrap(apierrors.KindInternal, "failed to list snapshots", err)
	}
	return list, nil
}

// OpenSnapshot returns a stored dump for download. The caller closes it.
func (s *Service) OpenSnapshot(ctx context.Context, id *access.Identity, name string) (io.ReadCloser, error) {
	if err := authorize(id, access.ActionExport); err != nil {
		return nil, err
	}
	rc, err := s.store.Open(ctx, name)
	switch {
	case errors.Is(err, ErrSnapshotNotFound), errors.Is(err, ErrInvalidSnapshotName):
		return nil, ErrSnapshotMissing
	case err != nil:
		return nil, apierrors.Wrap(apierrors.KindInternal, "failed to open snapshot", err)
	}
	return rc, nil
}

func (s *Service) Status(ctx context.Context, id *access.Identity) (*Status, error) {
	if err := authorize(id, access.ActionExport); err != nil {
		return nil, err
	}
	counts, err := s.exporter.Counts(ctx)
	if err != nil {
		return nil, apierrors.Store("failed to read table counts", err)
	}
	return &Status{Driver: s.exporter.Dialect().Name(), Tables: counts}, nil
}
