package backup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yukikurage/relief-management-api/internal/constants"
	apierrors "github.com/yukikurage/relief-management-api/internal/errors"
	"gorm.io/gorm"
)

var (
	ErrNotSQLFile   = apierrors.Validation(constants.ImportFormField, "only .sql files can be imported")
	ErrEmptyDump    = apierrors.Validation(constants.ImportFormField, "the uploaded file is empty")
	ErrDumpTooLarge = apierrors.Validation(constants.ImportFormField, "the uploaded file exceeds the import size limit")
	ErrImportBusy   = apierrors.New(apierrors.KindBusy, "another import is in progress")
)

// ExecError reports the dump line whose statement the store rejected.
type ExecError struct {
	Line int
	Err  error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *ExecError) Unwrap() error {
	return e.Err
}

// ImportResult describes a completed import.
type ImportResult struct {
	SafetySnapshot SnapshotInfo
	Statements     int
	Tables         []string
}

// Importer replaces the store contents with a dump.
type Importer struct {
	db       *gorm.DB
	exporter *Exporter
	store    SnapshotStore
	lock     ImportLock
	gate     *Gate
	maxBytes int64
	required []string
	now      func() time.Time
	log      *logrus.Logger
}

// NewImporter builds an Importer. Dumps that do not create every table in
// required are rejected during validation.
func NewImporter(db *gorm.DB, exporter *Exporter, store SnapshotStore, lock ImportLock, gate *Gate, maxBytes int64, required []string, log *logrus.Logger) *Importer {
	if maxBytes <= 0 {
		maxBytes = constants.DefaultMaxImportBytes
	}
	return &Importer{
		db:       db,
		exporter: exporter,
		store:    store,
		lock:     lock,
		gate:     gate,
		maxBytes: maxBytes,
		required: required,
		now:      time.Now,
		log:      log,
	}
}

// Import validates the dump named filename, then with the store held
// exclusively writes a safety snapshot of the current state and executes
// the dump. Nothing touches the store when validation or the snapshot fails.
func (i *Importer) Import(ctx context.Context, filename string, r io.Reader) (*ImportResult, error) {
	if !strings.EqualFold(filepath.Ext(filename), constants.DumpFileExtension) {
		return nil, ErrNotSQLFile
	}

	data, err := io.ReadAll(io.LimitReader(r, i.maxBytes+1))
	if err != nil {
		return nil, apierrors.Wrap(apierrors.KindValidation, "failed to read the uploaded file", err)
	}
	if int64(len(data)) > i.maxBytes {
		return nil, ErrDumpTooLarge
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyDump
	}

	dump, err := Parse(bytes.NewReader(data), i.exporter.Dialect(), i.required...)
	if err != nil {
		var syntaxErr *SyntaxError
		if errors.As(err, &syntaxErr) {
			return nil, &apierrors.Error{
				Kind:    apierrors.KindValidation,
				Message: "invalid dump: " + syntaxErr.Error(),
				Fields:  map[string]string{constants.ImportFormField: syntaxErr.Error()},
				Err:     syntaxErr,
			}
		}
		return nil, apierrors.Wrap(apierrors.KindValidation, "failed to read the uploaded file", err)
	}

	release, ok, err := i.lock.TryAcquire(ctx)
	if err != nil {
		return nil, apierrors.Wrap(apierrors.KindInternal, "failed to acquire the import lock", err)
	}
	if !ok {
		return nil, ErrImportBusy
	}
	defer release()

	if i.gate != nil {
		i.gate.Close()
		defer i.gate.Open()
	}

	logger := i.log.WithField("file", filename)

	name := "safety_backup_" + i.now().Format(constants.SnapshotTimestampLayout) + constants.DumpFileExtension
	snapshot, err := i.store.Save(ctx, name, func(w io.Writer) error {
		_, err := i.exporter.Export(ctx, w)
		return err
	})
	if err != nil {
		logger.WithError(err).Error("safety snapshot failed, import aborted")
		return nil, apierrors.Wrap(apierrors.KindSnapshotWrite, "the safety snapshot could not be written; the import was not started", err)
	}
	logger.WithField("snapshot", snapshot.Location).Info("safety snapshot written")

	if err := i.execute(ctx, dump); err != nil {
		logger.WithError(err).WithField("snapshot", snapshot.Name).Error("import failed")
		msg := "import failed"
		var execErr *ExecError
		if errors.As(err, &execErr) {
			msg = fmt.Sprintf("import failed at line %d", execErr.Line)
		}
		return nil, &apierrors.Error{
			Kind:    apierrors.KindStore,
			Message: msg + "; restore from safety snapshot " + snapshot.Name + " if needed",
			Err:     err,
		}
	}

	result := &ImportResult{
		SafetySnapshot: snapshot,
		Statements:     len(dump.Statements),
		Tables:         dump.Tables(),
	}
	logger.WithFields(logrus.Fields{
		"statements": result.Statements,
		"tables":     len(result.Tables),
	}).Info("database imported")
	return result, nil
}

// execute runs every statement in one transaction. Statements bypass gorm's
// statement builder so literal text such as '?' reaches the engine as is.
func (i *Importer) execute(ctx context.Context, dump *Dump) error {
	return i.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		conn := tx.Statement.ConnPool
		for _, st := range dump.Statements {
			if _, err := conn.ExecContext(ctx, st.SQL); err != nil {
				return &ExecError{Line: st.Line, Err: err}
			}
		}
		return nil
	})
}
