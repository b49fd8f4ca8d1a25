package backup

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/relief-management-api/internal/access"
	apierrors "github.com/yukikurage/relief-management-api/internal/errors"
	"github.com/yukikurage/relief-management-api/internal/models"
	"github.com/yukikurage/relief-management-api/internal/testutil"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// blockingStore holds Save until proceed is closed.
type blockingStore struct {
	SnapshotStore
	entered chan struct{}
	proceed chan struct{}
}

func (s *blockingStore) Save(ctx context.Context, name string, write func(io.Writer) error) (SnapshotInfo, error) {
	close(s.entered)
	<-s.proceed
	return s.SnapshotStore.Save(ctx, name, write)
}

type failingStore struct {
	SnapshotStore
}

func (failingStore) Save(ctx context.Context, name string, write func(io.Writer) error) (SnapshotInfo, error) {
	return SnapshotInfo{}, errors.New("disk full")
}

type BackupTestSuite struct {
	suite.Suite
	db      *gorm.DB
	store   *LocalSnapshotStore
	lock    *LocalLock
	gate    *Gate
	service *Service
	admin   *access.Identity
	ctx     context.Context
}

func (s *BackupTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.db = testutil.NewDB(s.T())

	store, err := NewLocalSnapshotStore(s.T().TempDir())
	s.Require().NoError(err)
	s.store = store
	s.lock = NewLocalLock()
	s.gate = NewGate()
	s.service = s.newService(s.store)

	s.admin = &access.Identity{UserID: 1, Username: "admin", Role: models.RoleSuperAdmin}
	s.seed()
}

func (s *BackupTestSuite) newService(store SnapshotStore) *Service {
	svc, err := NewService(s.db, Config{Store: store, Lock: s.lock, Gate: s.gate, MaxImportBytes: 1 << 20}, testutil.Logger())
	s.Require().NoError(err)
	fixed := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }
	svc.importer.now = svc.now
	return svc
}

func (s *BackupTestSuite) seed() {
	t := s.T()
	testutil.CreateUser(t, s.db, "admin", models.RoleSuperAdmin)
	mumbai := testutil.CreateArea(t, s.db, "Mumbai District")
	pune := testutil.CreateArea(t, s.db, "Pune District")
	food := testutil.CreateCategory(t, s.db, "Food")
	rice := testutil.CreateProduct(t, s.db, food.ID, "Rice", "kg")
	testutil.CreateAreaAdmin(t, s.db, "mumbai_admin", mumbai.ID)

	testutil.CreateNeed(t, s.db, mumbai.ID, rice.ID, 100, models.PriorityUrgent)
	tricky := testutil.CreateNeed(t, s.db, pune.ID, rice.ID, 40, models.PriorityLow)
	s.Require().NoError(s.db.Model(tricky).Update("notes", "line one\nline two; it's 'quoted' -- not a comment ?").Error)

	dropped := testutil.CreateNeed(t, s.db, pune.ID, rice.ID, 5, models.PriorityMedium)
	s.Require().NoError(s.db.Delete(dropped).Error)

	s.Require().NoError(s.db.Create(&models.ContactMessage{
		Name:    "Asha",
		Email:   "asha@example.com",
		Subject: "Volunteering",
		Message: "Can I help\r\nthis weekend?",
		Status:  models.ContactStatusNew,
	}).Error)
}

func (s *BackupTestSuite) export() []byte {
	var buf bytes.Buffer
	_, err := s.service.exporter.Export(s.ctx, &buf)
	s.Require().NoError(err)
	return buf.Bytes()
}

func (s *BackupTestSuite) wipe() {
	all := models.All()
	for i := len(all) - 1; i >= 0; i-- {
		s.Require().NoError(s.db.Migrator().DropTable(all[i]))
	}
}

func (s *BackupTestSuite) TestExport_Deterministic() {
	first := s.export()
	second := s.export()
	s.Equal(string(first), string(second))

	lines := strings.Split(strings.TrimSuffix(string(first), "\n"), "\n")
	s.Equal(Header("sqlite"), lines[0])
	for _, table := range []string{"users", "areas", "categories", "products", "area_assignments", "needs", "contact_messages"} {
		s.Contains(string(first), "CREATE TABLE `"+table+"`")
	}

	// Parents are created before the tables that reference them.
	s.Less(strings.Index(string(first), "CREATE TABLE `areas`"), strings.Index(string(first), "CREATE TABLE `needs`"))
	s.Less(strings.Index(string(first), "CREATE TABLE `categories`"), strings.Index(string(first), "CREATE TABLE `products`"))

	_, err := Parse(bytes.NewReader(first), sqliteDialect{})
	s.NoError(err)
}

func (s *BackupTestSuite) TestExport_StoresCopy() {
	file, err := s.service.Export(s.ctx, s.admin)
	s.Require().NoError(err)
	s.Equal("backup_20260301_093000.sql", file.Name)

	rc, err := s.service.OpenSnapshot(s.ctx, s.admin, file.Name)
	s.Require().NoError(err)
	defer rc.Close()
	stored, err := io.ReadAll(rc)
	s.Require().NoError(err)
	s.Equal(file.Data, stored)
}

func (s *BackupTestSuite) TestExport_RequiresSuperAdmin() {
	areaID := uint64(1)
	staff := &access.Identity{UserID: 2, Role: models.RoleAreaAdmin, AreaID: &areaID, AssignmentID: 1}

	_, err := s.service.Export(s.ctx, staff)
	s.True(apierrors.IsKind(err, apierrors.KindAccessDenied))

	_, err = s.service.Import(s.ctx, nil, "dump.sql", strings.NewReader(""))
	s.True(apierrors.IsKind(err, apierrors.KindUnauthenticated))

	list, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	s.Empty(list)
}

func (s *BackupTestSuite) TestRoundTrip() {
	original := s.export()
	needsBefore := testutil.Count(s.T(), s.db, &models.Need{})

	s.wipe()

	result, err := s.service.Import(s.ctx, s.admin, "restore.sql", bytes.NewReader(original))
	s.Require().NoError(err)
	s.Equal("safety_backup_20260301_093000.sql", result.SafetySnapshot.Name)
	s.Len(result.Tables, len(models.All()))

	s.Equal(string(original), string(s.export()))
	s.Equal(needsBefore, testutil.Count(s.T(), s.db, &models.Need{}))

	var tricky models.Need
	s.Require().NoError(s.db.Where("quantity = ?", 40).First(&tricky).Error)
	s.Equal("line one\nline two; it's 'quoted' -- not a comment ?", tricky.Notes)

	// The counter survives, so the deleted need's id is not reused.
	next := testutil.CreateNeed(s.T(), s.db, tricky.AreaID, tricky.ProductID, 1, models.PriorityLow)
	s.Equal(uint64(4), next.ID)
}

func (s *BackupTestSuite) TestImport_SafetySnapshotIsReimportable() {
	before := s.export()

	replacement := testutil.NewDB(s.T())
	testutil.CreateArea(s.T(), replacement, "Delhi District")
	var other bytes.Buffer
	_, err := NewExporter(replacement, sqliteDialect{}, testutil.Logger()).Export(s.ctx, &other)
	s.Require().NoError(err)

	result, err := s.service.Import(s.ctx, s.admin, "other.sql", bytes.NewReader(other.Bytes()))
	s.Require().NoError(err)
	s.Equal(int64(1), testutil.Count(s.T(), s.db, &models.Area{}))

	rc, err := s.store.Open(s.ctx, result.SafetySnapshot.Name)
	s.Require().NoError(err)
	snapshot, err := io.ReadAll(rc)
	s.Require().NoError(rc.Close())
	s.Require().NoError(err)
	s.Equal(string(before), string(snapshot))

	restored, err := s.service.Import(s.ctx, s.admin, result.SafetySnapshot.Name, bytes.NewReader(snapshot))
	s.Require().NoError(err)
	s.Equal("safety_backup_20260301_093000_1.sql", restored.SafetySnapshot.Name)
	s.Equal(string(before), string(s.export()))

	list, err := s.service.Snapshots(s.ctx, s.admin)
	s.Require().NoError(err)
	s.Len(list, 2)
}

func (s *BackupTestSuite) TestImport_RejectsBeforeTouchingStore() {
	before := s.export()

	tests := []struct {
		name     string
		filename string
		body     string
	}{
		{"wrong extension", "dump.txt", string(before)},
		{"empty file", "dump.sql", "  \n"},
		{"no header", "dump.sql", "DROP TABLE IF EXISTS `needs`;\n"},
		{"smuggled statement", "dump.sql", Header("sqlite") + "\nCREATE TABLE `t` (`id` integer);\nINSERT INTO `t` (`id`) VALUES (1); DELETE FROM `users`;\n"},
		{"too large", "dump.sql", Header("sqlite") + "\n" + strings.Repeat("-- padding\n", 200000)},
		{"drops a table it never recreates", "dump.sql", Header("sqlite") + "\nDROP TABLE IF EXISTS `users`;\nDROP TABLE IF EXISTS `scratch`;\nCREATE TABLE `scratch` (`id` integer);\n"},
		{"partial table set", "dump.sql", Header("sqlite") + "\nDROP TABLE IF EXISTS `areas`;\nCREATE TABLE `areas` (`id` integer PRIMARY KEY, `name` text);\n"},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.service.Import(s.ctx, s.admin, tt.filename, strings.NewReader(tt.body))
			s.Require().Error(err)
			s.True(apierrors.IsKind(err, apierrors.KindValidation), "got %v", err)
		})
	}

	var syntaxErr *SyntaxError
	_, err := s.service.Import(s.ctx, s.admin, "dump.sql", strings.NewReader("SELECT 1;\n"))
	s.True(errors.As(err, &syntaxErr))

	list, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	s.Empty(list, "no safety snapshot for a rejected upload")
	s.Equal(string(before), string(s.export()))
	s.True(s.db.Migrator().HasTable(&models.User{}))
}

func (s *BackupTestSuite) TestImport_SnapshotWriteFailureAborts() {
	before := s.export()
	svc := s.newService(failingStore{s.store})

	_, err := svc.Import(s.ctx, s.admin, "dump.sql", bytes.NewReader(before))
	s.Require().Error(err)
	s.True(apierrors.IsKind(err, apierrors.KindSnapshotWrite))
	s.Equal(string(before), string(s.export()))

	// The lock and gate are released after the failure.
	s.True(s.gate.Enter())
	s.gate.Leave()
	_, err = s.service.Import(s.ctx, s.admin, "dump.sql", bytes.NewReader(before))
	s.NoError(err)
}

func (s *BackupTestSuite) TestImport_ExecFailureRollsBack() {
	before := s.export()

	lines := strings.Split(strings.TrimSuffix(string(before), "\n"), "\n")
	var broken []string
	dupLine := 0
	for _, line := range lines {
		broken = append(broken, line)
		if dupLine == 0 && strings.HasPrefix(line, "INSERT INTO `areas`") {
			broken = append(broken, line)
			dupLine = len(broken)
		}
	}
	s.Require().NotZero(dupLine)

	_, err := s.service.Import(s.ctx, s.admin, "broken.sql", strings.NewReader(strings.Join(broken, "\n")+"\n"))
	s.Require().Error(err)
	s.True(apierrors.IsKind(err, apierrors.KindStore))

	var execErr *ExecError
	s.Require().True(errors.As(err, &execErr))
	s.Equal(dupLine, execErr.Line)

	s.Equal(string(before), string(s.export()), "sqlite import is all or nothing")

	list, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	s.Len(list, 1)
}

func (s *BackupTestSuite) TestImport_ConcurrentImportIsBusy() {
	dump := s.export()

	release, ok, err := s.lock.TryAcquire(s.ctx)
	s.Require().NoError(err)
	s.Require().True(ok)
	_, err = s.service.Import(s.ctx, s.admin, "dump.sql", bytes.NewReader(dump))
	s.True(apierrors.IsKind(err, apierrors.KindBusy))
	release()

	blocking := &blockingStore{SnapshotStore: s.store, entered: make(chan struct{}), proceed: make(chan struct{})}
	first := s.newService(blocking)

	replacement := testutil.NewDB(s.T())
	testutil.CreateArea(s.T(), replacement, "Delhi District")
	var other bytes.Buffer
	_, err = NewExporter(replacement, sqliteDialect{}, testutil.Logger()).Export(s.ctx, &other)
	s.Require().NoError(err)

	done := make(chan error, 1)
	go func() {
		_, err := first.Import(s.ctx, s.admin, "first.sql", bytes.NewReader(other.Bytes()))
		done <- err
	}()
	<-blocking.entered

	_, err = s.service.Import(s.ctx, s.admin, "second.sql", bytes.NewReader(dump))
	s.True(apierrors.IsKind(err, apierrors.KindBusy))
	s.False(s.gate.Enter(), "writes are held off while an import runs")

	close(blocking.proceed)
	s.Require().NoError(<-done)

	s.True(s.gate.Enter())
	s.gate.Leave()

	var areas []models.Area
	s.Require().NoError(s.db.Find(&areas).Error)
	s.Require().Len(areas, 1)
	s.Equal("Delhi District", areas[0].Name)
}

func (s *BackupTestSuite) TestStatus() {
	status, err := s.service.Status(s.ctx, s.admin)
	s.Require().NoError(err)
	s.Equal("sqlite", status.Driver)

	counts := map[string]int64{}
	for _, tc := range status.Tables {
		counts[tc.Table] = tc.Rows
	}
	s.Equal(int64(2), counts["areas"])
	s.Equal(int64(2), counts["needs"])
	s.Equal(int64(1), counts["contact_messages"])
}

func (s *BackupTestSuite) TestOpenSnapshot_UnknownOrUnsafeName() {
	for _, name := range []string{"missing.sql", "../etc/passwd", "nested/dump.sql"} {
		_, err := s.service.OpenSnapshot(s.ctx, s.admin, name)
		s.True(apierrors.IsKind(err, apierrors.KindNotFound), name)
	}
}

func TestBackupTestSuite(t *testing.T) {
	suite.Run(t, new(BackupTestSuite))
}

func TestExport_StoreErrorOnPostgres(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT tablename FROM pg_tables").WillReturnError(errors.New("permission denied for relation pg_tables"))
	mock.ExpectRollback()

	svc, err := NewService(db, Config{Store: failingStore{}}, testutil.Logger())
	require.NoError(t, err)

	_, err = svc.Export(context.Background(), &access.Identity{UserID: 1, Role: models.RoleSuperAdmin})
	require.Error(t, err)
	assert.True(t, apierrors.IsKind(err, apierrors.KindStore))
	assert.Contains(t, err.Error(), "permission denied")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLocalSnapshotStore(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalSnapshotStore(t.TempDir())
	require.NoError(t, err)

	write := func(body string) func(io.Writer) error {
		return func(w io.Writer) error {
			_, err := io.WriteString(w, body)
			return err
		}
	}

	first, err := store.Save(ctx, "backup_1.sql", write("one"))
	require.NoError(t, err)
	second, err := store.Save(ctx, "backup_1.sql", write("two"))
	require.NoError(t, err)
	assert.Equal(t, "backup_1.sql", first.Name)
	assert.Equal(t, "backup_1_1.sql", second.Name)

	_, err = store.Save(ctx, "broken.sql", func(w io.Writer) error {
		_, _ = io.WriteString(w, "partial")
		return errors.New("export failed")
	})
	require.Error(t, err)

	list, err := store.List(ctx)
	require.NoError(t, err)
	names := []string{}
	for _, info := range list {
		names = append(names, info.Name)
	}
	assert.ElementsMatch(t, []string{"backup_1.sql", "backup_1_1.sql"}, names, "failed saves leave nothing behind")

	_, err = store.Save(ctx, "../escape.sql", write("x"))
	assert.ErrorIs(t, err, ErrInvalidSnapshotName)

	_, err = store.Open(ctx, "absent.sql")
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
}
