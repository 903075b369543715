package database_test

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/north-cloud/gapfinder/internal/database"
	"github.com/jonesrussell/north-cloud/gapfinder/internal/domain"
)

func newMockRepo(t *testing.T) (*database.GapRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return database.NewGapRepository(sqlx.NewDb(db, "postgres")), mock
}

func sampleGaps(now time.Time) []domain.ResearchGap {
	return []domain.ResearchGap{
		{ID: "id-1", Service: "paving", Location: "leeds", Combination: "paving in leeds", FoundAt: now},
		{ID: "id-2", Service: "paving", Location: "york", Combination: "paving in york", FoundAt: now},
	}
}

func TestGapRepository_ReplaceAll(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	gaps := sampleGaps(now)

	testCases := []struct {
		name      string
		setupMock func(mock sqlmock.Sqlmock)
		wantErr   bool
	}{
		{
			name: "replaces stored gaps",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("DELETE FROM research_gaps").
					WillReturnResult(sqlmock.NewResult(0, 7))
				mock.ExpectExec(`INSERT INTO research_gaps .* VALUES \(\$1, \$2, \$3, \$4, \$5\)`).
					WithArgs("id-1", "paving", "leeds", "paving in leeds", now).
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec("INSERT INTO research_gaps").
					WithArgs("id-2", "paving", "york", "paving in york", now).
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit()
			},
			wantErr: false,
		},
		{
			name: "insert failure rolls back",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("DELETE FROM research_gaps").
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectExec("INSERT INTO research_gaps").
					WillReturnError(sql.ErrConnDone)
				mock.ExpectRollback()
			},
			wantErr: true,
		},
		{
			name: "delete failure rolls back",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("DELETE FROM research_gaps").
					WillReturnError(sql.ErrConnDone)
				mock.ExpectRollback()
			},
			wantErr: true,
		},
		{
			name: "begin failure",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin().WillReturnError(sql.ErrConnDone)
			},
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			repo, mock := newMockRepo(t)
			tc.setupMock(mock)

			err := repo.ReplaceAll(context.Background(), gaps)
			if (err != nil) != tc.wantErr {
				t.Errorf("ReplaceAll() error = %v, wantErr %v", err, tc.wantErr)
			}

			if expectErr := mock.ExpectationsWereMet(); expectErr != nil {
				t.Errorf("unfulfilled expectations: %v", expectErr)
			}
		})
	}
}

func TestGapRepository_List(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"id", "service", "location", "combination", "found_at"}).
		AddRow("id-1", "paving", "leeds", "paving in leeds", now).
		AddRow("id-2", "paving", "york", "paving in york", now.Add(-time.Hour))
	mock.ExpectQuery(`SELECT id, service, location, combination, found_at\s+FROM research_gaps\s+ORDER BY found_at DESC`).
		WillReturnRows(rows)

	gaps, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(gaps) != 2 || gaps[0].Combination != "paving in leeds" || !gaps[1].FoundAt.Equal(now.Add(-time.Hour)) {
		t.Errorf("List() = %+v", gaps)
	}
	if expectErr := mock.ExpectationsWereMet(); expectErr != nil {
		t.Errorf("unfulfilled expectations: %v", expectErr)
	}
}

func TestGapRepository_Count(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM research_gaps`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	n, err := repo.Count(context.Background())
	if err != nil || n != 3 {
		t.Errorf("Count() = %d, %v; want 3, nil", n, err)
	}
}

func TestNewResearchGaps(t *testing.T) {
	report := domain.NewGapReport(3, 1)
	report.RecordGap(domain.Combination{Service: "Paving", Location: "Leeds"})
	report.RecordMatch(domain.Combination{Service: "Paving", Location: "York"},
		domain.MatchRecord{URL: "https://x.com/paving-in-york", Method: domain.MethodExactPhrase})
	report.RecordGap(domain.Combination{Service: "Roofing", Location: "Leeds"})

	now := time.Date(2026, 3, 1, 13, 0, 0, 0, time.FixedZone("BST", 3600))
	gaps := database.NewResearchGaps(report, now)

	if len(gaps) != 2 {
		t.Fatalf("got %d gaps, want 2", len(gaps))
	}
	if gaps[0].Combination != "Paving in Leeds" || gaps[1].Service != "Roofing" {
		t.Errorf("gaps = %+v", gaps)
	}
	if gaps[0].ID == "" || gaps[0].ID == gaps[1].ID {
		t.Error("expected distinct generated IDs")
	}
	if gaps[0].FoundAt.Location() != time.UTC || !gaps[0].FoundAt.Equal(now) {
		t.Errorf("found_at = %v, want %v in UTC", gaps[0].FoundAt, now)
	}
}

func TestConfig_MigrationURL(t *testing.T) {
	pg := database.Config{
		Driver: database.DriverPostgres, Host: "db", Port: "5432",
		User: "gap", Password: "p@ss", DBName: "gapfinder", SSLMode: "disable",
	}
	if got, want := pg.MigrationURL(), "postgres://gap:p%40ss@db:5432/gapfinder?sslmode=disable"; got != want {
		t.Errorf("MigrationURL() = %q, want %q", got, want)
	}

	lite := database.Config{Driver: database.DriverSQLite, Path: "/tmp/gaps.db"}
	if got := lite.MigrationURL(); got != "sqlite3:///tmp/gaps.db" {
		t.Errorf("MigrationURL() = %q", got)
	}
}

func TestConnect_UnsupportedDriver(t *testing.T) {
	if _, err := database.Connect(context.Background(), database.Config{Driver: "mysql"}); err == nil {
		t.Error("expected error for unsupported driver")
	}
}

// Round trip against a real SQLite file. Skipped when the driver is unavailable (no cgo).
func TestGapRepository_SQLite(t *testing.T) {
	db, err := database.Connect(context.Background(), database.Config{
		Driver: database.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "gaps.db"),
	})
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	t.Cleanup(func() { _ = database.Close(db) })

	schema, err := os.ReadFile(filepath.Join("..", "..", "migrations", "000001_create_research_gaps.up.sql"))
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	if _, err = db.Exec(string(schema)); err != nil {
		t.Fatalf("apply migration: %v", err)
	}

	repo := database.NewGapRepository(db)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if err = repo.ReplaceAll(ctx, sampleGaps(now.Add(-time.Hour))); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}
	if err = repo.ReplaceAll(ctx, []domain.ResearchGap{
		{ID: "id-3", Service: "roofing", Location: "bath", Combination: "roofing in bath", FoundAt: now},
	}); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}

	gaps, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(gaps) != 1 || gaps[0].ID != "id-3" || !gaps[0].FoundAt.Equal(now) {
		t.Errorf("List() = %+v, want only the latest analysis", gaps)
	}

	n, err := repo.Count(ctx)
	if err != nil || n != 1 {
		t.Errorf("Count() = %d, %v", n, err)
	}
}
