package db

import (
	"testing"

	"github.com/yungbote/babycare-backend/internal/config"
	"github.com/yungbote/babycare-backend/internal/platform/logger"
)

func TestDSNEscapesPassword(t *testing.T) {
	got := DSN(config.PostgresConfig{Host: "db", User: "app", Password: "p@ss/word", Name: "babycare"})
	want := "postgres://app:p%40ss%2Fword@db:5432/babycare?sslmode=disable"
	if got != want {
		t.Fatalf("DSN: want=%s got=%s", want, got)
	}
}

func TestSQLiteFallbackMigrates(t *testing.T) {
	svc, err := NewPostgresService(logger.Nop(), config.PostgresConfig{}, config.SQLiteConfig{Path: "file:dbtest?mode=memory&cache=shared"})
	if err != nil {
		t.Fatalf("NewPostgresService: %v", err)
	}
	t.Cleanup(func() { _ = svc.Close() })
	if err := AutoMigrateAll(svc.DB()); err != nil {
		t.Fatalf("AutoMigrateAll: %v", err)
	}
	for _, table := range []string{"chat_history_detailed", "child_symptom_timeline", "chat_etl_status", "intent_history_summary"} {
		if !svc.DB().Migrator().HasTable(table) {
			t.Fatalf("missing table %s", table)
		}
	}
}
