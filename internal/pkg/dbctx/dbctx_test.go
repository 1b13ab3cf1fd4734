package dbctx

import (
	"context"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

type ctxKey struct{}

func TestDBPrefersTx(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:dbctx?mode=memory&cache=shared"), &gorm.Config{Logger: gormLogger.Default.LogMode(gormLogger.Silent)})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	tx := db.Begin()
	t.Cleanup(func() { tx.Rollback() })

	ctx := context.WithValue(context.Background(), ctxKey{}, "v")
	got := New(ctx).WithTx(tx).DB(db)
	if got.Statement.ConnPool != tx.Statement.ConnPool {
		t.Fatalf("expected tx conn pool")
	}
	if got.Statement.Context.Value(ctxKey{}) != "v" {
		t.Fatalf("context not bound")
	}
	if New(nil).DB(db).Statement.Context == nil {
		t.Fatalf("nil ctx should default to background")
	}
}
