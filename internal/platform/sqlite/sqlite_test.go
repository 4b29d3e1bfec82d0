package sqlite

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nghiaht/iroha-companion/internal/model/chat"
)

func TestWithPragmas(t *testing.T) {
	plain := withPragmas("app.db")
	if !strings.Contains(plain, "?_foreign_keys=on") {
		t.Fatalf("expected pragma query on plain path, got %q", plain)
	}

	withQuery := withPragmas("file:test?mode=memory&cache=shared")
	if !strings.Contains(withQuery, "&_foreign_keys=on") {
		t.Fatalf("expected pragma appended to existing query, got %q", withQuery)
	}
	if strings.Count(withQuery, "?") != 1 {
		t.Fatalf("expected a single query separator, got %q", withQuery)
	}
}

func TestForeignKeysSurviveConnectionRecycling(t *testing.T) {
	db, err := New(filepath.Join(t.TempDir(), "recycle.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("access sql.DB handle: %v", err)
	}
	sqlDB.SetConnMaxLifetime(time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	var enabled int
	if err := db.Raw("PRAGMA foreign_keys").Scan(&enabled).Error; err != nil {
		t.Fatalf("query pragma: %v", err)
	}
	if enabled != 1 {
		t.Fatal("foreign key enforcement lost on a recycled connection")
	}
}

func TestCascadeSurvivesConnectionRecycling(t *testing.T) {
	db, err := New(filepath.Join(t.TempDir(), "cascade.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	if err := db.AutoMigrate(&chat.Session{}, &chat.Message{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	session := chat.Session{Title: chat.DefaultTitle, Persona: "iroha"}
	if err := db.Create(&session).Error; err != nil {
		t.Fatalf("create session: %v", err)
	}
	message := chat.Message{SessionID: session.ID, Role: chat.RoleUser, Content: "hello"}
	if err := db.Create(&message).Error; err != nil {
		t.Fatalf("create message: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("access sql.DB handle: %v", err)
	}
	sqlDB.SetConnMaxLifetime(time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	if err := db.Delete(&chat.Session{}, session.ID).Error; err != nil {
		t.Fatalf("delete session: %v", err)
	}

	var orphans int64
	err = db.Model(&chat.Message{}).
		Where("session_id = ?", session.ID).
		Count(&orphans).Error
	if err != nil {
		t.Fatalf("count messages: %v", err)
	}
	if orphans != 0 {
		t.Fatalf("expected cascade to remove messages, %d rows remain", orphans)
	}
}
