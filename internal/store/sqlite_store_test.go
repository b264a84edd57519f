package store

import (
	"path/filepath"
	"testing"
)

func TestSQLiteStore_PutGetDelete(t *testing.T) {
	s, err := NewSQLiteStore()
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer s.Close()

	if _, ok, err := s.Get(KeyStep); err != nil || ok {
		t.Fatalf("Expected absent key, got ok=%v err=%v", ok, err)
	}

	if err := s.Put(KeyStep, []byte(`first`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := s.Put(KeyStep, []byte(`second`)); err != nil {
		t.Fatalf("Overwrite failed: %v", err)
	}

	v, ok, err := s.Get(KeyStep)
	if err != nil || !ok {
		t.Fatalf("Get failed: ok=%v err=%v", ok, err)
	}
	if string(v) != "second" {
		t.Errorf("Expected second, got %s", v)
	}

	if err := s.Delete(KeyStep); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := s.Delete(KeyStep); err != nil {
		t.Fatalf("Deleting absent key should not fail: %v", err)
	}
	if _, ok, _ := s.Get(KeyStep); ok {
		t.Error("Expected key to be gone after delete")
	}
}

func TestExportImport(t *testing.T) {
	// Initialize store (in-memory)
	s, err := NewSQLiteStore()
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	if err := s.Put(KeyCharacter, []byte(`{"version":1,"value":{"id":"c1"}}`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := s.Put(KeySelectedSceneID, []byte(`{"version":1,"value":"s1"}`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	data, err := s.Export()
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("Exported data is empty")
	}

	// Create a NEW store to simulate a fresh start/reload
	s2, err := NewSQLiteStore()
	if err != nil {
		t.Fatalf("Failed to create second store: %v", err)
	}
	if err := s2.Put(KeyStep, []byte(`stale`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if err := s2.Import(data); err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	v, ok, err := s2.Get(KeySelectedSceneID)
	if err != nil || !ok {
		t.Fatalf("Failed to get restored slot: ok=%v err=%v", ok, err)
	}
	if string(v) != `{"version":1,"value":"s1"}` {
		t.Errorf("Unexpected restored value %s", v)
	}
	if _, ok, _ := s2.Get(KeyStep); ok {
		t.Error("Import should clear slots missing from the export")
	}
}

func TestImport_RejectsUnknownKey(t *testing.T) {
	s, err := NewSQLiteStore()
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	if err := s.Put(KeyStep, []byte(`keep`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	err = s.Import([]byte(`[{"key":"other_app","value":"x"}]`))
	if err == nil {
		t.Fatal("Expected error for unknown key")
	}
	if _, ok, _ := s.Get(KeyStep); !ok {
		t.Error("Rejected import must not clear existing slots")
	}
}

func TestSQLiteStore_FileSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chronicle.db")

	s, err := NewSQLiteStoreWithDSN(path)
	if err != nil {
		t.Fatalf("Failed to open file store: %v", err)
	}
	if err := s.Put(KeyScenes, []byte(`payload`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	s2, err := NewSQLiteStoreWithDSN(path)
	if err != nil {
		t.Fatalf("Failed to reopen file store: %v", err)
	}
	defer s2.Close()

	v, ok, err := s2.Get(KeyScenes)
	if err != nil || !ok || string(v) != "payload" {
		t.Errorf("Expected payload after reopen, got %q ok=%v err=%v", v, ok, err)
	}
}
