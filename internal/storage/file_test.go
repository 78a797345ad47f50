package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFileStore_MissingFileIsEmpty(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "posted_articles.json"))

	links, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if len(links) != 0 {
		t.Fatalf("got %v, want empty", links)
	}
}

func TestFileStore_SaveLoadKeepsOrder(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := NewFileStore(filepath.Join(dir, "posted_articles.json"))

	want := []string{"https://drone.jp/b", "https://drone.jp/a"}
	if err := s.Save(ctx, want); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("got %v, want %v", got, want)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %d entries", len(entries))
	}
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "posted_articles.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	_, err := NewFileStore(path).Load(context.Background())
	if !errors.Is(err, ErrCorrupt) {
		t.Fatalf("err = %v, want ErrCorrupt", err)
	}
}

func TestFileStore_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "posted_articles.json")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	links, err := NewFileStore(path).Load(context.Background())
	if err != nil || len(links) != 0 {
		t.Fatalf("Load = %v, %v; want empty, nil", links, err)
	}
}

func TestFileStore_SaveNilWritesEmptyArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "posted_articles.json")
	if err := NewFileStore(path).Save(context.Background(), nil); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "[]" {
		t.Errorf("file = %q, want []", data)
	}
}

func TestFileStore_SaveIntoMissingDirFails(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "nope", "state.json"))
	if err := s.Save(context.Background(), []string{"x"}); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
