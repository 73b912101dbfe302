package datastore

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type entry struct {
	Text  string   `json:"text"`
	Words []string `json:"words"`
}

func TestFileStore_RoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "store")
	store := NewFileStore[entry](dir)
	ctx := context.Background()

	if store.Exists() {
		t.Fatal("store dir should not exist before first save")
	}
	want := entry{Text: "hello", Words: []string{"a", "b"}}
	if err := store.Save(ctx, 7, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !store.Exists() {
		t.Fatal("store dir should exist after save")
	}

	got, ok, err := store.Load(ctx, 7)
	if err != nil || !ok {
		t.Fatalf("Load: ok=%v err=%v", ok, err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round-trip mismatch (-want +got):\n%s", diff)
	}

	_, ok, err = store.Load(ctx, 8)
	if err != nil || ok {
		t.Errorf("Load(missing): ok=%v err=%v, want false, nil", ok, err)
	}
}

func TestFileStore_LoadAll(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore[[]string](dir)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		if err := store.Save(ctx, i, []string{"v", string(rune('a' + i))}); err != nil {
			t.Fatalf("Save(%d): %v", i, err)
		}
	}
	// Non-integer names and temp files are ignored.
	os.WriteFile(filepath.Join(dir, "notes.json"), []byte(`["x"]`), 0o644)
	os.WriteFile(filepath.Join(dir, "3.json.tmp"), []byte(`garbage`), 0o644)

	all, err := store.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(all) != 20 {
		t.Fatalf("len = %d, want 20", len(all))
	}
	if diff := cmp.Diff([]string{"v", "c"}, all[2]); diff != "" {
		t.Errorf("entry 2 mismatch (-want +got):\n%s", diff)
	}

	keys, err := store.Keys(ctx)
	if err != nil {
		t.Fatal(err)
	}
	sort.Ints(keys)
	if keys[0] != 0 || keys[len(keys)-1] != 19 {
		t.Errorf("keys = %v", keys)
	}
}

func TestFileStore_LoadAllMissingDir(t *testing.T) {
	store := NewFileStore[int](filepath.Join(t.TempDir(), "absent"))
	all, err := store.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("len = %d, want 0", len(all))
	}
}

func TestFileStore_LoadAllBadFile(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "1.json"), []byte(`{not json`), 0o644)
	store := NewFileStore[entry](dir)
	if _, err := store.LoadAll(context.Background()); err == nil {
		t.Error("expected error for corrupt file")
	}
}

func TestWriteJSON_Atomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics.json")
	if err := WriteJSON(path, map[string]float64{"precision": 0.5}); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temp file left behind: %v", err)
	}
	var got map[string]float64
	if err := ReadJSON(path, &got); err != nil {
		t.Fatal(err)
	}
	if got["precision"] != 0.5 {
		t.Errorf("precision = %v", got["precision"])
	}
}
