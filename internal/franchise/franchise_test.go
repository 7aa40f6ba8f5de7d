package franchise

import (
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func writeMap(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing franchise file: %v", err)
	}
}

func TestEmbeddedDefault(t *testing.T) {
	m, err := New("", testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if m.Len() == 0 {
		t.Fatal("embedded map is empty")
	}

	token, patterns, ok := m.Lookup("zelda switch games")
	if !ok {
		t.Fatal("expected a franchise hit for zelda query")
	}
	if token != "zelda" {
		t.Errorf("token = %q, want zelda", token)
	}
	if !slices.Contains(patterns, "legend of zelda") {
		t.Errorf("patterns %v missing legend of zelda", patterns)
	}
}

func TestLookupLongestTokenWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "franchises.yaml")
	writeMap(t, path, `franchises:
  final:
    - final fight
  final fantasy:
    - final fantasy vii
`)
	m, err := New(path, testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	token, _, ok := m.Lookup("final fantasy pixel remaster")
	if !ok {
		t.Fatal("expected a hit")
	}
	if token != "final fantasy" {
		t.Errorf("token = %q, want final fantasy", token)
	}
}

func TestLookupEqualLengthTieBreak(t *testing.T) {
	path := filepath.Join(t.TempDir(), "franchises.yaml")
	writeMap(t, path, `franchises:
  abce:
    - second
  abcd:
    - first
`)
	m, err := New(path, testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for range 20 {
		token, _, ok := m.Lookup("abcd abce")
		if !ok || token != "abcd" {
			t.Fatalf("token = %q ok=%v, want abcd true", token, ok)
		}
	}
}

func TestLookupPrefixOnQuery(t *testing.T) {
	m, err := New("", testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if token, _, ok := m.Lookup("pokemons"); !ok || token != "pokemon" {
		t.Errorf("Lookup(pokemons) = %q, %v; want pokemon hit", token, ok)
	}
}

func TestLookupNoMidWordMatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "franchises.yaml")
	writeMap(t, path, `franchises:
  zelda:
    - legend of zelda
`)
	m, err := New(path, testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, _, ok := m.Lookup("legend of azelda"); ok {
		t.Error("mid-word occurrence should not match")
	}
}

func TestLookupFoldsCaseAndDiacritics(t *testing.T) {
	m, err := New("", testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if token, _, ok := m.Lookup("Pokémon Scarlet"); !ok || token != "pokemon" {
		t.Errorf("Lookup(Pokémon Scarlet) = %q, %v; want pokemon hit", token, ok)
	}
}

func TestLookupEmptyQuery(t *testing.T) {
	m, err := New("", testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for _, q := range []string{"", "   ", "!!"} {
		if _, _, ok := m.Lookup(q); ok {
			t.Errorf("Lookup(%q) matched, want miss", q)
		}
	}
}

func TestOverrideReplacesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "franchises.yaml")
	writeMap(t, path, `franchises:
  homeworld:
    - homeworld
    - homeworld cataclysm
`)
	m, err := New(path, testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if m.Len() != 1 {
		t.Errorf("Len = %d, want 1", m.Len())
	}
	if _, _, ok := m.Lookup("zelda"); ok {
		t.Error("default token should be gone after override")
	}
	if _, patterns, ok := m.Lookup("homeworld remastered"); !ok || len(patterns) != 2 {
		t.Errorf("homeworld lookup = %v patterns, ok=%v", patterns, ok)
	}
}

func TestMissingOverrideFallsBack(t *testing.T) {
	m, err := New(filepath.Join(t.TempDir(), "absent.yaml"), testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, _, ok := m.Lookup("zelda"); !ok {
		t.Error("embedded map should serve when override file is absent")
	}
}

func TestInvalidOverrideFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "franchises.yaml")
	writeMap(t, path, ": not [ yaml\n")
	m, err := New(path, testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, _, ok := m.Lookup("zelda"); !ok {
		t.Error("embedded map should serve when override file is unparseable")
	}
}

func TestReloadSwapsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "franchises.yaml")
	writeMap(t, path, "franchises:\n  alpha:\n    - alpha one\n")
	m, err := New(path, testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	writeMap(t, path, "franchises:\n  beta:\n    - beta one\n")
	if err := m.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if _, _, ok := m.Lookup("alpha"); ok {
		t.Error("old token survived reload")
	}
	if _, _, ok := m.Lookup("beta"); !ok {
		t.Error("new token missing after reload")
	}
}

func TestReloadBadFileKeepsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "franchises.yaml")
	writeMap(t, path, "franchises:\n  alpha:\n    - alpha one\n")
	m, err := New(path, testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	writeMap(t, path, ": not [ yaml\n")
	if err := m.Reload(); err == nil {
		t.Fatal("Reload should fail on unparseable file")
	}
	if _, _, ok := m.Lookup("alpha"); !ok {
		t.Error("entries should survive a failed reload")
	}
}

func TestLookupReturnsCopy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "franchises.yaml")
	writeMap(t, path, "franchises:\n  alpha:\n    - alpha one\n    - alpha two\n")
	m, err := New(path, testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, patterns, _ := m.Lookup("alpha")
	patterns[0] = "mutated"

	_, again, _ := m.Lookup("alpha")
	if again[0] != "alpha one" {
		t.Errorf("patterns[0] = %q after caller mutation, want alpha one", again[0])
	}
}

func TestParseEntriesNormalizes(t *testing.T) {
	entries, err := parseEntries([]byte(`franchises:
  "Baldur's Gate":
    - "Baldur's Gate"
    - "baldurs gate"
    - ""
`))
	if err != nil {
		t.Fatalf("parseEntries: %v", err)
	}
	patterns, ok := entries["baldurs gate"]
	if !ok {
		t.Fatalf("normalized token missing, got %v", entries)
	}
	if len(patterns) != 1 || patterns[0] != "baldurs gate" {
		t.Errorf("patterns = %v, want deduped [baldurs gate]", patterns)
	}
}

func TestParseEntriesRejectsEmpty(t *testing.T) {
	if _, err := parseEntries([]byte("franchises: {}\n")); err == nil {
		t.Error("empty franchises should be rejected")
	}
	if _, err := parseEntries([]byte("other: 1\n")); err == nil {
		t.Error("document without franchises should be rejected")
	}
}
