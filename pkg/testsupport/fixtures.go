package testsupport

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// FixturePath constructs a path to a fixture file relative to the testdata directory.
func FixturePath(filename string) string {
	return filepath.Join("testdata", filename)
}

// LoadFixture loads a file from the calling package's testdata directory.
func LoadFixture(t testing.TB, filename string) []byte {
	t.Helper()

	path := FixturePath(filename)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to load fixture from %s: %v", path, err)
	}

	return data
}

// LoadFixtureJSON loads a testdata JSON file into dest.
func LoadFixtureJSON(t testing.TB, filename string, dest any) {
	t.Helper()

	data := LoadFixture(t, filename)
	if err := json.Unmarshal(data, dest); err != nil {
		t.Fatalf("failed to unmarshal JSON fixture from %s: %v", filename, err)
	}
}
