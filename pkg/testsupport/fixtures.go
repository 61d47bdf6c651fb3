package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bytedance/sonic"
)

// LoadFixture reads testdata/<name> relative to the test package directory.
func LoadFixture(t *testing.T, name string) []byte {
	t.Helper()

	path := filepath.Join("testdata", name)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to load fixture from %s: %v", path, err)
	}
	return data
}

// LoadFixtureJSON reads testdata/<name> and unmarshals it into dest.
func LoadFixtureJSON(t *testing.T, name string, dest any) {
	t.Helper()

	data := LoadFixture(t, name)
	if err := sonic.ConfigStd.Unmarshal(data, dest); err != nil {
		t.Fatalf("failed to unmarshal JSON fixture %s: %v", name, err)
	}
}
