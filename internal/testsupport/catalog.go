package testsupport

import (
	"testing"

	"scorepub/internal/catalog"
	"scorepub/internal/config"
)

// MustOpenCatalog opens the catalog tables in the test database.
func MustOpenCatalog(t testing.TB, cfg *config.Config) *catalog.Catalog {
	t.Helper()

	c, err := catalog.Open(cfg.Paths.Database)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = c.Close()
	})
	return c
}
