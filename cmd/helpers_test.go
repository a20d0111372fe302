//go:build !integration

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/flightzone/internal/config"
)

const surveyRoute = `
name: survey
route:
  - {lat: 60, lng: 10}
  - {lat: 60, lng: 10.004}
`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	c := &config.Config{}
	c.Store.Driver = "sqlite"
	c.Store.SQLitePath = filepath.Join(t.TempDir(), "flightzone.db")
	c.Zones = config.ZonesConfig{
		FlightGeographyM: 10,
		ContingencyM:     50,
		GroundRiskM:      100,
		Mode:             "auto",
		CapSegments:      8,
	}
	c.Server.Port = 8080
	return c
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
