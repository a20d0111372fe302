package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	expected := []string{"zones", "mission", "airspace", "serve"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "flightzone", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestMissionCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range missionCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"migrate", "import", "list", "zones"} {
		assert.True(t, names[name], "mission should have subcommand %q", name)
	}
}

func TestZonesCommand_Flags(t *testing.T) {
	for _, c := range []struct {
		name   string
		format string
	}{
		{"compute", "geojson"},
		{"export", "shp"},
	} {
		sub, _, err := zonesCmd.Find([]string{c.name})
		require.NoError(t, err)
		for _, flagName := range []string{"route", "out", "fg", "contingency", "ground-risk", "mode", "caps", "parallel"} {
			assert.NotNil(t, sub.Flags().Lookup(flagName), "zones %s should have --%s flag", c.name, flagName)
		}
		format := sub.Flags().Lookup("format")
		require.NotNil(t, format)
		assert.Equal(t, c.format, format.DefValue)
	}
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestMissionZonesCommand_Flags(t *testing.T) {
	for _, flagName := range []string{"all", "format", "out", "workers"} {
		assert.NotNil(t, missionZonesCmd.Flags().Lookup(flagName), "mission zones should have --%s flag", flagName)
	}
	assert.Equal(t, "4", missionZonesCmd.Flags().Lookup("workers").DefValue)
}
