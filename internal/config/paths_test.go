package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfigDirRespectsXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg/config")

	dir := linuxConfigDir("/home/user")
	assert.Equal(t, filepath.Join("/xdg/config", appName), dir)
}

func TestDefaultConfigDirFallsBackToHome(t *testing.T) {
	dir := linuxConfigDir("/home/user")
	assert.Equal(t, filepath.Join("/home/user", ".config", appName), dir)
}

func TestDefaultConfigPathJoinsFileName(t *testing.T) {
	path := DefaultConfigPath()
	if path != "" {
		assert.Equal(t, configFileName, filepath.Base(path))
	}
}

func TestDefaultCatalogPathEndsInCatalogDB(t *testing.T) {
	path := DefaultCatalogPath()
	if path != "" {
		assert.Equal(t, "catalog.db", filepath.Base(path))
	}
}

func TestDefaultTokenPathEndsInTokenJSON(t *testing.T) {
	path := DefaultTokenPath()
	if path != "" {
		assert.Equal(t, "token.json", filepath.Base(path))
	}
}
