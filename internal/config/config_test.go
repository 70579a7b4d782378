package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("SIMRES_DB", "")
	t.Setenv("SIMRES_PORT", "")
	t.Setenv("SIMRES_CORS_ORIGINS", "")

	s := FromEnv()
	assert.Equal(t, DefaultDBPath, s.DBPath)
	assert.Equal(t, DefaultPort, s.Port)
	assert.Equal(t, []string{"*"}, s.CORSOrigins)
	assert.True(t, s.AllowAllOrigins())
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("SIMRES_DB", "/var/lib/simres/glp.db")
	t.Setenv("SIMRES_PORT", "9090")
	t.Setenv("SIMRES_CORS_ORIGINS", "http://localhost:3000, http://localhost:5173")

	s := FromEnv()
	assert.Equal(t, "/var/lib/simres/glp.db", s.DBPath)
	assert.Equal(t, "9090", s.Port)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:5173"}, s.CORSOrigins)
	assert.False(t, s.AllowAllOrigins())
}

func TestSplitOrigins(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, SplitOrigins("a,,b,"))
	assert.Nil(t, SplitOrigins(""))
	assert.Nil(t, SplitOrigins(" , "))
}
