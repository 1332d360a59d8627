package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesToFileLazily(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ceplookup.log")

	logger, closer, err := New(Options{Level: "debug", File: path})
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	logger.WithField("postal_code", "01001000").Info("saved address")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "saved address")
	assert.Contains(t, string(data), "postal_code=01001000")
}

func TestNewWithoutFileDiscards(t *testing.T) {
	logger, closer, err := New(Options{})
	require.NoError(t, err)
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
	logger.Info("dropped")
	assert.NoError(t, closer.Close())
}

func TestNewRejectsBadLevel(t *testing.T) {
	_, _, err := New(Options{Level: "loud"})
	assert.Error(t, err)
}
