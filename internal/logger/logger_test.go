package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLogger(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logs", "kchatbot.log")

	err := InitLogger(Config{
		Level:   "debug",
		File:    logFile,
		MaxSize: 1,
	})
	require.NoError(t, err)

	assert.Equal(t, logrus.DebugLevel, GetLogger().GetLevel())

	// The log directory is created up front
	_, err = os.Stat(filepath.Dir(logFile))
	assert.NoError(t, err)
}

func TestInitLogger_InvalidLevelFallsBackToInfo(t *testing.T) {
	err := InitLogger(Config{Level: "chatty"})
	require.NoError(t, err)
	assert.Equal(t, logrus.InfoLevel, GetLogger().GetLevel())
}

func TestGetLogger_WithoutInit(t *testing.T) {
	globalLogger = nil
	logger := GetLogger()
	require.NotNil(t, logger)
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
}

func TestWithHelpers(t *testing.T) {
	require.NoError(t, InitLogger(Config{Level: "info"}))

	entry := WithFields(logrus.Fields{"channel": "general", "team": "myteam"})
	assert.Equal(t, "general", entry.Data["channel"])

	entry = WithField("user_id", "u1")
	assert.Equal(t, "u1", entry.Data["user_id"])

	entry = WithError(os.ErrNotExist)
	assert.Equal(t, os.ErrNotExist, entry.Data["error"])
}
