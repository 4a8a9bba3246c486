package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatterLine(t *testing.T) {
	f := &Formatter{Source: "api", NewID: func() string { return "id-1" }}
	entry := &logrus.Entry{
		Time:    time.Date(2024, 2, 3, 4, 5, 6, 7_000_000, time.UTC),
		Level:   logrus.WarnLevel,
		Message: "disk low",
		Data:    logrus.Fields{"zone": "b", "free": 3},
	}

	out, err := f.Format(entry)
	require.NoError(t, err)
	assert.Equal(t,
		"Date: 2024-02-03, Time: 04:05:06.007, Event Source: api, Event Type: WARNING, Event ID: id-1, Message: disk low, free=3, zone=b\n",
		string(out))
}

func TestNewWritesToOutputAndFile(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "app.log")

	logger, closer, err := New(Options{Level: "debug", File: path, Output: &buf})
	require.NoError(t, err)

	logger.WithField("k", "v").Debug("hello")
	require.NoError(t, closer.Close())

	assert.Contains(t, buf.String(), "Event Source: taskoverflow")
	assert.Contains(t, buf.String(), "Message: hello, k=v")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Message: hello")
}

func TestNewLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := New(Options{Level: "warn", Output: &buf})
	require.NoError(t, err)
	logger.Info("hidden")
	assert.Empty(t, buf.String())

	_, _, err = New(Options{Level: "loud"})
	assert.Error(t, err)
}
