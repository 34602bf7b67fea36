package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_JSONLayout(t *testing.T) {
	defer SetOutput(os.Stdout)

	Init("debug", "json")
	var buf bytes.Buffer
	SetOutput(&buf)

	L().WithField("document_id", "d1").Info("processed")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "processed", line["message"])
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "d1", line["document_id"])
	assert.Contains(t, line, "timestamp")
}

func TestInit_UnknownLevelFallsBackToInfo(t *testing.T) {
	Init("chatty", "json")
	assert.Equal(t, logrus.InfoLevel, base.GetLevel())
}

func TestFromContext(t *testing.T) {
	defer SetOutput(os.Stdout)
	Init("info", "json")
	var buf bytes.Buffer
	SetOutput(&buf)

	ctx := WithContext(context.Background(), WithFields(logrus.Fields{"request_id": "r-1"}))
	FromContext(ctx).Warn("slow upstream")

	assert.Contains(t, buf.String(), `"request_id":"r-1"`)
	assert.NotNil(t, FromContext(context.Background()))
}
