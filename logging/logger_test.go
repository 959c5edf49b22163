package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(&buf, "json", "debug")
	require.NoError(t, err)
	l.WithTable("features").LogBuild(context.Background(), 10, 10, 45, time.Millisecond, nil)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "build completed", record["msg"])
	assert.Equal(t, "features", record["table"])
	assert.EqualValues(t, 45, record["comparisons"])

	_, err = New(&buf, "xml", "")
	assert.Error(t, err)
	_, err = New(&buf, "text", "loud")
	assert.Error(t, err)
}

func TestLevels(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(&buf, "text", "info")
	require.NoError(t, err)
	l.LogSearch(context.Background(), "vp_tree", 0.2, 3, 7, nil)
	assert.Empty(t, buf.String(), "debug records are filtered at info")
	l.LogSearch(context.Background(), "vp_tree", 0.2, 0, 0, errors.New("boom"))
	assert.Contains(t, buf.String(), "search failed")
}

func TestOrNoop(t *testing.T) {
	l := OrNoop(nil)
	require.NotNil(t, l)
	l.LogReindex(context.Background(), "features", 1, nil)
}
