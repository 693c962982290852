package app

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/jacksonchui/Social-Media-Intervention/internal/session"
)

func noColor(t *testing.T) {
	t.Helper()
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })
}

func savedModels() []session.Model {
	return []session.Model{
		{
			ID:              "newer",
			Date:            hubTime.Add(time.Hour),
			DurationSeconds: 185,
			Periods: []session.PeriodRecord{
				{ProgressPerInterval: []float64{0.5, 0.75}, DurationSeconds: 120},
				{ProgressPerInterval: []float64{0.8}, DurationSeconds: 60},
			},
			SocialMediaVisited: []string{"twitter", "reddit"},
		},
		{
			ID:                 "older",
			Date:               hubTime,
			DurationSeconds:    30,
			Periods:            []session.PeriodRecord{},
			SocialMediaVisited: []string{"instagram"},
		},
	}
}

func TestMeanProgress(t *testing.T) {
	models := savedModels()
	assert.InDelta(t, 0.6833, meanProgress(models[0]), 1e-4)
	assert.Zero(t, meanProgress(models[1]))
}

func TestProgressLabel(t *testing.T) {
	noColor(t)
	assert.Equal(t, "0.75", progressLabel(0.75, 0.7, 1))
	assert.Equal(t, "0.00", progressLabel(0, 0.7, 0))
}

func TestWriteSessionsTable(t *testing.T) {
	noColor(t)
	var buf bytes.Buffer

	require.NoError(t, WriteSessionsTable(&buf, savedModels(), 0.7))

	out := buf.String()
	assert.Contains(t, out, "newer")
	assert.Contains(t, out, "older")
	assert.Contains(t, out, "3m5s")
	assert.Contains(t, out, "0.68")
	assert.Contains(t, out, "twitter, reddit")
	assert.Contains(t, out, "Showing 2 sessions")
}

func TestExportSessions(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, ExportSessions(&buf, savedModels(), "JSON"))

		var got []session.Model
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		require.Len(t, got, 2)
		assert.Equal(t, "newer", got[0].ID)
		assert.Equal(t, savedModels()[0].Periods, got[0].Periods)
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, ExportSessions(&buf, savedModels(), "yaml"))
		assert.Contains(t, buf.String(), "social_media_visited:")

		var got []session.Model
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
		require.Len(t, got, 2)
		assert.Equal(t, "older", got[1].ID)
		assert.True(t, hubTime.Equal(got[1].Date))
	})

	t.Run("unsupported", func(t *testing.T) {
		assert.Error(t, ExportSessions(&bytes.Buffer{}, savedModels(), "csv"))
	})
}
