package app

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"gopkg.in/yaml.v3"

	"github.com/jacksonchui/Social-Media-Intervention/internal/session"
)

var (
	completeColor   = color.New(color.FgGreen, color.Bold)
	incompleteColor = color.New(color.FgYellow)
	emptyColor      = color.New(color.FgRed)
)

// progressLabel colors a session's mean interval progress against the
// ratio needed to close a period.
func progressLabel(mean, completeRatio float64, periods int) string {
	text := strconv.FormatFloat(mean, 'f', 2, 64)
	switch {
	case periods == 0:
		return emptyColor.Sprint(text)
	case mean >= completeRatio:
		return completeColor.Sprint(text)
	default:
		return incompleteColor.Sprint(text)
	}
}

// WriteSessionsTable renders saved sessions, newest first as given.
func WriteSessionsTable(w io.Writer, models []session.Model, completeRatio float64) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Rank", "ID", "Date", "Duration", "Periods", "Progress", "Social Media"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	var data [][]string
	for i, m := range models {
		data = append(data, []string{
			strconv.Itoa(i + 1),
			m.ID,
			m.Date.Local().Format("2006-01-02 15:04"),
			(time.Duration(m.DurationSeconds * float64(time.Second))).Round(time.Second).String(),
			strconv.Itoa(len(m.Periods)),
			progressLabel(meanProgress(m), completeRatio, len(m.Periods)),
			strings.Join(m.SocialMediaVisited, ", "),
		})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "Showing %d sessions\n", len(models))
	return err
}

// ExportSessions writes models as a JSON array or a YAML sequence.
func ExportSessions(w io.Writer, models []session.Model, format string) error {
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(models)
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(models); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported export format %q (must be json or yaml)", format)
	}
}
