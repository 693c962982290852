package session

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrEmptyDuration = errors.New("session has no duration")
	ErrNoPeriods     = errors.New("session has no periods")
	ErrNoSocialMedia = errors.New("session visited no social media")
)

// PeriodLog records one closed period: the completion ratio of each of its
// intervals and the time spent on it.
type PeriodLog struct {
	ProgressPerInterval []float64
	Duration            time.Duration
}

// Log is the record of one session. EndTime is nil while it is running.
type Log struct {
	ID          string
	StartTime   time.Time
	EndTime     *time.Time
	PeriodLogs  []PeriodLog
	SocialMedia []string
}

func (l Log) clone() Log {
	out := l
	if l.EndTime != nil {
		end := *l.EndTime
		out.EndTime = &end
	}
	out.PeriodLogs = make([]PeriodLog, len(l.PeriodLogs))
	for i, p := range l.PeriodLogs {
		out.PeriodLogs[i] = PeriodLog{
			ProgressPerInterval: append([]float64(nil), p.ProgressPerInterval...),
			Duration:            p.Duration,
		}
	}
	out.SocialMedia = append([]string(nil), l.SocialMedia...)
	return out
}

// PeriodRecord is the persisted form of a PeriodLog.
type PeriodRecord struct {
	ProgressPerInterval []float64 `json:"progress_per_interval" yaml:"progress_per_interval"`
	DurationSeconds     float64   `json:"duration_seconds" yaml:"duration_seconds"`
}

// Model is the analytics record written by a Sink.
type Model struct {
	ID                 string         `json:"id" yaml:"id"`
	Date               time.Time      `json:"date" yaml:"date"`
	DurationSeconds    float64        `json:"duration_seconds" yaml:"duration_seconds"`
	Periods            []PeriodRecord `json:"periods" yaml:"periods"`
	SocialMediaVisited []string       `json:"social_media_visited" yaml:"social_media_visited"`
}

// Model converts a finished log. The date is the end time; an unfinished
// log has a zero date and duration.
func (l Log) Model() Model {
	m := Model{
		ID:                 l.ID,
		Periods:            make([]PeriodRecord, 0, len(l.PeriodLogs)),
		SocialMediaVisited: append([]string{}, l.SocialMedia...),
	}
	if l.EndTime != nil {
		m.Date = *l.EndTime
		m.DurationSeconds = l.EndTime.Sub(l.StartTime).Seconds()
	}
	for _, p := range l.PeriodLogs {
		m.Periods = append(m.Periods, PeriodRecord{
			ProgressPerInterval: append([]float64{}, p.ProgressPerInterval...),
			DurationSeconds:     p.Duration.Seconds(),
		})
	}
	return m
}

// LogFromModel rebuilds a log from a saved model so the session can be
// resumed. Period durations are rounded to the millisecond.
func LogFromModel(m Model) Log {
	l := Log{
		ID:          m.ID,
		StartTime:   m.Date.Add(-time.Duration(m.DurationSeconds * float64(time.Second))),
		SocialMedia: append([]string(nil), m.SocialMediaVisited...),
	}
	if !m.Date.IsZero() {
		end := m.Date
		l.EndTime = &end
	}
	for _, p := range m.Periods {
		l.PeriodLogs = append(l.PeriodLogs, PeriodLog{
			ProgressPerInterval: append([]float64(nil), p.ProgressPerInterval...),
			Duration:            (time.Duration(p.DurationSeconds * float64(time.Second))).Round(time.Millisecond),
		})
	}
	return l
}

// Validate reports the first reason the model is not worth saving.
func (m Model) Validate() error {
	switch {
	case m.DurationSeconds <= 0:
		return ErrEmptyDuration
	case len(m.Periods) == 0:
		return ErrNoPeriods
	case len(m.SocialMediaVisited) == 0:
		return ErrNoSocialMedia
	}
	return nil
}

// Sink persists session models.
type Sink interface {
	Save(ctx context.Context, m Model) error
}

// Persist validates the model of l and hands it to sink.
func Persist(ctx context.Context, sink Sink, l Log) error {
	m := l.Model()
	if err := m.Validate(); err != nil {
		return fmt.Errorf("session %s: %w", l.ID, err)
	}
	if err := sink.Save(ctx, m); err != nil {
		return fmt.Errorf("save session %s: %w", l.ID, err)
	}
	return nil
}
