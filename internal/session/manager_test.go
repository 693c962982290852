package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacksonchui/Social-Media-Intervention/internal/condition"
	"github.com/jacksonchui/Social-Media-Intervention/internal/motion"
	"github.com/jacksonchui/Social-Media-Intervention/internal/motion/motiontest"
	"github.com/jacksonchui/Social-Media-Intervention/internal/orientation"
	"github.com/jacksonchui/Social-Media-Intervention/internal/policy"
)

type fakeClock struct {
	values []time.Time
	idx    int
}

func (f *fakeClock) Now() time.Time {
	if f.idx >= len(f.values) {
		return f.values[len(f.values)-1]
	}
	v := f.values[f.idx]
	f.idx++
	return v
}

type fakeID struct{}

func (fakeID) New() string { return "sess-1" }

// constRand puts every target axis at 0.78.
type constRand struct{}

func (constRand) Float64() float64 { return 0.75 }

var (
	hit  = orientation.Attitude{Roll: 0.78, Pitch: 0.78, Yaw: 0.78}
	miss = orientation.Attitude{Roll: -0.78, Pitch: -0.78, Yaw: -0.78}

	startTime = time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	endTime   = startTime.Add(5 * time.Minute)
)

// 100 one-second samples per interval, so ratios land on whole percents.
func testPolicy() policy.Policy {
	p := policy.Default()
	p.UpdateInterval = time.Second
	p.IntervalDuration = 100 * time.Second
	return p
}

type harness struct {
	src     *motiontest.Source
	svc     *condition.Service
	mgr     *Manager
	updates []Update
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	p := testPolicy()
	h := &harness{src: &motiontest.Source{}}
	h.svc = condition.New(h.src, p, condition.WithTargetGenerator(orientation.NewTargetGenerator(constRand{})))
	h.mgr = NewManager(h.svc, p,
		WithClock(&fakeClock{values: []time.Time{startTime, endTime}}),
		WithIDGenerator(fakeID{}),
	)
	return h
}

func (h *harness) start(t *testing.T, existing *Log) {
	t.Helper()
	require.NoError(t, h.mgr.Start(context.Background(), existing, func(u Update) {
		h.updates = append(h.updates, u)
	}))
}

// feedInterval delivers one full interval whose completion ratio is
// hits/100. Misses go first so a fresh period never draws its target from
// a matching sample.
func (h *harness) feedInterval(hits int) {
	h.src.DeliverN(miss, 100-hits)
	h.src.DeliverN(hit, hits)
}

func TestIntervalAtRatioThresholdClosesPeriod(t *testing.T) {
	h := newHarness(t)
	h.start(t, nil)

	h.feedInterval(70)

	l, ok := h.mgr.Log()
	require.True(t, ok)
	require.Len(t, l.PeriodLogs, 1)
	assert.Equal(t, []float64{0.7}, l.PeriodLogs[0].ProgressPerInterval)
	assert.Equal(t, 100*time.Second, l.PeriodLogs[0].Duration)
	assert.Equal(t, 1, h.mgr.PeriodIntervals())
	assert.Empty(t, h.mgr.ProgressPerInterval())
	assert.Zero(t, h.svc.CurrentPeriodDuration())
	_, hasTarget := h.svc.Target()
	assert.False(t, hasTarget)
}

func TestIncompleteIntervalExtendsPeriod(t *testing.T) {
	h := newHarness(t)
	h.start(t, nil)

	h.feedInterval(69)

	l, _ := h.mgr.Log()
	assert.Empty(t, l.PeriodLogs)
	assert.Equal(t, 2, h.mgr.PeriodIntervals())
	assert.Equal(t, []float64{0.69}, h.mgr.ProgressPerInterval())

	h.feedInterval(71)

	l, _ = h.mgr.Log()
	require.Len(t, l.PeriodLogs, 1)
	assert.Equal(t, []float64{0.69, 0.71}, l.PeriodLogs[0].ProgressPerInterval)
	assert.Equal(t, 200*time.Second, l.PeriodLogs[0].Duration)
	assert.Equal(t, 1, h.mgr.PeriodIntervals())
}

func TestTwoIncompleteIntervalsKeepAccruing(t *testing.T) {
	h := newHarness(t)
	h.start(t, nil)

	h.feedInterval(69)
	target, _ := h.svc.Target()
	h.feedInterval(69)

	l, _ := h.mgr.Log()
	assert.Empty(t, l.PeriodLogs)
	assert.Equal(t, 3, h.mgr.PeriodIntervals())
	assert.Equal(t, []float64{0.69, 0.69}, h.mgr.ProgressPerInterval())
	assert.Equal(t, 200*time.Second, h.svc.CurrentPeriodDuration())

	sameTarget, ok := h.svc.Target()
	require.True(t, ok)
	assert.Equal(t, target, sameTarget)
}

func TestLatestRatioAloneDecidesContinuation(t *testing.T) {
	h := newHarness(t)
	h.start(t, nil)

	// The mean of 0.2 and 0.7 is below the ratio, the latest interval is not.
	h.feedInterval(20)
	h.feedInterval(70)

	l, _ := h.mgr.Log()
	require.Len(t, l.PeriodLogs, 1)
	assert.Equal(t, []float64{0.2, 0.7}, l.PeriodLogs[0].ProgressPerInterval)
	assert.Equal(t, 1, h.mgr.PeriodIntervals())
}

func TestStopMidIntervalRecordsFinalRatio(t *testing.T) {
	h := newHarness(t)
	h.start(t, nil)
	h.src.Deliver(miss)
	h.src.DeliverN(hit, 4)

	l, err := h.mgr.Stop(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "sess-1", l.ID)
	assert.Equal(t, startTime, l.StartTime)
	require.NotNil(t, l.EndTime)
	assert.Equal(t, endTime, *l.EndTime)
	require.Len(t, l.PeriodLogs, 1)
	assert.Equal(t, []float64{0.8}, l.PeriodLogs[0].ProgressPerInterval)
	assert.Equal(t, 5*time.Second, l.PeriodLogs[0].Duration)

	assert.False(t, h.mgr.Running())
	assert.False(t, h.src.Running())
	assert.Equal(t, 1, h.mgr.PeriodIntervals())
	assert.Empty(t, h.svc.Samples())
	assert.Zero(t, h.svc.CurrentPeriodDuration())
}

func TestStopAfterIncompleteIntervalClosesWholePeriod(t *testing.T) {
	h := newHarness(t)
	h.start(t, nil)
	h.feedInterval(50)
	h.src.DeliverN(hit, 10)

	l, err := h.mgr.Stop(context.Background())
	require.NoError(t, err)

	require.Len(t, l.PeriodLogs, 1)
	assert.Equal(t, []float64{0.5, 1.0}, l.PeriodLogs[0].ProgressPerInterval)
	assert.Equal(t, 110*time.Second, l.PeriodLogs[0].Duration)
}

func TestStopWithoutSamplesAddsNoPeriod(t *testing.T) {
	h := newHarness(t)
	h.start(t, nil)
	h.feedInterval(80)

	l, err := h.mgr.Stop(context.Background())
	require.NoError(t, err)

	assert.Len(t, l.PeriodLogs, 1)
	assert.NotNil(t, l.EndTime)
}

func TestStopTwice(t *testing.T) {
	h := newHarness(t)

	_, err := h.mgr.Stop(context.Background())
	assert.ErrorIs(t, err, motion.ErrAlreadyStopped)

	h.start(t, nil)
	h.src.DeliverN(hit, 3)
	_, err = h.mgr.Stop(context.Background())
	require.NoError(t, err)

	_, err = h.mgr.Stop(context.Background())
	assert.ErrorIs(t, err, motion.ErrAlreadyStopped)

	l, ok := h.mgr.Log()
	require.True(t, ok)
	assert.Len(t, l.PeriodLogs, 1, "second stop must not finalize again")
}

func TestFailedStopLeavesSessionRunning(t *testing.T) {
	h := newHarness(t)
	h.start(t, nil)
	h.feedInterval(50)
	h.src.DeliverN(hit, 10)
	boom := errors.New("motion manager busy")
	h.src.StopErr = boom

	_, err := h.mgr.Stop(context.Background())

	assert.ErrorIs(t, err, boom)
	assert.True(t, h.mgr.Running())
	assert.Equal(t, 2, h.mgr.PeriodIntervals())
	assert.Equal(t, []float64{0.5}, h.mgr.ProgressPerInterval())
	assert.Len(t, h.svc.Samples(), 10)
	l, _ := h.mgr.Log()
	assert.Nil(t, l.EndTime)

	h.src.StopErr = nil
	l, err = h.mgr.Stop(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 1.0}, l.PeriodLogs[0].ProgressPerInterval)
}

func TestAlphaFollowsPreviousProgress(t *testing.T) {
	h := newHarness(t)
	h.start(t, nil)

	h.src.Deliver(miss)
	h.src.Deliver(hit)
	h.src.Deliver(hit)

	require.Len(t, h.updates, 3)
	assert.Equal(t, Update{Alpha: 0.15, Progress: 0.5}, h.updates[0])
	assert.Equal(t, Update{Alpha: 0.3, Progress: 1.0}, h.updates[1])
	assert.Equal(t, Update{Alpha: 1.0, Progress: 1.0}, h.updates[2])
}

func TestSampleFailureIsForwarded(t *testing.T) {
	h := newHarness(t)
	h.start(t, nil)
	boom := errors.New("no attitude")

	h.src.DeliverN(miss, 99)
	h.src.Fail(boom)

	require.Len(t, h.updates, 100)
	assert.ErrorIs(t, h.updates[99].Err, boom)
	assert.Equal(t, 1, h.mgr.PeriodIntervals(), "a failed sample does not advance the interval")

	h.src.Deliver(miss)
	assert.Equal(t, 2, h.mgr.PeriodIntervals())
}

func TestStartTwice(t *testing.T) {
	h := newHarness(t)
	h.start(t, nil)

	err := h.mgr.Start(context.Background(), nil, func(Update) {})

	assert.ErrorIs(t, err, motion.ErrAlreadyStarted)
	assert.Equal(t, 1, h.src.StartCalls)
}

func TestStartFailureRestoresPreviousLog(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.src.StartUpdates(context.Background(), time.Second, func(motion.Update) {}))

	err := h.mgr.Start(context.Background(), nil, func(Update) {})

	assert.ErrorIs(t, err, motion.ErrAlreadyStarted)
	assert.False(t, h.mgr.Running())
	_, ok := h.mgr.Log()
	assert.False(t, ok)
}

func TestResumeExistingLog(t *testing.T) {
	h := newHarness(t)
	earlier := startTime.Add(-time.Hour)
	earlierEnd := earlier.Add(10 * time.Minute)
	existing := &Log{
		ID:          "earlier",
		StartTime:   earlier,
		EndTime:     &earlierEnd,
		PeriodLogs:  []PeriodLog{{ProgressPerInterval: []float64{0.9}, Duration: time.Minute}},
		SocialMedia: []string{"reddit"},
	}
	h.start(t, existing)
	h.feedInterval(75)

	l, err := h.mgr.Stop(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "earlier", l.ID)
	// Ten saved minutes plus five resumed ones; the hour between is not
	// counted.
	assert.Equal(t, startTime.Add(-10*time.Minute), l.StartTime)
	assert.Equal(t, endTime, *l.EndTime)
	assert.Equal(t, 900.0, l.Model().DurationSeconds)
	require.Len(t, l.PeriodLogs, 2)
	assert.Equal(t, []float64{0.75}, l.PeriodLogs[1].ProgressPerInterval)
	assert.Equal(t, []string{"reddit"}, l.SocialMedia)
	assert.Len(t, existing.PeriodLogs, 1, "the caller's log is not mutated")
}

func TestRecordVisit(t *testing.T) {
	h := newHarness(t)
	assert.ErrorIs(t, h.mgr.RecordVisit("twitter"), ErrNotRunning)

	h.start(t, nil)
	require.NoError(t, h.mgr.RecordVisit("twitter"))
	require.NoError(t, h.mgr.RecordVisit(" reddit "))
	require.NoError(t, h.mgr.RecordVisit("twitter"))
	assert.ErrorIs(t, h.mgr.RecordVisit("  "), ErrEmptyMedium)

	l, _ := h.mgr.Log()
	assert.Equal(t, []string{"twitter", "reddit"}, l.SocialMedia)
}

func TestCheckDelegates(t *testing.T) {
	h := newHarness(t)
	h.src.AvailabilityErr = motion.ErrDeviceMotionUnavailable

	assert.ErrorIs(t, h.mgr.Check(context.Background()), motion.ErrDeviceMotionUnavailable)
}
