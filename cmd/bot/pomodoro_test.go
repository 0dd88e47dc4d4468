package main

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhallbot/studyhall"
)

func testPomodoroRequest() startPomodoroRequest {
	return startPomodoroRequest{
		groupID:       "group123",
		guildID:       "guild456",
		channelID:     "channel789",
		sessionRoleID: "role-in-group",
		settings:      studyhall.DefaultPomodoroSettings(),
	}
}

func TestPomodoroSession_GoNextStage(t *testing.T) {
	t.Parallel()

	s := newPomodoroSession(testPomodoroRequest())
	require.Equal(t, studyhall.FocusStage, s.stage)
	require.Equal(t, 0, s.cycleCount)

	tests := []struct {
		wantStage  studyhall.Stage
		wantCycles int
	}{
		{studyhall.ShortBreakStage, 1},
		{studyhall.FocusStage, 1},
		{studyhall.ShortBreakStage, 2},
		{studyhall.FocusStage, 2},
		{studyhall.ShortBreakStage, 3},
		{studyhall.FocusStage, 3},
		// fourth completed focus stage earns the long break
		{studyhall.LongBreakStage, 4},
		{studyhall.FocusStage, 4},
	}
	for i, tt := range tests {
		s.goNextStage()
		assert.Equal(t, tt.wantStage, s.stage, "transition %d", i)
		assert.Equal(t, tt.wantCycles, s.cycleCount, "transition %d", i)
	}
}

func TestPomodoroSession_GoNextStageResetsCountdown(t *testing.T) {
	t.Parallel()

	s := newPomodoroSession(testPomodoroRequest())
	s.goNextStage()
	assert.Equal(t, s.settings.ShortBreak, s.remainingAtStart)
	s.goNextStage()
	assert.Equal(t, s.settings.Focus, s.remainingAtStart)
}

func TestPomodoroSession_PauseFreezesRemaining(t *testing.T) {
	t.Parallel()

	s := newPomodoroSession(testPomodoroRequest())
	// simulate 10 minutes elapsed
	s.stageStartedAt = time.Now().Add(-10 * time.Minute)

	s.pause()
	frozen := s.Remaining()
	assert.InDelta(t, float64(15*time.Minute), float64(frozen), float64(time.Second))

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, frozen, s.Remaining())
}

func TestPomodoroSession_ResumeContinuesFromRemainder(t *testing.T) {
	t.Parallel()

	s := newPomodoroSession(testPomodoroRequest())
	s.stageStartedAt = time.Now().Add(-10 * time.Minute)
	s.pause()
	frozen := s.Remaining()

	s.resume()
	assert.Equal(t, studyhall.SessionRunning, s.status)
	remaining := s.Remaining()
	assert.LessOrEqual(t, remaining, frozen)
	assert.InDelta(t, float64(frozen), float64(remaining), float64(time.Second))
}

func TestPomodoroManager_StartStop(t *testing.T) {
	t.Parallel()

	m := NewPomodoroManager(context.Background(), &mockGateway{})
	t.Cleanup(m.Shutdown)

	session, err := m.Start(testPomodoroRequest())
	require.NoError(t, err)
	assert.Equal(t, studyhall.FocusStage, session.stage)
	assert.Equal(t, studyhall.SessionRunning, session.status)
	assert.True(t, m.Has("group123"))

	_, err = m.Start(testPomodoroRequest())
	assert.ErrorIs(t, err, studyhall.ErrSessionAlreadyActive)

	stopped, err := m.Stop("group123")
	require.NoError(t, err)
	assert.Equal(t, studyhall.SessionStopped, stopped.status)
	assert.False(t, m.Has("group123"))

	_, err = m.Stop("group123")
	assert.ErrorIs(t, err, studyhall.ErrNoActiveSession)
}

func TestPomodoroManager_PauseResume(t *testing.T) {
	t.Parallel()

	m := NewPomodoroManager(context.Background(), &mockGateway{})
	t.Cleanup(m.Shutdown)

	_, err := m.Pause("group123")
	assert.ErrorIs(t, err, studyhall.ErrNoActiveSession)

	_, err = m.Start(testPomodoroRequest())
	require.NoError(t, err)

	paused, err := m.Pause("group123")
	require.NoError(t, err)
	assert.Equal(t, studyhall.SessionPaused, paused.status)

	_, err = m.Pause("group123")
	assert.Error(t, err)

	resumed, err := m.Resume("group123")
	require.NoError(t, err)
	assert.Equal(t, studyhall.SessionRunning, resumed.status)

	_, err = m.Resume("group123")
	assert.Error(t, err)
}

func TestPomodoroManager_StageNotifications(t *testing.T) {
	prevTickRate := pomodoroTickRate
	pomodoroTickRate = 5 * time.Millisecond
	t.Cleanup(func() { pomodoroTickRate = prevTickRate })

	gw := &mockGateway{}
	m := NewPomodoroManager(context.Background(), gw)
	t.Cleanup(m.Shutdown)

	req := testPomodoroRequest()
	req.settings = studyhall.PomodoroSettings{
		Focus:              20 * time.Millisecond,
		ShortBreak:         20 * time.Millisecond,
		LongBreak:          20 * time.Millisecond,
		CyclesPerLongBreak: 4,
	}
	_, err := m.Start(req)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(gw.sentMessages()) >= 1
	}, time.Second, 5*time.Millisecond)

	msg := gw.sentMessages()[0]
	assert.Equal(t, "channel789", msg.channelID)
	assert.True(t, strings.HasPrefix(msg.content, "<@&role-in-group>"), msg.content)
	assert.Contains(t, msg.content, "Take a short break")

	// the break runs down and focus resumes
	require.Eventually(t, func() bool {
		for _, sent := range gw.sentMessages() {
			if strings.Contains(sent.content, "Break ended. Focus for") {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)

	_, err = m.Stop(req.groupID)
	require.NoError(t, err)
}

func TestPomodoroManager_PausedSessionDoesNotTransition(t *testing.T) {
	prevTickRate := pomodoroTickRate
	pomodoroTickRate = 5 * time.Millisecond
	t.Cleanup(func() { pomodoroTickRate = prevTickRate })

	gw := &mockGateway{}
	m := NewPomodoroManager(context.Background(), gw)
	t.Cleanup(m.Shutdown)

	req := testPomodoroRequest()
	req.settings.Focus = 30 * time.Millisecond
	_, err := m.Start(req)
	require.NoError(t, err)

	_, err = m.Pause(req.groupID)
	require.NoError(t, err)

	// well past the focus duration, but the countdown is frozen
	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, gw.sentMessages())

	session, err := m.Resume(req.groupID)
	require.NoError(t, err)
	assert.Equal(t, studyhall.FocusStage, session.stage)

	_, err = m.Stop(req.groupID)
	require.NoError(t, err)
}
