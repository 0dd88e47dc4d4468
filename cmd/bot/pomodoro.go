package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/studyhallbot/studyhall"
)

var pomodoroTickRate = time.Second

type PomodoroSession struct {
	groupID       studyhall.GroupID
	guildID       string
	channelID     string
	sessionRoleID string
	settings      studyhall.PomodoroSettings

	stage      studyhall.Stage
	cycleCount int
	status     studyhall.SessionStatus
	startedAt  time.Time

	// deadline accounting: the stage ends when remainingAtStart has
	// elapsed since stageStartedAt; pausing freezes remainingAtStart
	stageStartedAt   time.Time
	remainingAtStart time.Duration
}

func newPomodoroSession(req startPomodoroRequest) *PomodoroSession {
	now := time.Now()
	return &PomodoroSession{
		groupID:          req.groupID,
		guildID:          req.guildID,
		channelID:        req.channelID,
		sessionRoleID:    req.sessionRoleID,
		settings:         req.settings,
		stage:            studyhall.FocusStage,
		status:           studyhall.SessionRunning,
		startedAt:        now,
		stageStartedAt:   now,
		remainingAtStart: req.settings.Focus,
	}
}

func (s *PomodoroSession) Remaining() time.Duration {
	if s.status != studyhall.SessionRunning {
		return s.remainingAtStart
	}
	return s.remainingAtStart - time.Since(s.stageStartedAt)
}

func (s *PomodoroSession) stageDuration() time.Duration {
	switch s.stage {
	case studyhall.FocusStage:
		return s.settings.Focus
	case studyhall.ShortBreakStage:
		return s.settings.ShortBreak
	case studyhall.LongBreakStage:
		return s.settings.LongBreak
	default:
		return 0
	}
}

// goNextStage advances the cycle: a completed focus stage counts toward
// the long-break cadence, any break returns to focus.
func (s *PomodoroSession) goNextStage() {
	if s.stage == studyhall.FocusStage {
		s.cycleCount++
		if s.cycleCount%s.settings.CyclesPerLongBreak == 0 {
			s.stage = studyhall.LongBreakStage
		} else {
			s.stage = studyhall.ShortBreakStage
		}
	} else {
		s.stage = studyhall.FocusStage
	}
	s.stageStartedAt = time.Now()
	s.remainingAtStart = s.stageDuration()
}

func (s *PomodoroSession) pause() {
	s.remainingAtStart = s.Remaining()
	s.status = studyhall.SessionPaused
}

func (s *PomodoroSession) resume() {
	s.stageStartedAt = time.Now()
	s.status = studyhall.SessionRunning
}

type startPomodoroRequest struct {
	groupID       studyhall.GroupID
	guildID       string
	channelID     string
	sessionRoleID string
	settings      studyhall.PomodoroSettings
}

type PomodoroManager struct {
	reg       *registry[studyhall.GroupID, PomodoroSession]
	gateway   Gateway
	wg        sync.WaitGroup
	parentCtx context.Context
}

func NewPomodoroManager(ctx context.Context, gateway Gateway) *PomodoroManager {
	return &PomodoroManager{
		reg:       newRegistry[studyhall.GroupID, PomodoroSession](),
		gateway:   gateway,
		parentCtx: ctx,
	}
}

// Start creates the group's pomodoro session in the focus stage. One
// active session per group.
func (m *PomodoroManager) Start(req startPomodoroRequest) (PomodoroSession, error) {
	session := newPomodoroSession(req)
	sessionCtx, err := m.reg.Add(m.parentCtx, req.groupID, session)
	if err != nil {
		return PomodoroSession{}, err
	}

	m.wg.Go(func() {
		m.timerLoop(sessionCtx, req.groupID)
	})
	log.Info("started pomodoro session", "groupID", req.groupID, "focus", req.settings.Focus)
	return *session, nil
}

func (m *PomodoroManager) timerLoop(ctx context.Context, key studyhall.GroupID) {
	ticker := time.NewTicker(pomodoroTickRate)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		var notification, channelID, roleID string
		s, unlock := m.reg.Get(key)
		if s == nil {
			return
		}
		if ctx.Err() != nil {
			unlock()
			return
		}
		// a paused session's countdown is frozen; no transition fires
		if s.status == studyhall.SessionRunning && s.Remaining() <= 0 {
			s.goNextStage()
			notification = stageNotification(s)
			channelID = s.channelID
			roleID = s.sessionRoleID
		}
		unlock()

		if notification != "" {
			content := notification
			if roleID != "" {
				content = fmt.Sprintf("<@&%s> %s", roleID, notification)
			}
			if _, err := m.gateway.SendMessage(channelID, content); err != nil {
				log.Error("failed to send stage notification", "groupID", key, "err", err)
			}
		}
	}
}

func (m *PomodoroManager) Pause(key studyhall.GroupID) (PomodoroSession, error) {
	s, unlock := m.reg.Get(key)
	if s == nil {
		return PomodoroSession{}, studyhall.ErrNoActiveSession
	}
	defer unlock()

	if s.status == studyhall.SessionPaused {
		return *s, fmt.Errorf("session is already paused")
	}
	s.pause()
	log.Info("paused pomodoro session", "groupID", key, "remaining", s.remainingAtStart)
	return *s, nil
}

// Resume continues the countdown from the frozen remainder.
func (m *PomodoroManager) Resume(key studyhall.GroupID) (PomodoroSession, error) {
	s, unlock := m.reg.Get(key)
	if s == nil {
		return PomodoroSession{}, studyhall.ErrNoActiveSession
	}
	defer unlock()

	if s.status != studyhall.SessionPaused {
		return *s, fmt.Errorf("session is not paused")
	}
	s.resume()
	log.Info("resumed pomodoro session", "groupID", key, "remaining", s.remainingAtStart)
	return *s, nil
}

// Stop is terminal: the timer is cancelled and the session leaves the
// registry before this returns.
func (m *PomodoroManager) Stop(key studyhall.GroupID) (PomodoroSession, error) {
	s, unlock := m.reg.Get(key)
	if s == nil {
		return PomodoroSession{}, studyhall.ErrNoActiveSession
	}
	ended := *s
	ended.status = studyhall.SessionStopped
	unlock()

	m.reg.Remove(key)
	log.Info("stopped pomodoro session", "groupID", key, "cycles", ended.cycleCount)
	return ended, nil
}

func (m *PomodoroManager) Has(key studyhall.GroupID) bool {
	return m.reg.Has(key)
}

func (m *PomodoroManager) Shutdown() {
	m.reg.Shutdown()
	m.wg.Wait()
}

func stageNotification(s *PomodoroSession) string {
	switch s.stage {
	case studyhall.LongBreakStage:
		return fmt.Sprintf("Focus session ended. Take a long break for %s!", studyhall.FormatDuration(s.settings.LongBreak))
	case studyhall.ShortBreakStage:
		return fmt.Sprintf("Focus session ended. Take a short break for %s!", studyhall.FormatDuration(s.settings.ShortBreak))
	default:
		return fmt.Sprintf("Break ended. Focus for %s!", studyhall.FormatDuration(s.settings.Focus))
	}
}
