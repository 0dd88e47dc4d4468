package studyhall

import "time"

type SessionStatus uint8

const (
	_ SessionStatus = iota
	SessionRunning
	SessionPaused
	SessionStopped
)

func (s SessionStatus) String() string {
	switch s {
	case SessionRunning:
		return "Running"
	case SessionPaused:
		return "Paused"
	case SessionStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

type Stage uint8

const (
	_ Stage = iota
	FocusStage
	ShortBreakStage
	LongBreakStage
)

func (s Stage) String() string {
	switch s {
	case FocusStage:
		return "Focus"
	case ShortBreakStage:
		return "Short Break"
	case LongBreakStage:
		return "Long Break"
	default:
		return "Unknown"
	}
}

type VoiceChannelID string

type PomodoroSettings struct {
	Focus      time.Duration
	ShortBreak time.Duration
	LongBreak  time.Duration

	// completed focus stages between long breaks
	CyclesPerLongBreak int
}

func DefaultPomodoroSettings() PomodoroSettings {
	return PomodoroSettings{
		Focus:              25 * time.Minute,
		ShortBreak:         5 * time.Minute,
		LongBreak:          15 * time.Minute,
		CyclesPerLongBreak: 4,
	}
}
