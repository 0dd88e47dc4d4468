package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/charmbracelet/log"

	"github.com/studyhallbot/studyhall"
	"github.com/studyhallbot/studyhall/cmd/bot/dgutils"
)

const minCheckinInterval = 30 * time.Second

const (
	checkinJoinAction  = "checkin_join"
	checkinLeaveAction = "checkin_leave"
	checkinEndAction   = "checkin_end"
)

// phrases rotated at random so repeated reminders don't read identically
var progressPhrases = []string{
	"How's your progress?",
	"What have you achieved so far?",
	"Any updates on your task?",
	"How are things going?",
	"How is your work progressing?",
	"What have you done since the last check-in?",
	"What's your status?",
	"How's it going?",
	"Any progress to report?",
	"What have you completed?",
}

// checkinKey identifies a check-in session: one active session per
// creator per guild.
type checkinKey struct {
	guildID, creatorID string
}

type CheckinSession struct {
	guildID   string
	channelID string
	creatorID string
	interval  time.Duration

	participants   []string
	startedAt      time.Time
	lastReminderAt time.Time
}

func (s *CheckinSession) addParticipant(userID string) bool {
	if slices.Contains(s.participants, userID) {
		return false
	}
	s.participants = append(s.participants, userID)
	return true
}

func (s *CheckinSession) removeParticipant(userID string) bool {
	i := slices.Index(s.participants, userID)
	if i == -1 {
		return false
	}
	s.participants = slices.Delete(s.participants, i, i+1)
	return true
}

func (s *CheckinSession) Participants() []string {
	return slices.Clone(s.participants)
}

type startCheckinRequest struct {
	guildID, channelID, creatorID string
	interval                      time.Duration
	mentions                      []string
}

type CheckinManager struct {
	reg       *registry[checkinKey, CheckinSession]
	gateway   Gateway
	wg        sync.WaitGroup
	parentCtx context.Context
}

func NewCheckinManager(ctx context.Context, gateway Gateway) *CheckinManager {
	return &CheckinManager{
		reg:       newRegistry[checkinKey, CheckinSession](),
		gateway:   gateway,
		parentCtx: ctx,
	}
}

// Start creates a check-in session and arms its reminder loop. The
// creator always participates, mentioned users are deduplicated.
func (m *CheckinManager) Start(req startCheckinRequest) (CheckinSession, error) {
	if req.interval < minCheckinInterval {
		return CheckinSession{}, fmt.Errorf("%w: minimum check-in interval is %s", studyhall.ErrInvalidDuration, studyhall.FormatDuration(minCheckinInterval))
	}

	now := time.Now()
	session := &CheckinSession{
		guildID:        req.guildID,
		channelID:      req.channelID,
		creatorID:      req.creatorID,
		interval:       req.interval,
		startedAt:      now,
		lastReminderAt: now,
	}
	session.addParticipant(req.creatorID)
	for _, userID := range req.mentions {
		session.addParticipant(userID)
	}

	key := checkinKey{guildID: req.guildID, creatorID: req.creatorID}
	sessionCtx, err := m.reg.Add(m.parentCtx, key, session)
	if err != nil {
		return CheckinSession{}, err
	}

	m.wg.Go(func() {
		m.reminderLoop(sessionCtx, key, req.interval)
	})
	log.Info("started check-in session", "guildID", req.guildID, "creatorID", req.creatorID, "interval", req.interval)
	return *session, nil
}

func (m *CheckinManager) reminderLoop(ctx context.Context, key checkinKey, interval time.Duration) {
	timer := time.NewTimer(interval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		// re-fetch under the key lock; an ended session means the tick
		// was in flight at cancellation time and must not dispatch
		s, unlock := m.reg.Get(key)
		if s == nil {
			return
		}
		if ctx.Err() != nil {
			unlock()
			return
		}
		now := time.Now()
		// wall-clock elapsed, not the nominal interval, to show drift
		minutesAgo := int(now.Sub(s.lastReminderAt).Minutes())
		s.lastReminderAt = now
		channelID := s.channelID
		mentions := mentionUsers(s.participants)
		unlock()

		phrase := progressPhrases[rand.IntN(len(progressPhrases))]
		content := fmt.Sprintf("%s, %s\nLast reminder: %d minutes ago", mentions, phrase, minutesAgo)
		if _, err := m.gateway.SendMessage(channelID, content, checkinButtons(key)); err != nil {
			log.Error("failed to send check-in reminder", "guildID", key.guildID, "creatorID", key.creatorID, "err", err)
		}

		timer.Reset(interval)
	}
}

// Join adds a participant; reports false if they were already in.
func (m *CheckinManager) Join(key checkinKey, userID string) (bool, error) {
	s, unlock := m.reg.Get(key)
	if s == nil {
		return false, studyhall.ErrNoActiveSession
	}
	defer unlock()
	return s.addParticipant(userID), nil
}

// Leave removes a participant; reports false if they weren't in.
func (m *CheckinManager) Leave(key checkinKey, userID string) (bool, error) {
	s, unlock := m.reg.Get(key)
	if s == nil {
		return false, studyhall.ErrNoActiveSession
	}
	defer unlock()
	return s.removeParticipant(userID), nil
}

// End cancels the reminder timer and removes the session. Only the
// creator may end it.
func (m *CheckinManager) End(key checkinKey, requesterID string) error {
	s, unlock := m.reg.Get(key)
	if s == nil {
		return studyhall.ErrNoActiveSession
	}
	creatorID := s.creatorID
	unlock()

	if creatorID != requesterID {
		return studyhall.ErrPermissionDenied
	}

	m.reg.Remove(key)
	log.Info("ended check-in session", "guildID", key.guildID, "creatorID", key.creatorID)
	return nil
}

func (m *CheckinManager) Get(key checkinKey) (CheckinSession, error) {
	s, unlock := m.reg.Get(key)
	if s == nil {
		return CheckinSession{}, studyhall.ErrNoActiveSession
	}
	defer unlock()
	return *s, nil
}

func (m *CheckinManager) Shutdown() {
	m.reg.Shutdown()
	m.wg.Wait()
}

func mentionUsers(userIDs []string) string {
	mentions := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		mentions = append(mentions, "<@"+id+">")
	}
	return strings.Join(mentions, " ")
}

func checkinButtons(key checkinKey) discordgo.MessageComponent {
	return discordgo.ActionsRow{
		Components: []discordgo.MessageComponent{
			discordgo.Button{
				Label:    "Join",
				Style:    discordgo.SuccessButton,
				CustomID: dgutils.CustomID{Action: checkinJoinAction, GuildID: key.guildID, RefID: key.creatorID}.String(),
			},
			discordgo.Button{
				Label:    "Leave",
				Style:    discordgo.DangerButton,
				CustomID: dgutils.CustomID{Action: checkinLeaveAction, GuildID: key.guildID, RefID: key.creatorID}.String(),
			},
			discordgo.Button{
				Label:    "End",
				Style:    discordgo.PrimaryButton,
				CustomID: dgutils.CustomID{Action: checkinEndAction, GuildID: key.guildID, RefID: key.creatorID}.String(),
			},
		},
	}
}
