package main

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/charmbracelet/log"

	"github.com/studyhallbot/studyhall"
	"github.com/studyhallbot/studyhall/cmd/bot/dgutils"
	"github.com/studyhallbot/studyhall/sqlite"
)

const interactionTimeout = 10 * time.Second

var (
	userMentionPattern    = regexp.MustCompile(`<@!?(\d+)>`)
	roleMentionPattern    = regexp.MustCompile(`<@&(\d+)>`)
	channelMentionPattern = regexp.MustCompile(`<#(\d+)>`)
)

type responder interface {
	Respond(content string, ephemeral bool) error
	RespondWithComponents(content string, components ...discordgo.MessageComponent) error
	RespondEmbed(embed *discordgo.MessageEmbed) error
}

type commandHandler func(ctx context.Context, r responder, s *discordgo.Session, m *discordgo.InteractionCreate)

// Bot routes gateway events to the managers. Command dispatch is a flat
// table keyed by command name.
type Bot struct {
	checkins        *CheckinManager
	pomodoros       *PomodoroManager
	groups          *GroupManager
	voice           *VoiceChannelManager
	resolver        *PermissionResolver
	groupRepo       studyhall.GroupRepo
	tasks           studyhall.TaskRepo
	checkinChannels *checkinChannelRegistry
	parentCtx       context.Context

	handlers map[string]commandHandler
}

func NewBot(
	ctx context.Context,
	checkins *CheckinManager,
	pomodoros *PomodoroManager,
	groups *GroupManager,
	voice *VoiceChannelManager,
	resolver *PermissionResolver,
	groupRepo studyhall.GroupRepo,
	tasks studyhall.TaskRepo,
) *Bot {
	b := &Bot{
		checkins:        checkins,
		pomodoros:       pomodoros,
		groups:          groups,
		voice:           voice,
		resolver:        resolver,
		groupRepo:       groupRepo,
		tasks:           tasks,
		checkinChannels: newCheckinChannelRegistry(),
		parentCtx:       ctx,
	}
	b.handlers = map[string]commandHandler{
		studyhall.CheckinCommand.Name:            b.handleCheckin,
		studyhall.CheckinChannelsCommand.Name:    b.handleCheckinChannels,
		studyhall.CreateGroupCommand.Name:        b.handleCreateGroup,
		studyhall.JoinGroupCommand.Name:          b.handleJoinGroup,
		studyhall.LeaveGroupCommand.Name:         b.handleLeaveGroup,
		studyhall.EndGroupCommand.Name:           b.handleEndGroup,
		studyhall.StartPomodoroCommand.Name:      b.handleStartPomodoro,
		studyhall.EndPomodoroCommand.Name:        b.handleEndPomodoro,
		studyhall.PausePomodoroCommand.Name:      b.handlePausePomodoro,
		studyhall.ResumePomodoroCommand.Name:     b.handleResumePomodoro,
		studyhall.CreateVCCommand.Name:           b.handleCreateVC,
		studyhall.DeleteVCCommand.Name:           b.handleDeleteVC,
		studyhall.AddBotDeveloperCommand.Name:    b.handleAddBotDeveloper,
		studyhall.AddGuildManagerCommand.Name:    b.handleAddGuildManager,
		studyhall.RemoveGuildManagerCommand.Name: b.handleRemoveGuildManager,
		studyhall.ListManagersCommand.Name:       b.handleListManagers,
		studyhall.TaskAddCommand.Name:            b.handleTaskAdd,
		studyhall.TaskCompleteCommand.Name:       b.handleTaskComplete,
		studyhall.TaskListCommand.Name:           b.handleTaskList,
	}
	return b
}

func (b *Bot) HandleInteraction(s *discordgo.Session, m *discordgo.InteractionCreate) {
	ctx, cancel := context.WithTimeout(b.parentCtx, interactionTimeout)
	defer cancel()

	r := dgutils.NewResponder(s, m.Interaction)
	switch m.Type {
	case discordgo.InteractionApplicationCommand:
		name := m.ApplicationCommandData().Name
		handler, ok := b.handlers[name]
		if !ok {
			log.Warn("unhandled command", "name", name)
			return
		}
		handler(ctx, r, s, m)
	case discordgo.InteractionMessageComponent:
		b.handleButton(ctx, r, m)
	}
}

//
// check-ins
//

func (b *Bot) handleCheckin(ctx context.Context, r responder, s *discordgo.Session, m *discordgo.InteractionCreate) {
	if m.GuildID == "" {
		respond(r, "Check-ins only work in servers.", true)
		return
	}
	if !b.checkinChannels.Allowed(m.GuildID, m.ChannelID) {
		respond(r, "Check-ins are not enabled in this channel. A guild manager can enable channels with /checkin_channels.", true)
		return
	}

	opts := options(m)
	interval, err := studyhall.ParseDuration(opts[studyhall.DurationOption].StringValue())
	if err != nil {
		respond(r, "I couldn't read that duration. Try something like `5m` or `45 secs`.", true)
		return
	}

	var mentions []string
	if opt, ok := opts[studyhall.MentionsOption]; ok {
		mentions = expandMentions(s, m.GuildID, opt.StringValue())
	}

	creator := dgutils.GetUser(m.Interaction)
	session, err := b.checkins.Start(startCheckinRequest{
		guildID:   m.GuildID,
		channelID: m.ChannelID,
		creatorID: creator.ID,
		interval:  interval,
		mentions:  mentions,
	})
	switch {
	case errors.Is(err, studyhall.ErrInvalidDuration):
		respond(r, fmt.Sprintf("That interval is too short. The minimum is %s.", studyhall.FormatDuration(minCheckinInterval)), true)
		return
	case errors.Is(err, studyhall.ErrSessionAlreadyActive):
		respond(r, "You already have an active check-in session in this server.", true)
		return
	case err != nil:
		respondInternalError(r, err)
		return
	}

	key := checkinKey{guildID: m.GuildID, creatorID: creator.ID}
	content := fmt.Sprintf("%s\nCheck-in session started for %s!",
		mentionUsers(session.Participants()), studyhall.FormatDuration(interval))
	if err := r.RespondWithComponents(content, checkinButtons(key)); err != nil {
		log.Error("failed to respond to interaction", "err", err)
	}
}

func (b *Bot) handleCheckinChannels(ctx context.Context, r responder, s *discordgo.Session, m *discordgo.InteractionCreate) {
	tier, ok := b.callerTier(ctx, r, m)
	if !ok {
		return
	}
	if tier < studyhall.GuildManager {
		respond(r, "Only guild managers can configure check-in channels.", true)
		return
	}

	var channelIDs []string
	for _, match := range channelMentionPattern.FindAllStringSubmatch(options(m)[studyhall.ChannelsOption].StringValue(), -1) {
		channelIDs = append(channelIDs, match[1])
	}
	if len(channelIDs) == 0 {
		respond(r, "Mention at least one channel, e.g. #study.", true)
		return
	}

	b.checkinChannels.Set(m.GuildID, channelIDs)
	tags := make([]string, 0, len(channelIDs))
	for _, id := range channelIDs {
		tags = append(tags, "<#"+id+">")
	}
	respond(r, "Check-ins are now limited to: "+strings.Join(tags, " "), false)
}

func (b *Bot) handleButton(ctx context.Context, r responder, m *discordgo.InteractionCreate) {
	customID, err := dgutils.ParseCustomID(m.MessageComponentData().CustomID)
	if err != nil {
		log.Warn("unparseable component interaction", "customID", m.MessageComponentData().CustomID)
		return
	}

	key := checkinKey{guildID: customID.GuildID, creatorID: customID.RefID}
	userID := dgutils.GetUser(m.Interaction).ID

	switch customID.Action {
	case checkinJoinAction:
		added, err := b.checkins.Join(key, userID)
		if err != nil {
			respond(r, "This check-in session has ended.", true)
			return
		}
		if added {
			respond(r, "You have now joined the check-in session.", true)
		} else {
			respond(r, "You have already joined the check-in session.", true)
		}
	case checkinLeaveAction:
		removed, err := b.checkins.Leave(key, userID)
		if err != nil {
			respond(r, "This check-in session has ended.", true)
			return
		}
		if removed {
			respond(r, "You have left the check-in session.", true)
		} else {
			respond(r, "You are not part of the check-in session.", true)
		}
	case checkinEndAction:
		err := b.checkins.End(key, userID)
		switch {
		case errors.Is(err, studyhall.ErrPermissionDenied):
			respond(r, "Only the creator can end the session.", true)
		case errors.Is(err, studyhall.ErrNoActiveSession):
			respond(r, "This check-in session has ended.", true)
		case err != nil:
			respondInternalError(r, err)
		default:
			respond(r, "The check-in session has now ended.", false)
		}
	default:
		log.Warn("unhandled component action", "action", customID.Action)
	}
}

//
// study groups
//

func (b *Bot) handleCreateGroup(ctx context.Context, r responder, s *discordgo.Session, m *discordgo.InteractionCreate) {
	opts := options(m)
	name := opts[studyhall.NameOption].StringValue()
	var maxSize int
	if opt, ok := opts[studyhall.MaxSizeOption]; ok {
		maxSize = int(opt.IntValue())
	}

	creator := dgutils.GetUser(m.Interaction)
	group, err := b.groups.CreateGroup(ctx, m.GuildID, creator.ID, name, maxSize, platformAdmin(m))
	switch {
	case errors.Is(err, studyhall.ErrPermissionDenied):
		respond(r, "You don't have permission to create study groups.", true)
	case errors.Is(err, studyhall.ErrDuplicateGroup):
		respond(r, "This server already has a study group. Join it with /join_group.", true)
	case err != nil && group.ID != "":
		respond(r, fmt.Sprintf("Study group '%s' was created, but role setup failed. Use /end_group and recreate it.", group.Name), false)
	case err != nil:
		respondInternalError(r, err)
	default:
		respond(r, fmt.Sprintf("Study group '%s' created! Join with /join_group.", group.Name), false)
	}
}

func (b *Bot) handleJoinGroup(ctx context.Context, r responder, s *discordgo.Session, m *discordgo.InteractionCreate) {
	userID := dgutils.GetUser(m.Interaction).ID
	group, err := b.groups.JoinGroup(ctx, m.GuildID, userID)
	switch {
	case errors.Is(err, studyhall.ErrAlreadyInGroup):
		respond(r, "You're already in a study group.", true)
	case errors.Is(err, studyhall.ErrNoSuchGroup):
		respond(r, "This server has no study group. Create one with /create_group.", true)
	case errors.Is(err, studyhall.ErrGroupFull):
		respond(r, "The study group is full.", true)
	case err != nil:
		respondInternalError(r, err)
	default:
		respond(r, fmt.Sprintf("You've joined the study group '%s'!", group.Name), false)
	}
}

func (b *Bot) handleLeaveGroup(ctx context.Context, r responder, s *discordgo.Session, m *discordgo.InteractionCreate) {
	userID := dgutils.GetUser(m.Interaction).ID
	group, tornDown, err := b.groups.LeaveGroup(ctx, m.GuildID, userID)
	switch {
	case errors.Is(err, studyhall.ErrNoSuchGroup):
		respond(r, "This server has no study group.", true)
	case errors.Is(err, studyhall.ErrNotInGroup):
		respond(r, "You're not in the study group.", true)
	case err != nil:
		respondInternalError(r, err)
	case tornDown:
		respond(r, fmt.Sprintf("You've left the study group '%s'. It is now empty and has been disbanded.", group.Name), false)
	default:
		respond(r, fmt.Sprintf("You've left the study group '%s'.", group.Name), false)
	}
}

func (b *Bot) handleEndGroup(ctx context.Context, r responder, s *discordgo.Session, m *discordgo.InteractionCreate) {
	userID := dgutils.GetUser(m.Interaction).ID
	group, err := b.groups.EndGroup(ctx, m.GuildID, userID)
	switch {
	case errors.Is(err, studyhall.ErrNoSuchGroup):
		respond(r, "This server has no study group.", true)
	case errors.Is(err, studyhall.ErrPermissionDenied):
		respond(r, "Only the group's creator can end it.", true)
	case err != nil:
		respondInternalError(r, err)
	default:
		respond(r, fmt.Sprintf("The study group '%s' has ended. Thanks for studying!", group.Name), false)
	}
}

//
// pomodoro
//

func (b *Bot) handleStartPomodoro(ctx context.Context, r responder, s *discordgo.Session, m *discordgo.InteractionCreate) {
	userID := dgutils.GetUser(m.Interaction).ID
	group, ok := b.memberGroup(ctx, r, userID)
	if !ok {
		return
	}

	settings := studyhall.DefaultPomodoroSettings()
	opts := options(m)
	if opt, ok := opts[studyhall.FocusOption]; ok {
		settings.Focus = time.Duration(opt.IntValue()) * time.Minute
	}
	if opt, ok := opts[studyhall.ShortBreakOption]; ok {
		settings.ShortBreak = time.Duration(opt.IntValue()) * time.Minute
	}
	if opt, ok := opts[studyhall.LongBreakOption]; ok {
		settings.LongBreak = time.Duration(opt.IntValue()) * time.Minute
	}

	if group.VoiceCID == "" {
		cid, err := b.voice.CreateChannel(ctx, group, "")
		if err != nil && !errors.Is(err, studyhall.ErrChannelAlreadyExists) {
			log.Error("failed to create voice channel for pomodoro", "groupID", group.ID, "err", err)
		} else if err == nil {
			group.VoiceCID = cid
		}
	}

	_, err := b.pomodoros.Start(startPomodoroRequest{
		groupID:       group.ID,
		guildID:       group.GuildID,
		channelID:     m.ChannelID,
		sessionRoleID: group.SessionRoleID,
		settings:      settings,
	})
	if errors.Is(err, studyhall.ErrSessionAlreadyActive) {
		respond(r, "A Pomodoro session is already running for your group.", true)
		return
	} else if err != nil {
		respondInternalError(r, err)
		return
	}

	if group.VoiceCID != "" {
		if err := b.groups.gateway.MoveUserToVoice(group.GuildID, userID, group.VoiceCID); err != nil {
			log.Debug("could not move user to voice channel", "userID", userID, "err", err)
		}
	}
	respond(r, fmt.Sprintf("Pomodoro session started! Focus for %s.", studyhall.FormatDuration(settings.Focus)), false)
}

func (b *Bot) handleEndPomodoro(ctx context.Context, r responder, s *discordgo.Session, m *discordgo.InteractionCreate) {
	group, ok := b.memberGroup(ctx, r, dgutils.GetUser(m.Interaction).ID)
	if !ok {
		return
	}
	session, err := b.pomodoros.Stop(group.ID)
	if errors.Is(err, studyhall.ErrNoActiveSession) {
		respond(r, "No active Pomodoro session for your group.", true)
		return
	} else if err != nil {
		respondInternalError(r, err)
		return
	}
	respond(r, fmt.Sprintf("Pomodoro session ended after %d completed focus cycle(s).", session.cycleCount), false)
}

func (b *Bot) handlePausePomodoro(ctx context.Context, r responder, s *discordgo.Session, m *discordgo.InteractionCreate) {
	group, ok := b.memberGroup(ctx, r, dgutils.GetUser(m.Interaction).ID)
	if !ok {
		return
	}
	session, err := b.pomodoros.Pause(group.ID)
	if errors.Is(err, studyhall.ErrNoActiveSession) {
		respond(r, "No active Pomodoro session for your group.", true)
		return
	} else if err != nil {
		respond(r, "The session is already paused.", true)
		return
	}
	respond(r, fmt.Sprintf("Pomodoro paused with %s remaining.", studyhall.FormatDuration(session.Remaining())), false)
}

func (b *Bot) handleResumePomodoro(ctx context.Context, r responder, s *discordgo.Session, m *discordgo.InteractionCreate) {
	group, ok := b.memberGroup(ctx, r, dgutils.GetUser(m.Interaction).ID)
	if !ok {
		return
	}
	session, err := b.pomodoros.Resume(group.ID)
	if errors.Is(err, studyhall.ErrNoActiveSession) {
		respond(r, "No active Pomodoro session for your group.", true)
		return
	} else if err != nil {
		respond(r, "The session is not paused.", true)
		return
	}
	respond(r, fmt.Sprintf("Pomodoro resumed with %s remaining.", studyhall.FormatDuration(session.Remaining())), false)
}

//
// voice channels
//

func (b *Bot) handleCreateVC(ctx context.Context, r responder, s *discordgo.Session, m *discordgo.InteractionCreate) {
	group, ok := b.memberGroup(ctx, r, dgutils.GetUser(m.Interaction).ID)
	if !ok {
		return
	}
	var name string
	if opt, exists := options(m)[studyhall.NameOption]; exists {
		name = opt.StringValue()
	}
	cid, err := b.voice.CreateChannel(ctx, group, name)
	if errors.Is(err, studyhall.ErrChannelAlreadyExists) {
		respond(r, "Your group already has a voice channel.", true)
		return
	} else if err != nil {
		respondInternalError(r, err)
		return
	}
	respond(r, fmt.Sprintf("Voice channel created: <#%s>", cid), false)
}

func (b *Bot) handleDeleteVC(ctx context.Context, r responder, s *discordgo.Session, m *discordgo.InteractionCreate) {
	group, ok := b.memberGroup(ctx, r, dgutils.GetUser(m.Interaction).ID)
	if !ok {
		return
	}
	err := b.voice.DeleteChannel(ctx, group.ID)
	if errors.Is(err, studyhall.ErrNoChannel) {
		respond(r, "Your group has no voice channel.", true)
		return
	} else if err != nil {
		respondInternalError(r, err)
		return
	}
	respond(r, "Voice channel deleted.", false)
}

// HandleVoiceStateUpdate watches for users leaving voice channels so an
// emptied group channel gets cleaned up.
func (b *Bot) HandleVoiceStateUpdate(s *discordgo.Session, m *discordgo.VoiceStateUpdate) {
	if m.BeforeUpdate == nil || m.BeforeUpdate.ChannelID == "" {
		return
	}
	left := m.BeforeUpdate.ChannelID
	if m.ChannelID == left {
		return
	}

	guild, err := s.State.Guild(m.BeforeUpdate.GuildID)
	if err != nil {
		return
	}
	occupants := 0
	for _, vs := range guild.VoiceStates {
		if vs.ChannelID == left && vs.UserID != m.UserID {
			occupants++
		}
	}

	ctx, cancel := context.WithTimeout(b.parentCtx, interactionTimeout)
	defer cancel()
	b.voice.HandleOccupancyChange(ctx, studyhall.VoiceChannelID(left), occupants)
}

//
// managers
//

func (b *Bot) handleAddBotDeveloper(ctx context.Context, r responder, s *discordgo.Session, m *discordgo.InteractionCreate) {
	tier, ok := b.callerTier(ctx, r, m)
	if !ok {
		return
	}
	target := options(m)[studyhall.UserOption].UserValue(s)
	grant, err := b.resolver.AddGrant(ctx, tier, studyhall.ManagerGrantRecord{
		UserID: target.ID,
		Level:  studyhall.BotDeveloper,
	})
	if errors.Is(err, studyhall.ErrPermissionDenied) {
		respond(r, "Only bot developers can add bot developers.", true)
		return
	} else if err != nil {
		respondInternalError(r, err)
		return
	}
	respond(r, fmt.Sprintf("%s is now a %s.", target.Mention(), grant.Level), false)
}

func (b *Bot) handleAddGuildManager(ctx context.Context, r responder, s *discordgo.Session, m *discordgo.InteractionCreate) {
	tier, ok := b.callerTier(ctx, r, m)
	if !ok {
		return
	}
	target := options(m)[studyhall.UserOption].UserValue(s)
	grant, err := b.resolver.AddGrant(ctx, tier, studyhall.ManagerGrantRecord{
		UserID:  target.ID,
		GuildID: m.GuildID,
		Level:   studyhall.GuildManager,
	})
	if errors.Is(err, studyhall.ErrPermissionDenied) {
		respond(r, "Only bot developers can add guild managers.", true)
		return
	} else if err != nil {
		respondInternalError(r, err)
		return
	}
	respond(r, fmt.Sprintf("%s is now a %s.", target.Mention(), grant.Level), false)
}

func (b *Bot) handleRemoveGuildManager(ctx context.Context, r responder, s *discordgo.Session, m *discordgo.InteractionCreate) {
	tier, ok := b.callerTier(ctx, r, m)
	if !ok {
		return
	}
	target := options(m)[studyhall.UserOption].UserValue(s)
	removed, err := b.resolver.RemoveGrant(ctx, tier, target.ID, m.GuildID)
	switch {
	case errors.Is(err, studyhall.ErrPermissionDenied):
		respond(r, "Only guild managers and above can remove guild managers.", true)
	case errors.Is(err, sqlite.ErrNotFound):
		respond(r, fmt.Sprintf("%s has no manager grant in this server.", target.Mention()), true)
	case err != nil:
		respondInternalError(r, err)
	default:
		respond(r, fmt.Sprintf("Removed %s's %s grant.", target.Mention(), removed.Level), false)
	}
}

func (b *Bot) handleListManagers(ctx context.Context, r responder, s *discordgo.Session, m *discordgo.InteractionCreate) {
	grants, err := b.resolver.ListGrants(ctx, m.GuildID)
	if err != nil {
		respondInternalError(r, err)
		return
	}
	if len(grants) == 0 {
		respond(r, "No managers are configured for this server.", true)
		return
	}

	fields := make([]*discordgo.MessageEmbedField, 0, len(grants))
	for _, grant := range grants {
		name := grant.Level.String()
		if grant.GuildID == "" {
			name += " (bot-wide)"
		}
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:  name,
			Value: "<@" + grant.UserID + ">",
		})
	}
	if err := r.RespondEmbed(&discordgo.MessageEmbed{
		Title:  "Managers",
		Fields: fields,
	}); err != nil {
		log.Error("failed to respond to interaction", "err", err)
	}
}

//
// helpers
//

// memberGroup resolves the user's study group, responding for them when
// they aren't in one.
func (b *Bot) memberGroup(ctx context.Context, r responder, userID string) (studyhall.ExistingStudyGroupRecord, bool) {
	group, err := b.groupRepo.GetGroupByMember(ctx, userID)
	if errors.Is(err, sqlite.ErrNotFound) {
		respond(r, "You're not in a study group. Join one with /join_group.", true)
		return studyhall.ExistingStudyGroupRecord{}, false
	} else if err != nil {
		respondInternalError(r, err)
		return studyhall.ExistingStudyGroupRecord{}, false
	}
	return group, true
}

func (b *Bot) callerTier(ctx context.Context, r responder, m *discordgo.InteractionCreate) (studyhall.PermissionLevel, bool) {
	userID := dgutils.GetUser(m.Interaction).ID
	tier, err := b.resolver.Resolve(ctx, userID, m.GuildID, platformAdmin(m))
	if err != nil {
		respondInternalError(r, err)
		return studyhall.RegularUser, false
	}
	return tier, true
}

func platformAdmin(m *discordgo.InteractionCreate) bool {
	return m.Member != nil && m.Member.Permissions&discordgo.PermissionAdministrator != 0
}

func options(m *discordgo.InteractionCreate) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	data := m.ApplicationCommandData()
	opts := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(data.Options))
	for _, opt := range data.Options {
		opts[opt.Name] = opt
	}
	return opts
}

// expandMentions collects user ids from raw mention text. Role mentions
// expand to the role's members via gateway state.
func expandMentions(s *discordgo.Session, guildID, text string) []string {
	var ids []string
	for _, match := range userMentionPattern.FindAllStringSubmatch(text, -1) {
		ids = append(ids, match[1])
	}

	var roleIDs []string
	for _, match := range roleMentionPattern.FindAllStringSubmatch(text, -1) {
		roleIDs = append(roleIDs, match[1])
	}
	if len(roleIDs) == 0 {
		return ids
	}

	guild, err := s.State.Guild(guildID)
	if err != nil {
		log.Warn("guild not in state, skipping role mentions", "guildID", guildID)
		return ids
	}
	for _, member := range guild.Members {
		for _, roleID := range roleIDs {
			if slices.Contains(member.Roles, roleID) {
				ids = append(ids, member.User.ID)
				break
			}
		}
	}
	return ids
}

func respond(r responder, content string, ephemeral bool) {
	if err := r.Respond(content, ephemeral); err != nil {
		log.Error("failed to respond to interaction", "err", err)
	}
}

func respondInternalError(r responder, err error) {
	log.Error("command failed", "err", err)
	respond(r, "Something went wrong. Please try again.", true)
}
