package main

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/Thiht/transactor"
	"github.com/charmbracelet/log"

	"github.com/studyhallbot/studyhall"
	"github.com/studyhallbot/studyhall/sqlite"
)

const (
	defaultMaxGroupSize = 10
	defaultGroupLength  = 12 * time.Hour
)

// GroupManager serializes mutations per guild: the gateway dispatches
// each command in its own goroutine, and capacity/membership checks are
// check-then-act against the store.
type GroupManager struct {
	groups    studyhall.GroupRepo
	resolver  *PermissionResolver
	gateway   Gateway
	voice     *VoiceChannelManager
	pomodoros *PomodoroManager
	tx        transactor.Transactor

	mu         sync.Mutex
	guildLocks map[string]*sync.Mutex
}

func NewGroupManager(
	groups studyhall.GroupRepo,
	resolver *PermissionResolver,
	gateway Gateway,
	voice *VoiceChannelManager,
	pomodoros *PomodoroManager,
	tx transactor.Transactor,
) *GroupManager {
	return &GroupManager{
		groups:     groups,
		resolver:   resolver,
		gateway:    gateway,
		voice:      voice,
		pomodoros:  pomodoros,
		tx:         tx,
		guildLocks: make(map[string]*sync.Mutex),
	}
}

// lockGuild takes the guild's mutation lock, creating it on first use,
// and returns the unlock func.
func (m *GroupManager) lockGuild(guildID string) func() {
	m.mu.Lock()
	l, exists := m.guildLocks[guildID]
	if !exists {
		l = &sync.Mutex{}
		m.guildLocks[guildID] = l
	}
	m.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// CreateGroup persists a group with the creator as first member, then
// provisions the admin and session roles. Role provisioning happens only
// after the rows are committed, so a gateway failure leaves the stored
// group consistent and retryable.
func (m *GroupManager) CreateGroup(ctx context.Context, guildID, creatorID, name string, maxSize int, platformAdmin bool) (studyhall.ExistingStudyGroupRecord, error) {
	defer m.lockGuild(guildID)()

	tier, err := m.resolver.Resolve(ctx, creatorID, guildID, platformAdmin)
	if err != nil {
		return studyhall.ExistingStudyGroupRecord{}, err
	}
	if tier < studyhall.GroupCreator {
		return studyhall.ExistingStudyGroupRecord{}, studyhall.ErrPermissionDenied
	}

	if _, err := m.groups.GetGroupByGuild(ctx, guildID); err == nil {
		return studyhall.ExistingStudyGroupRecord{}, studyhall.ErrDuplicateGroup
	} else if !errors.Is(err, sqlite.ErrNotFound) {
		return studyhall.ExistingStudyGroupRecord{}, err
	}

	if maxSize <= 0 {
		maxSize = defaultMaxGroupSize
	}

	var created studyhall.ExistingStudyGroupRecord
	err = m.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		created, err = m.groups.InsertGroup(ctx, studyhall.StudyGroupRecord{
			Name:      name,
			CreatorID: creatorID,
			MaxSize:   maxSize,
			EndTime:   time.Now().Add(defaultGroupLength),
			GuildID:   guildID,
		})
		if err != nil {
			return err
		}
		return m.groups.AddGroupMember(ctx, created.ID, creatorID)
	})
	if err != nil {
		return studyhall.ExistingStudyGroupRecord{}, fmt.Errorf("failed to create study group: %w", err)
	}
	log.Info("created study group", "id", created.ID, "guildID", guildID, "name", name)

	if err := m.provisionRoles(ctx, &created); err != nil {
		// the group row is committed; a follow-up end_group recovers
		log.Error("failed role provisioning", "groupID", created.ID, "err", err)
		return created, fmt.Errorf("group created but role provisioning failed: %w", err)
	}
	return created, nil
}

func (m *GroupManager) provisionRoles(ctx context.Context, group *studyhall.ExistingStudyGroupRecord) error {
	adminRoleID, err := m.gateway.CreateRole(group.GuildID, "Study Group: "+group.Name, false)
	if err != nil {
		return err
	}
	sessionRoleID, err := m.gateway.CreateRole(group.GuildID, "In "+group.Name, true)
	if err != nil {
		return err
	}
	if err := m.groups.UpdateGroupRoles(ctx, group.ID, adminRoleID, sessionRoleID); err != nil {
		return err
	}
	group.AdminRoleID = adminRoleID
	group.SessionRoleID = sessionRoleID

	if err := m.gateway.AssignRole(group.GuildID, group.CreatorID, adminRoleID); err != nil {
		return err
	}
	return m.gateway.AssignRole(group.GuildID, group.CreatorID, sessionRoleID)
}

// JoinGroup adds the user to the guild's group. Role assignment and the
// voice-channel move run after the membership row commits; a failed move
// is reported but does not roll back membership.
func (m *GroupManager) JoinGroup(ctx context.Context, guildID, userID string) (studyhall.ExistingStudyGroupRecord, error) {
	defer m.lockGuild(guildID)()

	if _, err := m.groups.GetGroupByMember(ctx, userID); err == nil {
		return studyhall.ExistingStudyGroupRecord{}, studyhall.ErrAlreadyInGroup
	} else if !errors.Is(err, sqlite.ErrNotFound) {
		return studyhall.ExistingStudyGroupRecord{}, err
	}

	group, err := m.groups.GetGroupByGuild(ctx, guildID)
	if err != nil {
		if errors.Is(err, sqlite.ErrNotFound) {
			return studyhall.ExistingStudyGroupRecord{}, studyhall.ErrNoSuchGroup
		}
		return studyhall.ExistingStudyGroupRecord{}, err
	}

	members, err := m.groups.GetGroupMembers(ctx, group.ID)
	if err != nil {
		return studyhall.ExistingStudyGroupRecord{}, err
	}
	if len(members) >= group.MaxSize {
		return studyhall.ExistingStudyGroupRecord{}, studyhall.ErrGroupFull
	}

	if err := m.groups.AddGroupMember(ctx, group.ID, userID); err != nil {
		return studyhall.ExistingStudyGroupRecord{}, err
	}
	log.Info("user joined study group", "groupID", group.ID, "userID", userID)

	if group.SessionRoleID != "" {
		if err := m.gateway.AssignRole(guildID, userID, group.SessionRoleID); err != nil {
			log.Error("failed to assign session role", "groupID", group.ID, "userID", userID, "err", err)
		}
	}
	if group.VoiceCID != "" {
		if err := m.gateway.MoveUserToVoice(guildID, userID, group.VoiceCID); err != nil {
			log.Error("failed to move user to group voice channel", "groupID", group.ID, "userID", userID, "err", err)
		}
	}
	return group, nil
}

// LeaveGroup removes the user's membership and session role. Emptying
// the group triggers teardown; tornDown reports whether that happened.
func (m *GroupManager) LeaveGroup(ctx context.Context, guildID, userID string) (group studyhall.ExistingStudyGroupRecord, tornDown bool, err error) {
	defer m.lockGuild(guildID)()

	group, err = m.groups.GetGroupByGuild(ctx, guildID)
	if err != nil {
		if errors.Is(err, sqlite.ErrNotFound) {
			return studyhall.ExistingStudyGroupRecord{}, false, studyhall.ErrNoSuchGroup
		}
		return studyhall.ExistingStudyGroupRecord{}, false, err
	}

	members, err := m.groups.GetGroupMembers(ctx, group.ID)
	if err != nil {
		return studyhall.ExistingStudyGroupRecord{}, false, err
	}
	if !slices.Contains(members, userID) {
		return studyhall.ExistingStudyGroupRecord{}, false, studyhall.ErrNotInGroup
	}

	if err := m.groups.RemoveGroupMember(ctx, group.ID, userID); err != nil {
		return studyhall.ExistingStudyGroupRecord{}, false, err
	}
	log.Info("user left study group", "groupID", group.ID, "userID", userID)

	if group.SessionRoleID != "" {
		if err := m.gateway.RemoveRole(guildID, userID, group.SessionRoleID); err != nil {
			log.Error("failed to remove session role", "groupID", group.ID, "userID", userID, "err", err)
		}
	}

	remaining, err := m.groups.GetGroupMembers(ctx, group.ID)
	if err != nil {
		return group, false, err
	}
	if len(remaining) == 0 {
		if err := m.teardown(ctx, group); err != nil {
			return group, false, err
		}
		return group, true, nil
	}
	return group, false, nil
}

// EndGroup tears the group down unconditionally. Only the group's
// creator may end it; creator status is contextual, not a stored grant.
func (m *GroupManager) EndGroup(ctx context.Context, guildID, requesterID string) (studyhall.ExistingStudyGroupRecord, error) {
	defer m.lockGuild(guildID)()

	group, err := m.groups.GetGroupByGuild(ctx, guildID)
	if err != nil {
		if errors.Is(err, sqlite.ErrNotFound) {
			return studyhall.ExistingStudyGroupRecord{}, studyhall.ErrNoSuchGroup
		}
		return studyhall.ExistingStudyGroupRecord{}, err
	}

	if group.CreatorID != requesterID {
		return studyhall.ExistingStudyGroupRecord{}, studyhall.ErrPermissionDenied
	}

	if err := m.teardown(ctx, group); err != nil {
		return group, err
	}
	return group, nil
}

// teardown cascades: stop the group's pomodoro session, request role
// and voice-channel deletion, then delete the persisted rows. Deletion
// requests are idempotent, so a partial failure is recoverable by a
// follow-up end request.
func (m *GroupManager) teardown(ctx context.Context, group studyhall.ExistingStudyGroupRecord) error {
	if m.pomodoros != nil && m.pomodoros.Has(group.ID) {
		if _, err := m.pomodoros.Stop(group.ID); err != nil {
			log.Error("failed to stop pomodoro session on teardown", "groupID", group.ID, "err", err)
		}
	}

	if group.AdminRoleID != "" {
		if err := m.gateway.DeleteRole(group.GuildID, group.AdminRoleID); err != nil {
			log.Error("failed to delete admin role", "groupID", group.ID, "roleID", group.AdminRoleID, "err", err)
		}
	}
	if group.SessionRoleID != "" {
		if err := m.gateway.DeleteRole(group.GuildID, group.SessionRoleID); err != nil {
			log.Error("failed to delete session role", "groupID", group.ID, "roleID", group.SessionRoleID, "err", err)
		}
	}

	if m.voice != nil {
		if err := m.voice.DeleteChannel(ctx, group.ID); err != nil && !errors.Is(err, studyhall.ErrNoChannel) {
			log.Error("failed to delete group voice channel", "groupID", group.ID, "err", err)
		}
	}

	err := m.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		_, err := m.groups.DeleteGroup(ctx, group.ID)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to delete study group: %w", err)
	}
	log.Info("study group torn down", "groupID", group.ID, "guildID", group.GuildID)
	return nil
}
