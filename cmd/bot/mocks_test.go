package main

import (
	"context"
	"sync"

	"github.com/Thiht/transactor"
	"github.com/bwmarrin/discordgo"

	"github.com/studyhallbot/studyhall"
	"github.com/studyhallbot/studyhall/sqlite"
)

type sentMessage struct {
	channelID string
	content   string
}

// mockGateway is a mock implementation of Gateway. Sent messages are
// always recorded; the func fields override individual behaviors.
type mockGateway struct {
	mu   sync.Mutex
	sent []sentMessage

	sendMessageFunc        func(channelID, content string, components ...discordgo.MessageComponent) (*discordgo.Message, error)
	createRoleFunc         func(guildID, name string, mentionable bool) (string, error)
	deleteRoleFunc         func(guildID, roleID string) error
	assignRoleFunc         func(guildID, userID, roleID string) error
	removeRoleFunc         func(guildID, userID, roleID string) error
	createVoiceChannelFunc func(guildID, name, sessionRoleID string) (studyhall.VoiceChannelID, error)
	deleteChannelFunc      func(channelID string) error
	moveUserToVoiceFunc    func(guildID, userID string, cid studyhall.VoiceChannelID) error
}

var _ Gateway = (*mockGateway)(nil)

func (g *mockGateway) SendMessage(channelID, content string, components ...discordgo.MessageComponent) (*discordgo.Message, error) {
	g.mu.Lock()
	g.sent = append(g.sent, sentMessage{channelID: channelID, content: content})
	g.mu.Unlock()
	if g.sendMessageFunc != nil {
		return g.sendMessageFunc(channelID, content, components...)
	}
	return &discordgo.Message{}, nil
}

func (g *mockGateway) sentMessages() []sentMessage {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]sentMessage, len(g.sent))
	copy(out, g.sent)
	return out
}

func (g *mockGateway) CreateRole(guildID, name string, mentionable bool) (string, error) {
	if g.createRoleFunc != nil {
		return g.createRoleFunc(guildID, name, mentionable)
	}
	return "role-" + name, nil
}

func (g *mockGateway) DeleteRole(guildID, roleID string) error {
	if g.deleteRoleFunc != nil {
		return g.deleteRoleFunc(guildID, roleID)
	}
	return nil
}

func (g *mockGateway) AssignRole(guildID, userID, roleID string) error {
	if g.assignRoleFunc != nil {
		return g.assignRoleFunc(guildID, userID, roleID)
	}
	return nil
}

func (g *mockGateway) RemoveRole(guildID, userID, roleID string) error {
	if g.removeRoleFunc != nil {
		return g.removeRoleFunc(guildID, userID, roleID)
	}
	return nil
}

func (g *mockGateway) CreateVoiceChannel(guildID, name, sessionRoleID string) (studyhall.VoiceChannelID, error) {
	if g.createVoiceChannelFunc != nil {
		return g.createVoiceChannelFunc(guildID, name, sessionRoleID)
	}
	return "vc-" + studyhall.VoiceChannelID(name), nil
}

func (g *mockGateway) DeleteChannel(channelID string) error {
	if g.deleteChannelFunc != nil {
		return g.deleteChannelFunc(channelID)
	}
	return nil
}

func (g *mockGateway) MoveUserToVoice(guildID, userID string, cid studyhall.VoiceChannelID) error {
	if g.moveUserToVoiceFunc != nil {
		return g.moveUserToVoiceFunc(guildID, userID, cid)
	}
	return nil
}

// mockGroupRepo is a mock implementation of studyhall.GroupRepo. Lookups
// default to sqlite.ErrNotFound, writes to success.
type mockGroupRepo struct {
	insertGroupFunc               func(context.Context, studyhall.StudyGroupRecord) (studyhall.ExistingStudyGroupRecord, error)
	getGroupByGuildFunc           func(ctx context.Context, guildID string) (studyhall.ExistingStudyGroupRecord, error)
	getGroupByMemberFunc          func(ctx context.Context, userID string) (studyhall.ExistingStudyGroupRecord, error)
	deleteGroupFunc               func(ctx context.Context, id studyhall.GroupID) (studyhall.ExistingStudyGroupRecord, error)
	updateGroupRolesFunc          func(ctx context.Context, id studyhall.GroupID, adminRoleID, sessionRoleID string) error
	updateGroupVoiceChannelFunc   func(ctx context.Context, id studyhall.GroupID, cid studyhall.VoiceChannelID) error
	getGroupsWithVoiceChannelsFunc func(context.Context) ([]studyhall.ExistingStudyGroupRecord, error)
	addGroupMemberFunc            func(ctx context.Context, id studyhall.GroupID, userID string) error
	removeGroupMemberFunc         func(ctx context.Context, id studyhall.GroupID, userID string) error
	getGroupMembersFunc           func(ctx context.Context, id studyhall.GroupID) ([]string, error)
}

var _ studyhall.GroupRepo = (*mockGroupRepo)(nil)

func (m *mockGroupRepo) InsertGroup(ctx context.Context, group studyhall.StudyGroupRecord) (studyhall.ExistingStudyGroupRecord, error) {
	if m.insertGroupFunc != nil {
		return m.insertGroupFunc(ctx, group)
	}
	return studyhall.ExistingStudyGroupRecord{
		ExistingRecord:   studyhall.NewExistingRecord[studyhall.GroupID]("group-1"),
		StudyGroupRecord: group,
	}, nil
}

func (m *mockGroupRepo) GetGroupByGuild(ctx context.Context, guildID string) (studyhall.ExistingStudyGroupRecord, error) {
	if m.getGroupByGuildFunc != nil {
		return m.getGroupByGuildFunc(ctx, guildID)
	}
	return studyhall.ExistingStudyGroupRecord{}, sqlite.ErrNotFound
}

func (m *mockGroupRepo) GetGroupByMember(ctx context.Context, userID string) (studyhall.ExistingStudyGroupRecord, error) {
	if m.getGroupByMemberFunc != nil {
		return m.getGroupByMemberFunc(ctx, userID)
	}
	return studyhall.ExistingStudyGroupRecord{}, sqlite.ErrNotFound
}

func (m *mockGroupRepo) DeleteGroup(ctx context.Context, id studyhall.GroupID) (studyhall.ExistingStudyGroupRecord, error) {
	if m.deleteGroupFunc != nil {
		return m.deleteGroupFunc(ctx, id)
	}
	return studyhall.ExistingStudyGroupRecord{}, nil
}

func (m *mockGroupRepo) UpdateGroupRoles(ctx context.Context, id studyhall.GroupID, adminRoleID, sessionRoleID string) error {
	if m.updateGroupRolesFunc != nil {
		return m.updateGroupRolesFunc(ctx, id, adminRoleID, sessionRoleID)
	}
	return nil
}

func (m *mockGroupRepo) UpdateGroupVoiceChannel(ctx context.Context, id studyhall.GroupID, cid studyhall.VoiceChannelID) error {
	if m.updateGroupVoiceChannelFunc != nil {
		return m.updateGroupVoiceChannelFunc(ctx, id, cid)
	}
	return nil
}

func (m *mockGroupRepo) GetGroupsWithVoiceChannels(ctx context.Context) ([]studyhall.ExistingStudyGroupRecord, error) {
	if m.getGroupsWithVoiceChannelsFunc != nil {
		return m.getGroupsWithVoiceChannelsFunc(ctx)
	}
	return nil, nil
}

func (m *mockGroupRepo) AddGroupMember(ctx context.Context, id studyhall.GroupID, userID string) error {
	if m.addGroupMemberFunc != nil {
		return m.addGroupMemberFunc(ctx, id, userID)
	}
	return nil
}

func (m *mockGroupRepo) RemoveGroupMember(ctx context.Context, id studyhall.GroupID, userID string) error {
	if m.removeGroupMemberFunc != nil {
		return m.removeGroupMemberFunc(ctx, id, userID)
	}
	return nil
}

func (m *mockGroupRepo) GetGroupMembers(ctx context.Context, id studyhall.GroupID) ([]string, error) {
	if m.getGroupMembersFunc != nil {
		return m.getGroupMembersFunc(ctx, id)
	}
	return nil, nil
}

// mockManagerRepo is a mock implementation of studyhall.ManagerRepo.
type mockManagerRepo struct {
	upsertGrantFunc    func(context.Context, studyhall.ManagerGrantRecord) (studyhall.ExistingManagerGrantRecord, error)
	getGrantFunc       func(ctx context.Context, userID, guildID string) (studyhall.ExistingManagerGrantRecord, error)
	deleteGrantFunc    func(ctx context.Context, userID, guildID string) (studyhall.ExistingManagerGrantRecord, error)
	getGuildGrantsFunc func(ctx context.Context, guildID string) ([]studyhall.ExistingManagerGrantRecord, error)
}

var _ studyhall.ManagerRepo = (*mockManagerRepo)(nil)

func (m *mockManagerRepo) UpsertGrant(ctx context.Context, grant studyhall.ManagerGrantRecord) (studyhall.ExistingManagerGrantRecord, error) {
	if m.upsertGrantFunc != nil {
		return m.upsertGrantFunc(ctx, grant)
	}
	return studyhall.ExistingManagerGrantRecord{
		ExistingRecord:     studyhall.NewExistingRecord[studyhall.GrantID]("grant-1"),
		ManagerGrantRecord: grant,
	}, nil
}

func (m *mockManagerRepo) GetGrant(ctx context.Context, userID, guildID string) (studyhall.ExistingManagerGrantRecord, error) {
	if m.getGrantFunc != nil {
		return m.getGrantFunc(ctx, userID, guildID)
	}
	return studyhall.ExistingManagerGrantRecord{}, sqlite.ErrNotFound
}

func (m *mockManagerRepo) DeleteGrant(ctx context.Context, userID, guildID string) (studyhall.ExistingManagerGrantRecord, error) {
	if m.deleteGrantFunc != nil {
		return m.deleteGrantFunc(ctx, userID, guildID)
	}
	return studyhall.ExistingManagerGrantRecord{}, sqlite.ErrNotFound
}

func (m *mockManagerRepo) GetGuildGrants(ctx context.Context, guildID string) ([]studyhall.ExistingManagerGrantRecord, error) {
	if m.getGuildGrantsFunc != nil {
		return m.getGuildGrantsFunc(ctx, guildID)
	}
	return nil, nil
}

// mockTransactor is a mock implementation of transactor.Transactor
type mockTransactor struct {
	withinTransactionFunc func(context.Context, func(context.Context) error) error
}

var _ transactor.Transactor = (*mockTransactor)(nil)

func (m *mockTransactor) WithinTransaction(ctx context.Context, fn func(context.Context) error) error {
	if m.withinTransactionFunc != nil {
		return m.withinTransactionFunc(ctx, fn)
	}
	return fn(ctx)
}
