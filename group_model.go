package studyhall

import (
	"context"
	"time"
)

type GroupID string

type StudyGroupRecord struct {
	Name      string
	CreatorID string
	MaxSize   int
	EndTime   time.Time
	GuildID   string

	// externally-provisioned resource handles, empty until created
	AdminRoleID   string
	SessionRoleID string
	VoiceCID      VoiceChannelID
}

type ExistingStudyGroupRecord struct {
	ExistingRecord[GroupID]
	StudyGroupRecord
}

// GroupRepo persists study groups and their membership rows. One group
// per guild; the repo enforces uniqueness on guild id.
type GroupRepo interface {
	InsertGroup(context.Context, StudyGroupRecord) (ExistingStudyGroupRecord, error)
	GetGroupByGuild(ctx context.Context, guildID string) (ExistingStudyGroupRecord, error)
	GetGroupByMember(ctx context.Context, userID string) (ExistingStudyGroupRecord, error)
	DeleteGroup(context.Context, GroupID) (ExistingStudyGroupRecord, error)
	UpdateGroupRoles(ctx context.Context, id GroupID, adminRoleID, sessionRoleID string) error
	UpdateGroupVoiceChannel(ctx context.Context, id GroupID, cid VoiceChannelID) error
	GetGroupsWithVoiceChannels(context.Context) ([]ExistingStudyGroupRecord, error)

	AddGroupMember(ctx context.Context, id GroupID, userID string) error
	RemoveGroupMember(ctx context.Context, id GroupID, userID string) error
	GetGroupMembers(ctx context.Context, id GroupID) ([]string, error)
}
