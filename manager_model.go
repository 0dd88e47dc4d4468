package studyhall

import "context"

// PermissionLevel is a totally ordered tier. Grants store the tier value
// directly; GroupCreator is also derived contextually from group
// ownership without a stored grant.
type PermissionLevel uint8

const (
	RegularUser PermissionLevel = iota
	GroupCreator
	GuildManager
	BotDeveloper
)

func (l PermissionLevel) String() string {
	switch l {
	case GroupCreator:
		return "Group Creator"
	case GuildManager:
		return "Guild Manager"
	case BotDeveloper:
		return "Bot Developer"
	default:
		return "Regular User"
	}
}

type GrantID string

// ManagerGrantRecord assigns a permission tier to a user. An empty
// GuildID makes the grant bot-wide.
type ManagerGrantRecord struct {
	UserID  string
	GuildID string
	Level   PermissionLevel
}

type ExistingManagerGrantRecord struct {
	ExistingRecord[GrantID]
	ManagerGrantRecord
}

// ManagerRepo keeps at most one grant per (user, guild) pair.
type ManagerRepo interface {
	UpsertGrant(context.Context, ManagerGrantRecord) (ExistingManagerGrantRecord, error)
	GetGrant(ctx context.Context, userID, guildID string) (ExistingManagerGrantRecord, error)
	DeleteGrant(ctx context.Context, userID, guildID string) (ExistingManagerGrantRecord, error)
	GetGuildGrants(ctx context.Context, guildID string) ([]ExistingManagerGrantRecord, error)
}
