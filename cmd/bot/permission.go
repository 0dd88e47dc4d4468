package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/studyhallbot/studyhall"
	"github.com/studyhallbot/studyhall/sqlite"
)

type PermissionResolver struct {
	grants studyhall.ManagerRepo
}

func NewPermissionResolver(grants studyhall.ManagerRepo) *PermissionResolver {
	return &PermissionResolver{
		grants: grants,
	}
}

// Resolve computes the caller's effective tier. Platform administrators
// are always at least guild managers; guild-scoped and bot-wide grants
// both apply and the higher tier wins.
func (r *PermissionResolver) Resolve(ctx context.Context, userID, guildID string, platformAdmin bool) (studyhall.PermissionLevel, error) {
	tier := studyhall.RegularUser
	if platformAdmin {
		tier = studyhall.GuildManager
	}

	for _, scope := range []string{guildID, ""} {
		grant, err := r.grants.GetGrant(ctx, userID, scope)
		if err != nil {
			if errors.Is(err, sqlite.ErrNotFound) {
				continue
			}
			return studyhall.RegularUser, fmt.Errorf("failed grant lookup: %w", err)
		}
		if grant.Level > tier {
			tier = grant.Level
		}
	}

	return tier, nil
}

// AddGrant stores a grant; only bot developers may add grants. The
// caller's tier must already be resolved.
func (r *PermissionResolver) AddGrant(ctx context.Context, callerTier studyhall.PermissionLevel, grant studyhall.ManagerGrantRecord) (studyhall.ExistingManagerGrantRecord, error) {
	if callerTier < studyhall.BotDeveloper {
		return studyhall.ExistingManagerGrantRecord{}, studyhall.ErrPermissionDenied
	}
	return r.grants.UpsertGrant(ctx, grant)
}

// RemoveGrant removes a grant. Guild-scoped removal requires guild
// manager or above; bot-wide removal requires bot developer.
func (r *PermissionResolver) RemoveGrant(ctx context.Context, callerTier studyhall.PermissionLevel, userID, guildID string) (studyhall.ExistingManagerGrantRecord, error) {
	required := studyhall.GuildManager
	if guildID == "" {
		required = studyhall.BotDeveloper
	}
	if callerTier < required {
		return studyhall.ExistingManagerGrantRecord{}, studyhall.ErrPermissionDenied
	}
	return r.grants.DeleteGrant(ctx, userID, guildID)
}

func (r *PermissionResolver) ListGrants(ctx context.Context, guildID string) ([]studyhall.ExistingManagerGrantRecord, error) {
	return r.grants.GetGuildGrants(ctx, guildID)
}
