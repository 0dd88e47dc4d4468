package main

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/studyhallbot/studyhall"
)

// VoiceChannelManager tracks at most one ephemeral voice channel per
// study group and deletes a tracked channel once it empties.
type VoiceChannelManager struct {
	mu       sync.Mutex
	channels map[studyhall.GroupID]studyhall.VoiceChannelID
	gateway  Gateway
	groups   studyhall.GroupRepo
}

func NewVoiceChannelManager(gateway Gateway, groups studyhall.GroupRepo) *VoiceChannelManager {
	return &VoiceChannelManager{
		channels: make(map[studyhall.GroupID]studyhall.VoiceChannelID),
		gateway:  gateway,
		groups:   groups,
	}
}

// Restore loads persisted channel handles into the cache; call once
// after init.
func (v *VoiceChannelManager) Restore(ctx context.Context) error {
	groups, err := v.groups.GetGroupsWithVoiceChannels(ctx)
	if err != nil {
		return err
	}

	v.mu.Lock()
	for _, g := range groups {
		v.channels[g.ID] = g.VoiceCID
	}
	v.mu.Unlock()
	log.Info("restored voice channels", "count", len(groups))
	return nil
}

// CreateChannel provisions the group's voice channel with connect
// restricted to the session role. The group's slot is reserved before
// the gateway call, so a concurrent create fails fast instead of
// provisioning a second, untracked channel.
func (v *VoiceChannelManager) CreateChannel(ctx context.Context, group studyhall.ExistingStudyGroupRecord, name string) (studyhall.VoiceChannelID, error) {
	v.mu.Lock()
	if _, tracked := v.channels[group.ID]; tracked || group.VoiceCID != "" {
		v.mu.Unlock()
		return "", studyhall.ErrChannelAlreadyExists
	}
	// placeholder reservation; replaced with the real id or rolled back
	v.channels[group.ID] = ""
	v.mu.Unlock()

	if name == "" {
		name = group.Name + " VC"
	}
	cid, err := v.gateway.CreateVoiceChannel(group.GuildID, name, group.SessionRoleID)
	if err != nil {
		v.mu.Lock()
		delete(v.channels, group.ID)
		v.mu.Unlock()
		return "", err
	}
	if err := v.groups.UpdateGroupVoiceChannel(ctx, group.ID, cid); err != nil {
		log.Error("failed to persist voice channel id", "groupID", group.ID, "cid", cid, "err", err)
	}

	v.mu.Lock()
	v.channels[group.ID] = cid
	v.mu.Unlock()
	log.Info("created group voice channel", "groupID", group.ID, "cid", cid)
	return cid, nil
}

// DeleteChannel consumes the tracked handle, then requests deletion and
// clears the persisted id. Both follow-up steps are idempotent.
func (v *VoiceChannelManager) DeleteChannel(ctx context.Context, groupID studyhall.GroupID) error {
	v.mu.Lock()
	cid, tracked := v.channels[groupID]
	delete(v.channels, groupID)
	v.mu.Unlock()
	if !tracked {
		return studyhall.ErrNoChannel
	}

	if err := v.gateway.DeleteChannel(string(cid)); err != nil {
		log.Error("failed to delete voice channel", "groupID", groupID, "cid", cid, "err", err)
	}
	if err := v.groups.UpdateGroupVoiceChannel(ctx, groupID, ""); err != nil {
		log.Error("failed to clear persisted voice channel id", "groupID", groupID, "err", err)
	}
	log.Info("deleted group voice channel", "groupID", groupID, "cid", cid)
	return nil
}

// Tracked reports the channel handle for a group, if any.
func (v *VoiceChannelManager) Tracked(groupID studyhall.GroupID) (studyhall.VoiceChannelID, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	cid, ok := v.channels[groupID]
	return cid, ok
}

// HandleOccupancyChange reacts to a voice-state event: a tracked channel
// left empty is deleted.
func (v *VoiceChannelManager) HandleOccupancyChange(ctx context.Context, cid studyhall.VoiceChannelID, occupants int) {
	if occupants > 0 {
		return
	}

	v.mu.Lock()
	var groupID studyhall.GroupID
	var found bool
	for gid, tracked := range v.channels {
		if tracked == cid {
			groupID = gid
			found = true
			break
		}
	}
	v.mu.Unlock()
	if !found {
		return
	}

	log.Debug("tracked voice channel emptied", "groupID", groupID, "cid", cid)
	if err := v.DeleteChannel(ctx, groupID); err != nil {
		log.Error("failed to auto-delete empty voice channel", "groupID", groupID, "cid", cid, "err", err)
	}
}
