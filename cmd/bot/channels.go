package main

import (
	"slices"
	"sync"
)

// checkinChannelRegistry holds the per-guild allowlist of channels where
// check-in sessions may run. A guild with no configured channels has
// check-ins disabled until a manager sets them.
type checkinChannelRegistry struct {
	mu       sync.RWMutex
	channels map[string][]string
}

func newCheckinChannelRegistry() *checkinChannelRegistry {
	return &checkinChannelRegistry{
		channels: make(map[string][]string),
	}
}

// Set replaces the guild's allowlist.
func (r *checkinChannelRegistry) Set(guildID string, channelIDs []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels[guildID] = slices.Clone(channelIDs)
}

func (r *checkinChannelRegistry) Allowed(guildID, channelID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Contains(r.channels[guildID], channelID)
}

func (r *checkinChannelRegistry) List(guildID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.channels[guildID])
}
