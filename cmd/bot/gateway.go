package main

import (
	"github.com/bwmarrin/discordgo"

	"github.com/studyhallbot/studyhall"
)

// Gateway is the messaging surface the core drives. All calls are
// potentially-blocking I/O and must happen outside registry and group
// state locks.
type Gateway interface {
	SendMessage(channelID, content string, components ...discordgo.MessageComponent) (*discordgo.Message, error)
	CreateRole(guildID, name string, mentionable bool) (roleID string, err error)
	DeleteRole(guildID, roleID string) error
	AssignRole(guildID, userID, roleID string) error
	RemoveRole(guildID, userID, roleID string) error
	CreateVoiceChannel(guildID, name, sessionRoleID string) (studyhall.VoiceChannelID, error)
	DeleteChannel(channelID string) error
	MoveUserToVoice(guildID, userID string, cid studyhall.VoiceChannelID) error
}

type discordGateway struct {
	cl *discordgo.Session
}

func NewDiscordGateway(cl *discordgo.Session) Gateway {
	return &discordGateway{
		cl: cl,
	}
}

func (g *discordGateway) SendMessage(channelID, content string, components ...discordgo.MessageComponent) (*discordgo.Message, error) {
	return g.cl.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content:    content,
		Components: components,
	})
}

func (g *discordGateway) CreateRole(guildID, name string, mentionable bool) (string, error) {
	role, err := g.cl.GuildRoleCreate(guildID, &discordgo.RoleParams{
		Name:        name,
		Mentionable: &mentionable,
	})
	if err != nil {
		return "", err
	}
	return role.ID, nil
}

func (g *discordGateway) DeleteRole(guildID, roleID string) error {
	return g.cl.GuildRoleDelete(guildID, roleID)
}

func (g *discordGateway) AssignRole(guildID, userID, roleID string) error {
	return g.cl.GuildMemberRoleAdd(guildID, userID, roleID)
}

func (g *discordGateway) RemoveRole(guildID, userID, roleID string) error {
	return g.cl.GuildMemberRoleRemove(guildID, userID, roleID)
}

// CreateVoiceChannel denies connect to @everyone and allows the group's
// session role, so only group members can join.
func (g *discordGateway) CreateVoiceChannel(guildID, name, sessionRoleID string) (studyhall.VoiceChannelID, error) {
	overwrites := []*discordgo.PermissionOverwrite{
		{
			// the @everyone role shares the guild's id
			ID:   guildID,
			Type: discordgo.PermissionOverwriteTypeRole,
			Deny: discordgo.PermissionVoiceConnect,
		},
	}
	if sessionRoleID != "" {
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID:    sessionRoleID,
			Type:  discordgo.PermissionOverwriteTypeRole,
			Allow: discordgo.PermissionVoiceConnect,
		})
	}

	channel, err := g.cl.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name:                 name,
		Type:                 discordgo.ChannelTypeGuildVoice,
		PermissionOverwrites: overwrites,
	})
	if err != nil {
		return "", err
	}
	return studyhall.VoiceChannelID(channel.ID), nil
}

func (g *discordGateway) DeleteChannel(channelID string) error {
	_, err := g.cl.ChannelDelete(channelID)
	return err
}

func (g *discordGateway) MoveUserToVoice(guildID, userID string, cid studyhall.VoiceChannelID) error {
	channelID := string(cid)
	return g.cl.GuildMemberMove(guildID, userID, &channelID)
}
