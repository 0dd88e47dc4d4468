// Package dgutils contains utility wrappers around github.com/bwmarrin/discordgo
package dgutils

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
)

type responder struct {
	s  *discordgo.Session
	it *discordgo.Interaction
}

func NewResponder(s *discordgo.Session, it *discordgo.Interaction) *responder {
	return &responder{
		s:  s,
		it: it,
	}
}

func (r *responder) Respond(content string, ephemeral bool) error {
	var flags discordgo.MessageFlags
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	return r.s.InteractionRespond(r.it, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   flags,
		},
	})
}

func (r *responder) RespondWithComponents(content string, components ...discordgo.MessageComponent) error {
	return r.s.InteractionRespond(r.it, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content:    content,
			Components: components,
		},
	})
}

func (r *responder) RespondEmbed(embed *discordgo.MessageEmbed) error {
	return r.s.InteractionRespond(r.it, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
		},
	})
}

func GetUser(m *discordgo.Interaction) *discordgo.User {
	if m.Member != nil {
		return m.Member.User
	}
	return m.User
}

// CustomID routes button interactions back to a session. RefID is the
// session's owner identifier (check-in creator, group id).
type CustomID struct {
	Action, GuildID, RefID string
}

func ParseCustomID(customID string) (CustomID, error) {
	parts := strings.Split(customID, ":")
	if len(parts) != 3 {
		return CustomID{}, fmt.Errorf("invalid customID: %s", customID)
	}
	return CustomID{
		Action:  parts[0],
		GuildID: parts[1],
		RefID:   parts[2],
	}, nil
}

func (id CustomID) String() string {
	return fmt.Sprintf("%s:%s:%s", id.Action, id.GuildID, id.RefID)
}
