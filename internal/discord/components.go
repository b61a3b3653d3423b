package discord

import (
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/tbourn/go-relay-bot/internal/domain"
	"github.com/tbourn/go-relay-bot/internal/relay"
)

// Component custom ids:
//
//	onboard:identity:<flow>:<mode>
//	onboard:community:<flow>
const (
	idPrefix       = "onboard:"
	kindIdentity   = "identity"
	kindCommunity  = "community"
	maxSelectItems = 25
)

// componentRef is a decoded custom id.
type componentRef struct {
	Kind   string
	FlowID string
	Mode   domain.IdentityMode
}

func identityButtonID(flowID string, mode domain.IdentityMode) string {
	return idPrefix + kindIdentity + ":" + flowID + ":" + string(mode)
}

func communitySelectID(flowID string) string {
	return idPrefix + kindCommunity + ":" + flowID
}

func parseComponentID(id string) (componentRef, bool) {
	rest, ok := strings.CutPrefix(id, idPrefix)
	if !ok {
		return componentRef{}, false
	}
	parts := strings.Split(rest, ":")
	switch {
	case len(parts) == 3 && parts[0] == kindIdentity && parts[1] != "":
		mode, ok := domain.ParseIdentityMode(parts[2])
		if !ok {
			return componentRef{}, false
		}
		return componentRef{Kind: kindIdentity, FlowID: parts[1], Mode: mode}, true
	case len(parts) == 2 && parts[0] == kindCommunity && parts[1] != "":
		return componentRef{Kind: kindCommunity, FlowID: parts[1]}, true
	}
	return componentRef{}, false
}

func identityComponents(flowID string) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{
				Label:    relay.AnonymousButtonLabel,
				Style:    discordgo.SecondaryButton,
				CustomID: identityButtonID(flowID, domain.ModeAnonymous),
			},
			discordgo.Button{
				Label:    relay.IdentifiedButtonLabel,
				Style:    discordgo.PrimaryButton,
				CustomID: identityButtonID(flowID, domain.ModeIdentified),
			},
		}},
	}
}

// communityComponents renders a single select menu. The platform caps
// menus at 25 options; extra communities are not offered.
func communityComponents(flowID string, options []relay.Community) []discordgo.MessageComponent {
	if len(options) > maxSelectItems {
		options = options[:maxSelectItems]
	}
	items := make([]discordgo.SelectMenuOption, 0, len(options))
	for _, c := range options {
		items = append(items, discordgo.SelectMenuOption{Label: c.Name, Value: c.ID})
	}
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.SelectMenu{
				MenuType:    discordgo.StringSelectMenu,
				CustomID:    communitySelectID(flowID),
				Placeholder: relay.CommunityPlaceholder,
				Options:     items,
			},
		}},
	}
}
