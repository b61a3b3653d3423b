package discord

import (
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/go-relay-bot/internal/domain"
	"github.com/tbourn/go-relay-bot/internal/relay"
)

const flowID = "3f2b1c1e-8a6d-4b59-9d52-0c7c1d1b2a77"

func TestComponentIDs_RoundTrip(t *testing.T) {
	for _, mode := range []domain.IdentityMode{domain.ModeAnonymous, domain.ModeIdentified} {
		id := identityButtonID(flowID, mode)
		assert.LessOrEqual(t, len(id), 100)
		ref, ok := parseComponentID(id)
		require.True(t, ok, id)
		assert.Equal(t, componentRef{Kind: kindIdentity, FlowID: flowID, Mode: mode}, ref)
	}

	ref, ok := parseComponentID(communitySelectID(flowID))
	require.True(t, ok)
	assert.Equal(t, componentRef{Kind: kindCommunity, FlowID: flowID}, ref)
}

func TestParseComponentID_Rejects(t *testing.T) {
	for _, id := range []string{
		"",
		"other:identity:x:anonymous",
		"onboard:identity:x",
		"onboard:identity::anonymous",
		"onboard:identity:x:ghost",
		"onboard:community:",
		"onboard:community:x:y",
		"onboard:unknown:x",
	} {
		_, ok := parseComponentID(id)
		assert.False(t, ok, id)
	}
}

func TestIdentityComponents(t *testing.T) {
	rows := identityComponents(flowID)
	require.Len(t, rows, 1)
	row := rows[0].(discordgo.ActionsRow)
	require.Len(t, row.Components, 2)

	anon := row.Components[0].(discordgo.Button)
	ident := row.Components[1].(discordgo.Button)
	assert.Equal(t, relay.AnonymousButtonLabel, anon.Label)
	assert.Equal(t, relay.IdentifiedButtonLabel, ident.Label)
	assert.True(t, strings.HasSuffix(anon.CustomID, ":anonymous"))
	assert.True(t, strings.HasSuffix(ident.CustomID, ":identified"))
}

func TestCommunityComponents_CapsOptions(t *testing.T) {
	var many []relay.Community
	for i := 0; i < 30; i++ {
		many = append(many, relay.Community{ID: strings.Repeat("1", i+1), Name: "g"})
	}
	rows := communityComponents(flowID, many)
	menu := rows[0].(discordgo.ActionsRow).Components[0].(discordgo.SelectMenu)
	assert.Len(t, menu.Options, maxSelectItems)
	assert.Equal(t, relay.CommunityPlaceholder, menu.Placeholder)
	assert.Equal(t, communitySelectID(flowID), menu.CustomID)
	assert.Equal(t, "1", menu.Options[0].Value)
}
