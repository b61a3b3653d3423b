package discord

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/tbourn/go-relay-bot/internal/domain"
	"github.com/tbourn/go-relay-bot/internal/services"
)

// Command replies.
const (
	MsgServerOnly   = "This command can only be used in a server."
	MsgCommandError = "An error occurred while running this command."

	msgDeniedOwner = "Only the bot owner can run this."
	msgDeniedAdmin = "Only relay admins or the bot owner can run this."
	msgDeniedStaff = "Only relay staff, admins, or the bot owner can run this."
	msgInvalidID   = "That does not look like a valid id."
	msgNoConfig    = "No config set for this guild yet."
	msgNoneSet     = "None set"

	msgGetStarted = "DM me to start a ticket with staff! You will be asked at the beginning whether your ticket should be anonymous or have your name attached to it. " +
		"You can always choose to reveal who you are to staff later. This bot does not keep a log of the users who talk to it, and staff cannot find out who you are if you choose to stay anonymous. " +
		"It can help with reporting staff misconduct, abuse or harassment from other members, or whenever you are afraid of retaliation or simply anxious about talking with staff."
)

// Command names.
const (
	cmdCloseTicket = "closeticket"
	cmdSetChannel  = "set_thread_channel"
	cmdAddAdmin    = "add_admin"
	cmdRemoveAdmin = "remove_admin"
	cmdAddStaff    = "add_staff"
	cmdRemoveStaff = "remove_staff"
	cmdViewConfig  = "view_config"
	cmdListStaff   = "list_staff"
	cmdPing        = "ping"
	cmdGetStarted  = "getstarted"
	optChannel     = "channel"
	optMember      = "member"
)

// TicketCloser is the part of the router the commands need.
type TicketCloser interface {
	CloseTicket(ctx context.Context, user domain.UserRef, inDM bool) string
}

// Invocation is a decoded slash command.
type Invocation struct {
	Name        string
	CommunityID string // empty in a direct message
	Actor       domain.UserRef
	ChannelID   string          // channel option
	Member      *domain.UserRef // member option
}

// Response is what the command answers with.
type Response struct {
	Content   string
	Ephemeral bool
}

// Commands implements the slash commands independently of the gateway.
type Commands struct {
	Perms   *services.PermissionService
	Tickets TicketCloser
	// Names resolves a member's display name in a community; "" if unknown.
	Names func(ctx context.Context, communityID, userID string) string
	// Latency reports the gateway heartbeat latency.
	Latency func() time.Duration
}

// Run executes inv. A returned error means the command failed
// unexpectedly; callers answer with MsgCommandError.
func (c *Commands) Run(ctx context.Context, inv Invocation) (Response, error) {
	switch inv.Name {
	case cmdPing:
		var ms int64
		if c.Latency != nil {
			ms = c.Latency().Milliseconds()
		}
		return Response{Content: fmt.Sprintf("Pong! %dms", ms)}, nil
	case cmdGetStarted:
		return ephemeral(msgGetStarted), nil
	case cmdCloseTicket:
		return ephemeral(c.Tickets.CloseTicket(ctx, inv.Actor, inv.CommunityID == "")), nil
	}

	if inv.CommunityID == "" {
		return ephemeral(MsgServerOnly), nil
	}
	var (
		text string
		err  error
	)
	switch inv.Name {
	case cmdSetChannel:
		text, err = c.setChannel(ctx, inv)
	case cmdAddAdmin, cmdRemoveAdmin, cmdAddStaff, cmdRemoveStaff:
		text, err = c.membership(ctx, inv)
	case cmdViewConfig:
		text, err = c.viewConfig(ctx, inv)
	case cmdListStaff:
		text, err = c.listStaff(ctx, inv)
	default:
		return Response{}, fmt.Errorf("unknown command %q", inv.Name)
	}
	if text, ok := denial(err); ok {
		return ephemeral(text), nil
	}
	if err != nil {
		return Response{}, err
	}
	return ephemeral(text), nil
}

func (c *Commands) setChannel(ctx context.Context, inv Invocation) (string, error) {
	if err := c.Perms.SetRelayChannel(ctx, inv.Actor.ID, inv.CommunityID, inv.ChannelID); err != nil {
		return "", err
	}
	return fmt.Sprintf("Relay thread channel set to <#%s> (ID: %s)", inv.ChannelID, inv.ChannelID), nil
}

func (c *Commands) membership(ctx context.Context, inv Invocation) (string, error) {
	if inv.Member == nil {
		return "", services.ErrInvalidID
	}
	actor, community, target := inv.Actor.ID, inv.CommunityID, inv.Member.ID
	name := inv.Member.Label()

	var (
		err  error
		list = "relay staff"
	)
	switch inv.Name {
	case cmdAddAdmin:
		list = "relay admins"
		err = c.Perms.AddAdmin(ctx, actor, community, target)
	case cmdRemoveAdmin:
		list = "relay admins"
		err = c.Perms.RemoveAdmin(ctx, actor, community, target)
	case cmdAddStaff:
		err = c.Perms.AddStaff(ctx, actor, community, target)
	case cmdRemoveStaff:
		err = c.Perms.RemoveStaff(ctx, actor, community, target)
	}
	adding := inv.Name == cmdAddAdmin || inv.Name == cmdAddStaff

	switch {
	case errors.Is(err, services.ErrAlreadyListed):
		return fmt.Sprintf("%s is already in %s.", name, list), nil
	case errors.Is(err, services.ErrNotListed):
		return fmt.Sprintf("%s is not in %s.", name, list), nil
	case err != nil:
		return "", err
	case adding:
		return fmt.Sprintf("Added %s to %s.", name, list), nil
	default:
		return fmt.Sprintf("Removed %s from %s.", name, list), nil
	}
}

func (c *Commands) viewConfig(ctx context.Context, inv Invocation) (string, error) {
	if err := c.Perms.Authorize(ctx, inv.CommunityID, inv.Actor.ID, services.LevelStaff); err != nil {
		return "", err
	}
	cfg, err := c.Perms.Get(ctx, inv.CommunityID)
	if err != nil {
		return "", err
	}
	if cfg.IsEmpty() {
		return msgNoConfig, nil
	}
	b, err := json.MarshalIndent(cfg, "", "    ")
	if err != nil {
		return "", err
	}
	return "```json\n" + string(b) + "\n```", nil
}

func (c *Commands) listStaff(ctx context.Context, inv Invocation) (string, error) {
	if err := c.Perms.Authorize(ctx, inv.CommunityID, inv.Actor.ID, services.LevelStaff); err != nil {
		return "", err
	}
	cfg, err := c.Perms.Get(ctx, inv.CommunityID)
	if err != nil {
		return "", err
	}
	names := func(ids []string) string {
		if len(ids) == 0 {
			return msgNoneSet
		}
		out := make([]string, 0, len(ids))
		for _, id := range ids {
			n := ""
			if c.Names != nil {
				n = c.Names(ctx, inv.CommunityID, id)
			}
			if n == "" {
				n = fmt.Sprintf("Unknown User (%s)", id)
			}
			out = append(out, n)
		}
		return strings.Join(out, "\n")
	}
	return "**Relay Admins**:\n" + names(cfg.AdminIDs) + "\n\n**Relay Staff**:\n" + names(cfg.StaffIDs), nil
}

// denial maps authorization and validation errors to their replies.
func denial(err error) (string, bool) {
	switch {
	case errors.Is(err, services.ErrNotOwner):
		return msgDeniedOwner, true
	case errors.Is(err, services.ErrNotAdmin):
		return msgDeniedAdmin, true
	case errors.Is(err, services.ErrNotStaff):
		return msgDeniedStaff, true
	case errors.Is(err, services.ErrInvalidID):
		return msgInvalidID, true
	}
	return "", false
}

func ephemeral(s string) Response { return Response{Content: s, Ephemeral: true} }

// commandDefinitions is the global command set registered on connect.
func commandDefinitions() []*discordgo.ApplicationCommand {
	member := func(desc string) []*discordgo.ApplicationCommandOption {
		return []*discordgo.ApplicationCommandOption{{
			Type:        discordgo.ApplicationCommandOptionUser,
			Name:        optMember,
			Description: desc,
			Required:    true,
		}}
	}
	return []*discordgo.ApplicationCommand{
		{Name: cmdCloseTicket, Description: "Close your open ticket."},
		{
			Name:        cmdSetChannel,
			Description: "Set the channel ticket threads are created in.",
			Options: []*discordgo.ApplicationCommandOption{{
				Type:         discordgo.ApplicationCommandOptionChannel,
				Name:         optChannel,
				Description:  "Text channel for ticket threads",
				Required:     true,
				ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
			}},
		},
		{Name: cmdAddAdmin, Description: "Add a user to the relay admins list.", Options: member("User to add")},
		{Name: cmdRemoveAdmin, Description: "Remove a user from the relay admins list.", Options: member("User to remove")},
		{Name: cmdAddStaff, Description: "Add a user to the relay staff list.", Options: member("User to add")},
		{Name: cmdRemoveStaff, Description: "Remove a user from the relay staff list.", Options: member("User to remove")},
		{Name: cmdViewConfig, Description: "View this server's relay config."},
		{Name: cmdListStaff, Description: "List relay admins and staff in this server."},
		{Name: cmdPing, Description: "Check the bot's latency."},
		{Name: cmdGetStarted, Description: "How to use the ticket relay."},
	}
}
