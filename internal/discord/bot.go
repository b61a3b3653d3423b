// Package discord adapts the relay to Discord through discordgo: it
// implements relay.Platform, maps gateway events onto the router, renders
// the onboarding components and serves the slash commands.
package discord

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-relay-bot/internal/domain"
	"github.com/tbourn/go-relay-bot/internal/relay"
	"github.com/tbourn/go-relay-bot/internal/services"
)

// Intents requested at identify. Members and message content are
// privileged and must be enabled for the application.
const Intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMembers |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsDirectMessages |
	discordgo.IntentsMessageContent

const (
	// eventTimeout bounds the platform calls made for one event.
	eventTimeout = 30 * time.Second
	// cachedMessages per channel, so edits arrive with their previous state.
	cachedMessages = 200
)

// NewSession creates an unopened gateway session for a bot token.
func NewSession(token string) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	s.Identify.Intents = Intents
	s.StateEnabled = true
	s.State.MaxMessageCount = cachedMessages
	return s, nil
}

// Bot dispatches gateway events.
type Bot struct {
	s        *discordgo.Session
	platform *Platform
	router   *relay.Router
	perms    *services.PermissionService
	cmds     *Commands
	presence string
	log      zerolog.Logger

	ctx context.Context
}

// NewBot wires the handlers. The router must have been built on platform.
func NewBot(s *discordgo.Session, platform *Platform, router *relay.Router, perms *services.PermissionService, presence string) *Bot {
	b := &Bot{
		s:        s,
		platform: platform,
		router:   router,
		perms:    perms,
		presence: presence,
		log:      log.With().Str("component", "discord").Logger(),
		ctx:      context.Background(),
	}
	b.cmds = &Commands{
		Perms:   perms,
		Tickets: router,
		Names:   platform.DisplayName,
		Latency: s.HeartbeatLatency,
	}
	return b
}

// Run opens the gateway and blocks until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	b.ctx = ctx
	removers := []func(){
		b.s.AddHandler(b.onReady),
		b.s.AddHandler(b.onMessageCreate),
		b.s.AddHandler(b.onMessageUpdate),
		b.s.AddHandler(b.onInteraction),
	}
	defer func() {
		for _, rm := range removers {
			rm()
		}
	}()

	if err := b.s.Open(); err != nil {
		return fmt.Errorf("open gateway: %w", err)
	}
	<-ctx.Done()
	b.log.Info().Msg("closing gateway")
	if err := b.s.Close(); err != nil {
		return fmt.Errorf("close gateway: %w", err)
	}
	return nil
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	defer b.recoverEvent("ready")
	ctx, cancel := context.WithTimeout(b.ctx, eventTimeout)
	defer cancel()

	b.log.Info().
		Str("user", r.User.Username).
		Str("user_id", r.User.ID).
		Int("guilds", len(r.Guilds)).
		Msg("connected")

	if err := s.UpdateGameStatus(0, b.presence); err != nil {
		b.log.Warn().Err(err).Msg("set presence")
	}

	cmds, err := s.ApplicationCommandBulkOverwrite(r.User.ID, "", commandDefinitions(), discordgo.WithContext(ctx))
	if err != nil {
		b.log.Error().Err(err).Msg("register commands")
	} else {
		b.log.Info().Int("commands", len(cmds)).Msg("commands registered")
	}

	app, err := s.Application("@me")
	if err != nil {
		b.log.Warn().Err(err).Msg("fetch application owner")
		return
	}
	if app.Owner != nil {
		b.perms.AddOwner(app.Owner.ID)
	}
	if app.Team != nil {
		for _, m := range app.Team.Members {
			if m != nil && m.User != nil {
				b.perms.AddOwner(m.User.ID)
			}
		}
	}
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	defer b.recoverEvent("message_create")
	if m.Message == nil || m.Author == nil || b.self(s, m.Author.ID) {
		return
	}
	rememberDirect(s.State, m.Message)
	ctx, cancel := context.WithTimeout(b.ctx, eventTimeout)
	defer cancel()

	inThread := m.GuildID != "" && b.platform.isThread(ctx, m.ChannelID)
	b.router.HandleMessage(ctx, inbound(m.Message, inThread))
}

// rememberDirect caches a DM the state dropped. The gateway sends no
// channel create for DMs and the state discards messages of unknown
// channels, so without this edits would arrive with no previous content.
// Later messages in the channel are cached by the state itself.
func rememberDirect(st *discordgo.State, m *discordgo.Message) {
	if st == nil || m.GuildID != "" {
		return
	}
	if _, err := st.Channel(m.ChannelID); err == nil {
		return
	}
	if err := st.ChannelAdd(&discordgo.Channel{ID: m.ChannelID, Type: discordgo.ChannelTypeDM}); err != nil {
		return
	}
	cp := *m
	_ = st.MessageAdd(&cp)
}

func (b *Bot) onMessageUpdate(s *discordgo.Session, m *discordgo.MessageUpdate) {
	defer b.recoverEvent("message_update")
	if m.Message == nil {
		return
	}
	after := m.Message
	// partial updates (unfurls) may omit the author
	if after.Author == nil && m.BeforeUpdate != nil {
		after.Author = m.BeforeUpdate.Author
	}
	if after.Author == nil || b.self(s, after.Author.ID) {
		return
	}
	ctx, cancel := context.WithTimeout(b.ctx, eventTimeout)
	defer cancel()

	inThread := after.GuildID != "" && b.platform.isThread(ctx, after.ChannelID)
	var before *relay.InboundMessage
	if m.BeforeUpdate != nil {
		prev := inbound(m.BeforeUpdate, inThread)
		before = &prev
	}
	b.router.HandleEdit(ctx, before, inbound(after, inThread))
}

func (b *Bot) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	defer b.recoverEvent("interaction_create")
	ctx, cancel := context.WithTimeout(b.ctx, eventTimeout)
	defer cancel()

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		b.handleCommand(ctx, s, i.Interaction)
	case discordgo.InteractionMessageComponent:
		b.handleComponent(ctx, s, i.Interaction)
	}
}

func (b *Bot) handleCommand(ctx context.Context, s *discordgo.Session, i *discordgo.Interaction) {
	data := i.ApplicationCommandData()
	inv := Invocation{Name: data.Name, CommunityID: i.GuildID, Actor: interactionUser(i)}
	for _, opt := range data.Options {
		id, _ := opt.Value.(string)
		switch opt.Name {
		case optChannel:
			inv.ChannelID = id
		case optMember:
			inv.Member = resolvedUser(data, id)
		}
	}

	resp, err := b.cmds.Run(ctx, inv)
	if err != nil {
		b.log.Error().Err(err).Str("command", inv.Name).Str("community_id", inv.CommunityID).Msg("command failed")
		resp = ephemeral(MsgCommandError)
	}
	if err := respond(s, i, resp); err != nil {
		b.log.Warn().Err(err).Str("command", inv.Name).Msg("respond to command")
	}
}

// handleComponent routes onboarding clicks. Clicks on expired or foreign
// flows are acknowledged without a message.
func (b *Bot) handleComponent(ctx context.Context, s *discordgo.Session, i *discordgo.Interaction) {
	data := i.MessageComponentData()
	ref, ok := parseComponentID(data.CustomID)
	if !ok {
		return
	}
	user := interactionUser(i)

	replied := false
	reply := func(_ context.Context, text string) error {
		replied = true
		return respond(s, i, ephemeral(text))
	}

	var err error
	switch ref.Kind {
	case kindIdentity:
		err = b.router.ChooseIdentity(ctx, ref.FlowID, user, ref.Mode, reply)
	case kindCommunity:
		if len(data.Values) == 0 {
			err = relay.ErrFlowExpired
			break
		}
		err = b.router.ChooseCommunity(ctx, ref.FlowID, user, data.Values[0], reply)
	}
	if err != nil && !errors.Is(err, relay.ErrFlowExpired) {
		b.log.Warn().Err(err).Str("kind", ref.Kind).Msg("onboarding choice")
	}
	if replied {
		return
	}
	if err := s.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	}); err != nil {
		b.log.Debug().Err(err).Msg("acknowledge component")
	}
}

func (b *Bot) self(s *discordgo.Session, userID string) bool {
	return s.State != nil && s.State.User != nil && s.State.User.ID == userID
}

// recoverEvent keeps a panicking handler from taking the gateway down.
func (b *Bot) recoverEvent(event string) {
	if rec := recover(); rec != nil {
		b.log.Error().
			Interface("panic", rec).
			Bytes("stack", debug.Stack()).
			Str("event", event).
			Msg("panic recovered")
	}
}

func respond(s *discordgo.Session, i *discordgo.Interaction, r Response) error {
	var flags discordgo.MessageFlags
	if r.Ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	return s.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: r.Content, Flags: flags},
	})
}

func interactionUser(i *discordgo.Interaction) domain.UserRef {
	if i.Member != nil && i.Member.User != nil {
		return userRef(i.Member.User, i.Member)
	}
	return userRef(i.User, nil)
}

func resolvedUser(data discordgo.ApplicationCommandInteractionData, id string) *domain.UserRef {
	if id == "" {
		return nil
	}
	ref := domain.UserRef{ID: id}
	if data.Resolved != nil {
		if u, ok := data.Resolved.Users[id]; ok {
			ref = userRef(u, data.Resolved.Members[id])
		}
	}
	return &ref
}
