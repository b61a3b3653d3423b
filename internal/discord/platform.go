package discord

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-relay-bot/internal/relay"
)

// maxAttachmentBytes bounds a single re-uploaded attachment.
const maxAttachmentBytes = 25 << 20

// Platform implements relay.Platform on a discordgo session.
type Platform struct {
	s   *discordgo.Session
	log zerolog.Logger
}

var _ relay.Platform = (*Platform)(nil)

// NewPlatform wraps an opened or unopened session.
func NewPlatform(s *discordgo.Session) *Platform {
	return &Platform{s: s, log: log.With().Str("component", "discord").Logger()}
}

func (p *Platform) SendDirect(ctx context.Context, userID string, msg relay.Outbound) error {
	return p.sendDirect(ctx, userID, messageSend(msg))
}

func (p *Platform) SendThread(ctx context.Context, threadID string, msg relay.Outbound) error {
	if _, err := p.s.ChannelMessageSendComplex(threadID, messageSend(msg), discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("send to thread: %w", err)
	}
	return nil
}

func (p *Platform) sendDirect(ctx context.Context, userID string, ms *discordgo.MessageSend) error {
	ch, err := p.s.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("open direct channel: %w", err)
	}
	if _, err := p.s.ChannelMessageSendComplex(ch.ID, ms, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("send direct message: %w", err)
	}
	return nil
}

func (p *Platform) CreateThread(ctx context.Context, channelID, name string) (string, error) {
	ch, err := p.s.ThreadStartComplex(channelID, &discordgo.ThreadStart{
		Name: name,
		Type: discordgo.ChannelTypeGuildPublicThread,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("start thread: %w", err)
	}
	return ch.ID, nil
}

func (p *Platform) ArchiveThread(ctx context.Context, threadID string) error {
	archived := true
	if _, err := p.s.ChannelEditComplex(threadID, &discordgo.ChannelEdit{Archived: &archived}, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("archive thread: %w", err)
	}
	return nil
}

func (p *Platform) ThreadExists(ctx context.Context, threadID string) bool {
	if threadID == "" {
		return false
	}
	if ch, err := p.s.State.Channel(threadID); err == nil && ch != nil {
		return true
	}
	_, err := p.s.Channel(threadID, discordgo.WithContext(ctx))
	return err == nil
}

func (p *Platform) React(ctx context.Context, ref relay.MessageRef, emoji string) error {
	return p.s.MessageReactionAdd(ref.ChannelID, ref.MessageID, emoji, discordgo.WithContext(ctx))
}

func (p *Platform) Communities(context.Context) ([]relay.Community, error) {
	p.s.State.RLock()
	defer p.s.State.RUnlock()
	out := make([]relay.Community, 0, len(p.s.State.Guilds))
	for _, g := range p.s.State.Guilds {
		out = append(out, relay.Community{ID: g.ID, Name: g.Name})
	}
	return out, nil
}

// MutualCommunities checks membership guild by guild. Lookups that fail
// for reasons other than "not a member" are logged and skipped.
func (p *Platform) MutualCommunities(ctx context.Context, userID string) ([]relay.Community, error) {
	all, err := p.Communities(ctx)
	if err != nil {
		return nil, err
	}
	var out []relay.Community
	for _, c := range all {
		_, err := p.member(ctx, c.ID, userID)
		switch {
		case err == nil:
			out = append(out, c)
		case isNotFound(err):
		default:
			p.log.Debug().Err(err).Str("community_id", c.ID).Msg("member lookup")
		}
	}
	return out, nil
}

func (p *Platform) Community(ctx context.Context, id string) (relay.Community, error) {
	if g, err := p.s.State.Guild(id); err == nil {
		return relay.Community{ID: g.ID, Name: g.Name}, nil
	}
	g, err := p.s.Guild(id, discordgo.WithContext(ctx))
	if err != nil {
		return relay.Community{}, fmt.Errorf("%w: %s", relay.ErrUnknownCommunity, id)
	}
	return relay.Community{ID: g.ID, Name: g.Name}, nil
}

func (p *Platform) DisplayName(ctx context.Context, communityID, userID string) string {
	m, err := p.member(ctx, communityID, userID)
	if err != nil {
		return ""
	}
	return memberDisplayName(m)
}

func (p *Platform) PromptIdentity(ctx context.Context, userID, flowID string) error {
	return p.sendDirect(ctx, userID, &discordgo.MessageSend{
		Content:    relay.PromptIdentityText,
		Components: identityComponents(flowID),
	})
}

func (p *Platform) PromptCommunity(ctx context.Context, userID, flowID string, options []relay.Community) error {
	if len(options) > maxSelectItems {
		p.log.Warn().Int("communities", len(options)).Msg("too many communities for one menu; list truncated")
	}
	return p.sendDirect(ctx, userID, &discordgo.MessageSend{
		Content:    relay.PromptCommunityText,
		Components: communityComponents(flowID, options),
	})
}

// Fetch downloads an attachment with the session's HTTP client.
func (p *Platform) Fetch(ctx context.Context, a relay.Attachment) (relay.File, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.URL, nil)
	if err != nil {
		return relay.File{}, err
	}
	client := p.s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return relay.File{}, fmt.Errorf("download %s: %w", a.Filename, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return relay.File{}, fmt.Errorf("download %s: status %d", a.Filename, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAttachmentBytes+1))
	if err != nil {
		return relay.File{}, fmt.Errorf("download %s: %w", a.Filename, err)
	}
	if len(data) > maxAttachmentBytes {
		return relay.File{}, fmt.Errorf("download %s: larger than %d bytes", a.Filename, maxAttachmentBytes)
	}
	ct := a.ContentType
	if ct == "" {
		ct = resp.Header.Get("Content-Type")
	}
	return relay.File{Name: a.Filename, ContentType: ct, Data: data}, nil
}

func (p *Platform) member(ctx context.Context, guildID, userID string) (*discordgo.Member, error) {
	if m, err := p.s.State.Member(guildID, userID); err == nil {
		return m, nil
	}
	return p.s.GuildMember(guildID, userID, discordgo.WithContext(ctx))
}

// isThread resolves whether channelID is a thread, consulting the cache first.
func (p *Platform) isThread(ctx context.Context, channelID string) bool {
	ch, err := p.s.State.Channel(channelID)
	if err != nil {
		ch, err = p.s.Channel(channelID, discordgo.WithContext(ctx))
		if err != nil {
			return false
		}
	}
	return ch.IsThread()
}

func isNotFound(err error) bool {
	var rerr *discordgo.RESTError
	return errors.As(err, &rerr) && rerr.Response != nil && rerr.Response.StatusCode == http.StatusNotFound
}
