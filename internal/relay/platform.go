package relay

import (
	"context"

	"github.com/tbourn/go-relay-bot/internal/domain"
)

// MessageRef locates a message on the platform.
type MessageRef struct {
	ChannelID string
	MessageID string
}

// Community is a guild the bot belongs to.
type Community struct {
	ID   string
	Name string
}

// Attachment is a file attached to an inbound message.
type Attachment struct {
	Filename    string
	URL         string
	ContentType string
	Size        int
}

// File is attachment content ready to be re-uploaded.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// EmbedField is one name/value row of an Embed.
type EmbedField struct {
	Name   string
	Value  string
	Inline bool
}

// Embed is the subset of rich-embed data passed through unchanged.
type Embed struct {
	Title        string
	Description  string
	URL          string
	Color        int
	AuthorName   string
	FooterText   string
	ImageURL     string
	ThumbnailURL string
	Fields       []EmbedField
}

// Outbound is a message the router asks the platform to deliver.
type Outbound struct {
	Content string
	Files   []File
	Embeds  []Embed
}

// Empty reports whether there is nothing to send.
func (o Outbound) Empty() bool {
	return o.Content == "" && len(o.Files) == 0 && len(o.Embeds) == 0
}

// InboundMessage is a message (or the new state of an edited message) seen
// by the bot. CommunityID is empty for direct messages.
type InboundMessage struct {
	Ref         MessageRef
	CommunityID string
	InThread    bool
	Author      domain.UserRef
	IsBot       bool
	Content     string
	Attachments []Attachment
	Embeds      []Embed
	Stickers    []string
}

// DirectMessage reports whether the message arrived outside any community.
func (m InboundMessage) DirectMessage() bool { return m.CommunityID == "" }

// Messenger delivers messages.
type Messenger interface {
	SendDirect(ctx context.Context, userID string, msg Outbound) error
	SendThread(ctx context.Context, threadID string, msg Outbound) error
}

// ThreadManager creates and archives ticket threads.
type ThreadManager interface {
	CreateThread(ctx context.Context, channelID, name string) (threadID string, err error)
	ArchiveThread(ctx context.Context, threadID string) error
	ThreadExists(ctx context.Context, threadID string) bool
}

// Reactor adds reactions.
type Reactor interface {
	React(ctx context.Context, ref MessageRef, emoji string) error
}

// Directory resolves communities and member names.
type Directory interface {
	// Communities lists every community the bot is in.
	Communities(ctx context.Context) ([]Community, error)
	// MutualCommunities lists communities shared by the bot and userID.
	MutualCommunities(ctx context.Context, userID string) ([]Community, error)
	// Community resolves one community the bot is in.
	Community(ctx context.Context, id string) (Community, error)
	// DisplayName returns the member's display name in the community, or ""
	// if it cannot be resolved.
	DisplayName(ctx context.Context, communityID, userID string) string
}

// Prompter shows the interactive onboarding choices. flowID must be echoed
// back through Router.ChooseIdentity / Router.ChooseCommunity.
type Prompter interface {
	PromptIdentity(ctx context.Context, userID, flowID string) error
	PromptCommunity(ctx context.Context, userID, flowID string, options []Community) error
}

// AttachmentFetcher downloads attachment bytes.
type AttachmentFetcher interface {
	Fetch(ctx context.Context, a Attachment) (File, error)
}

// Platform is everything the router needs from the chat platform.
type Platform interface {
	Messenger
	ThreadManager
	Reactor
	Directory
	Prompter
	AttachmentFetcher
}

// ConfigSource reads community permission state.
type ConfigSource interface {
	Get(ctx context.Context, communityID string) (domain.CommunityConfig, error)
}

// Reply answers the interaction that triggered a step, visible only to the
// user who clicked.
type Reply func(ctx context.Context, text string) error
