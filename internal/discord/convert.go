package discord

import (
	"bytes"

	"github.com/bwmarrin/discordgo"

	"github.com/tbourn/go-relay-bot/internal/domain"
	"github.com/tbourn/go-relay-bot/internal/relay"
)

// userRef maps a platform user. member, when known, supplies the
// community nickname.
func userRef(u *discordgo.User, member *discordgo.Member) domain.UserRef {
	if u == nil {
		return domain.UserRef{}
	}
	ref := domain.UserRef{ID: u.ID, Name: u.Username, DisplayName: userDisplayName(u)}
	if member != nil && member.Nick != "" {
		ref.DisplayName = member.Nick
	}
	return ref
}

func userDisplayName(u *discordgo.User) string {
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}

func memberDisplayName(m *discordgo.Member) string {
	if m == nil {
		return ""
	}
	if m.Nick != "" {
		return m.Nick
	}
	if m.User != nil {
		return userDisplayName(m.User)
	}
	return ""
}

// inbound maps a gateway message. inThread must be resolved by the caller
// from the channel type.
func inbound(m *discordgo.Message, inThread bool) relay.InboundMessage {
	msg := relay.InboundMessage{
		Ref:         relay.MessageRef{ChannelID: m.ChannelID, MessageID: m.ID},
		CommunityID: m.GuildID,
		InThread:    inThread && m.GuildID != "",
		Author:      userRef(m.Author, m.Member),
		IsBot:       m.Author != nil && m.Author.Bot,
		Content:     m.Content,
	}
	for _, a := range m.Attachments {
		if a == nil {
			continue
		}
		msg.Attachments = append(msg.Attachments, relay.Attachment{
			Filename:    a.Filename,
			URL:         a.URL,
			ContentType: a.ContentType,
			Size:        a.Size,
		})
	}
	for _, e := range m.Embeds {
		if e != nil {
			msg.Embeds = append(msg.Embeds, fromEmbed(e))
		}
	}
	for _, s := range m.StickerItems {
		if s != nil {
			msg.Stickers = append(msg.Stickers, s.Name)
		}
	}
	return msg
}

func fromEmbed(e *discordgo.MessageEmbed) relay.Embed {
	out := relay.Embed{
		Title:       e.Title,
		Description: e.Description,
		URL:         e.URL,
		Color:       e.Color,
	}
	if e.Author != nil {
		out.AuthorName = e.Author.Name
	}
	if e.Footer != nil {
		out.FooterText = e.Footer.Text
	}
	if e.Image != nil {
		out.ImageURL = e.Image.URL
	}
	if e.Thumbnail != nil {
		out.ThumbnailURL = e.Thumbnail.URL
	}
	for _, f := range e.Fields {
		if f != nil {
			out.Fields = append(out.Fields, relay.EmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
		}
	}
	return out
}

func toEmbed(e relay.Embed) *discordgo.MessageEmbed {
	out := &discordgo.MessageEmbed{
		Title:       e.Title,
		Description: e.Description,
		URL:         e.URL,
		Color:       e.Color,
	}
	if e.AuthorName != "" {
		out.Author = &discordgo.MessageEmbedAuthor{Name: e.AuthorName}
	}
	if e.FooterText != "" {
		out.Footer = &discordgo.MessageEmbedFooter{Text: e.FooterText}
	}
	if e.ImageURL != "" {
		out.Image = &discordgo.MessageEmbedImage{URL: e.ImageURL}
	}
	if e.ThumbnailURL != "" {
		out.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: e.ThumbnailURL}
	}
	for _, f := range e.Fields {
		out.Fields = append(out.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}
	return out
}

// messageSend builds the REST payload. File readers are fresh per call.
func messageSend(o relay.Outbound) *discordgo.MessageSend {
	ms := &discordgo.MessageSend{Content: o.Content}
	for _, f := range o.Files {
		ms.Files = append(ms.Files, &discordgo.File{
			Name:        f.Name,
			ContentType: f.ContentType,
			Reader:      bytes.NewReader(f.Data),
		})
	}
	for _, e := range o.Embeds {
		ms.Embeds = append(ms.Embeds, toEmbed(e))
	}
	return ms
}
