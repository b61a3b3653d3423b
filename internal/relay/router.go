// Package relay is the ticket routing core. It decides where each inbound
// message goes: a user's direct message is relayed into the staff thread of
// their open ticket (or starts onboarding when there is none), and a staff
// message in a ticket thread is relayed back to the ticket's user. It also
// runs the onboarding flow that opens tickets and the close flow.
//
// The router talks to the chat platform only through the small capability
// interfaces in platform.go. Every platform call is treated as fallible: a
// failure is logged and abandons that one operation, nothing is retried and
// nothing propagates to the caller's event loop.
package relay

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-relay-bot/internal/domain"
	"github.com/tbourn/go-relay-bot/internal/identity"
	"github.com/tbourn/go-relay-bot/internal/tickets"
)

// Options tunes the router.
type Options struct {
	// AckReaction is added to a message once it has been relayed. Empty
	// disables acknowledgements.
	AckReaction string
	// InteractionTimeout bounds each onboarding prompt.
	InteractionTimeout time.Duration
}

// Router is the Ticket Router. It is safe for concurrent use; events for
// the same user are assumed to arrive one at a time.
type Router struct {
	p       Platform
	store   *tickets.Store
	configs ConfigSource
	opts    Options
	flows   *flowTable
	log     zerolog.Logger
}

// New wires a router.
func New(p Platform, store *tickets.Store, configs ConfigSource, opts Options) *Router {
	if opts.InteractionTimeout <= 0 {
		opts.InteractionTimeout = time.Minute
	}
	return &Router{
		p:       p,
		store:   store,
		configs: configs,
		opts:    opts,
		flows: newFlowTable(opts.InteractionTimeout, func(outcome string) {
			onboardingResults.WithLabelValues(outcome).Inc()
		}),
		log: log.With().Str("component", "relay").Logger(),
	}
}

// PendingOnboarding returns the number of users mid-onboarding.
func (r *Router) PendingOnboarding() int { return r.flows.len() }

// AnonymousSessions returns the number of anonymous users staff can reach.
func (r *Router) AnonymousSessions() int { return r.store.Sessions().Len() }

// HandleMessage routes a newly posted message.
func (r *Router) HandleMessage(ctx context.Context, msg InboundMessage) {
	if msg.IsBot {
		return
	}
	switch {
	case msg.DirectMessage():
		r.fromUser(ctx, msg, nil)
	case msg.InThread:
		r.fromStaff(ctx, msg)
	}
}

// HandleEdit routes an edited message. before is the cached previous state,
// nil when unknown. Edits never open tickets and never modify messages that
// were already relayed; they are relayed as new messages.
func (r *Router) HandleEdit(ctx context.Context, before *InboundMessage, after InboundMessage) {
	if after.IsBot {
		return
	}
	// embed unfurls and pins also arrive as edits
	if before != nil && before.Content == after.Content {
		return
	}
	switch {
	case after.DirectMessage():
		if before == nil {
			before = &InboundMessage{}
		}
		r.fromUser(ctx, after, before)
	case after.InThread:
		r.fromStaff(ctx, after)
	}
}

// fromUser relays a direct message into the user's open ticket, or starts
// onboarding. before is non-nil for edits.
func (r *Router) fromUser(ctx context.Context, msg InboundMessage, before *InboundMessage) {
	ctx, span := otel.Tracer("relay/Router").Start(ctx, "fromUser",
		trace.WithAttributes(attribute.Bool("edit", before != nil)),
	)
	defer span.End()

	rec := r.activeTicket(ctx, msg.Author)
	if rec == nil {
		if before == nil {
			r.beginOnboarding(ctx, msg)
		}
		return
	}
	span.SetAttributes(attribute.String("community.id", rec.CommunityID), attribute.String("thread.id", rec.ThreadID))

	label := msg.Author.Label()
	if rec.Anonymous() {
		label = AnonymousLabel
	}
	content := formatLine(label, msg.Content)
	if before != nil {
		content = formatEdit(label, before.Content, msg.Content)
	}

	lg := r.log.With().
		Str("direction", dirToStaff).
		Str("community_id", rec.CommunityID).
		Str("thread_id", rec.ThreadID).
		Str("user", userField(msg.Author)).
		Logger()
	out, err := r.outbound(ctx, content, msg)
	if err != nil {
		r.relayFailed(span, lg, dirToStaff, err, "fetch attachments")
		return
	}
	if out.Empty() {
		relayMessages.WithLabelValues(dirToStaff, outcomeEmpty).Inc()
		return
	}
	if err := r.p.SendThread(ctx, rec.ThreadID, out); err != nil {
		r.relayFailed(span, lg, dirToStaff, err, "send to thread")
		return
	}
	relayMessages.WithLabelValues(dirToStaff, outcomeRelayed).Inc()
	r.ack(ctx, msg.Ref)
}

// activeTicket returns the first open ticket of user, in community id
// order, whose thread still exists.
func (r *Router) activeTicket(ctx context.Context, user domain.UserRef) *domain.TicketRecord {
	defer r.syncGauges()

	communities, err := r.p.Communities(ctx)
	if err != nil {
		r.log.Warn().Err(err).Msg("list communities")
		return nil
	}
	slices.SortFunc(communities, func(a, b Community) int { return strings.Compare(a.ID, b.ID) })

	for _, c := range communities {
		rec, err := r.store.Lookup(c.ID, user)
		if err != nil {
			r.log.Warn().Err(err).Str("community_id", c.ID).Msg("ticket lookup")
			continue
		}
		if rec == nil || !rec.TicketOpen {
			continue
		}
		if !r.p.ThreadExists(ctx, rec.ThreadID) {
			continue
		}
		return rec
	}
	return nil
}

// fromStaff relays a message posted in a ticket thread to the ticket's user.
func (r *Router) fromStaff(ctx context.Context, msg InboundMessage) {
	threadID := msg.Ref.ChannelID
	ctx, span := otel.Tracer("relay/Router").Start(ctx, "fromStaff",
		trace.WithAttributes(
			attribute.String("community.id", msg.CommunityID),
			attribute.String("thread.id", threadID),
		),
	)
	defer span.End()

	rec, err := r.store.LookupByThread(msg.CommunityID, threadID)
	if err != nil {
		r.log.Warn().Err(err).Str("community_id", msg.CommunityID).Msg("ticket lookup by thread")
		return
	}
	if rec == nil {
		return
	}

	lg := r.log.With().
		Str("direction", dirToUser).
		Str("community_id", msg.CommunityID).
		Str("thread_id", threadID).
		Logger()

	target := rec.Key
	if rec.Anonymous() {
		u, ok := r.store.Sessions().Resolve(rec.UserHash)
		if !ok {
			relayMessages.WithLabelValues(dirToUser, outcomeDropped).Inc()
			lg.Info().Str("user", identity.Short(rec.UserHash)).Msg("anonymous user not reachable until they write again")
			return
		}
		target = u.ID
	}

	out, err := r.outbound(ctx, formatLine(msg.Author.Label(), msg.Content), msg)
	if err != nil {
		r.relayFailed(span, lg, dirToUser, err, "fetch attachments")
		return
	}
	if out.Empty() {
		relayMessages.WithLabelValues(dirToUser, outcomeEmpty).Inc()
		return
	}
	if err := r.p.SendDirect(ctx, target, out); err != nil {
		r.relayFailed(span, lg, dirToUser, err, "send direct message")
		return
	}
	relayMessages.WithLabelValues(dirToUser, outcomeRelayed).Inc()
	r.ack(ctx, msg.Ref)
}

// outbound assembles content, stickers, downloaded attachments and embeds.
// Any attachment that cannot be fetched fails the whole relay.
func (r *Router) outbound(ctx context.Context, content string, msg InboundMessage) (Outbound, error) {
	out := Outbound{Content: withStickers(content, msg.Stickers)}
	for _, a := range msg.Attachments {
		f, err := r.p.Fetch(ctx, a)
		if err != nil {
			return Outbound{}, err
		}
		out.Files = append(out.Files, f)
	}
	if len(msg.Embeds) > 0 {
		out.Embeds = slices.Clone(msg.Embeds)
	}
	return out, nil
}

// ack marks a relayed message. Failures are logged and otherwise ignored.
func (r *Router) ack(ctx context.Context, ref MessageRef) {
	if r.opts.AckReaction == "" || ref.MessageID == "" {
		return
	}
	if err := r.p.React(ctx, ref, r.opts.AckReaction); err != nil {
		r.log.Debug().Err(err).Str("channel_id", ref.ChannelID).Msg("add acknowledgement reaction")
	}
}

func (r *Router) relayFailed(span trace.Span, lg zerolog.Logger, direction string, err error, step string) {
	relayMessages.WithLabelValues(direction, outcomeFailed).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, step)
	lg.Warn().Err(err).Msg(step)
}

func (r *Router) syncGauges() {
	anonymousSessions.Set(float64(r.store.Sessions().Len()))
}

// userField identifies a user in logs without exposing the raw id.
func userField(u domain.UserRef) string {
	return identity.Short(identity.Hash(u.ID))
}
