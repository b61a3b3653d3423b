package relay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-relay-bot/internal/domain"
)

// beginOnboarding asks the user to pick an identity mode for the ticket the
// message will open.
func (r *Router) beginOnboarding(ctx context.Context, msg InboundMessage) {
	f := r.flows.begin(msg)
	if err := r.p.PromptIdentity(ctx, msg.Author.ID, f.id); err != nil {
		r.flows.drop(f.id)
		onboardingResults.WithLabelValues("prompt_failed").Inc()
		r.log.Warn().Err(err).Str("user", userField(msg.Author)).Msg("send identity prompt")
		return
	}
	onboardingResults.WithLabelValues("started").Inc()
}

// ChooseIdentity applies the user's identity choice to a pending flow.
// reply answers the button press. With a single eligible community the
// ticket is opened right away; with several the user is asked to pick one.
//
// ErrFlowExpired means the flow is gone; callers should acknowledge the
// interaction silently.
func (r *Router) ChooseIdentity(ctx context.Context, flowID string, user domain.UserRef, mode domain.IdentityMode, reply Reply) error {
	ctx, span := otel.Tracer("relay/Router").Start(ctx, "ChooseIdentity",
		trace.WithAttributes(attribute.String("mode", string(mode))),
	)
	defer span.End()

	if !mode.Valid() {
		return fmt.Errorf("choose identity: unknown mode %q", mode)
	}
	f, err := r.flows.claim(flowID, user.ID, awaitingIdentity)
	if err != nil {
		return err
	}
	r.reply(ctx, reply, fmt.Sprintf(msgChoseMode, modeTitle(mode)))

	candidates := r.candidates(ctx, f.user.ID)
	switch len(candidates) {
	case 0:
		onboardingResults.WithLabelValues("no_community").Inc()
		r.notify(ctx, f.user, msgNoCommunities)
		return nil
	case 1:
		r.openTicket(ctx, f, mode, candidates[0])
		return nil
	}

	f.mode = mode
	f.candidates = candidates
	if !r.flows.park(f, awaitingCommunity) {
		onboardingResults.WithLabelValues("replaced").Inc()
		return nil
	}
	if err := r.p.PromptCommunity(ctx, f.user.ID, f.id, candidates); err != nil {
		r.flows.drop(f.id)
		onboardingResults.WithLabelValues("prompt_failed").Inc()
		r.log.Warn().Err(err).Str("user", userField(f.user)).Msg("send community prompt")
	}
	return nil
}

// ChooseCommunity applies the user's community choice and opens the ticket.
// Same error contract as ChooseIdentity.
func (r *Router) ChooseCommunity(ctx context.Context, flowID string, user domain.UserRef, communityID string, reply Reply) error {
	ctx, span := otel.Tracer("relay/Router").Start(ctx, "ChooseCommunity",
		trace.WithAttributes(attribute.String("community.id", communityID)),
	)
	defer span.End()

	f, err := r.flows.claim(flowID, user.ID, awaitingCommunity)
	if err != nil {
		return err
	}

	var chosen *Community
	for i := range f.candidates {
		if f.candidates[i].ID == communityID {
			chosen = &f.candidates[i]
			break
		}
	}
	if chosen != nil {
		c, err := r.p.Community(ctx, chosen.ID)
		if err != nil {
			chosen = nil
		} else {
			chosen = &c
		}
	}
	if chosen == nil {
		onboardingResults.WithLabelValues("unknown_community").Inc()
		r.notify(ctx, f.user, msgUnknownCommunity)
		return nil
	}

	r.reply(ctx, reply, fmt.Sprintf(msgCreatingIn, chosen.Name))
	r.openTicket(ctx, f, f.mode, *chosen)
	return nil
}

// candidates lists communities shared with the user that have a relay
// channel configured.
func (r *Router) candidates(ctx context.Context, userID string) []Community {
	mutual, err := r.p.MutualCommunities(ctx, userID)
	if err != nil {
		r.log.Warn().Err(err).Msg("list mutual communities")
		return nil
	}
	var out []Community
	for _, c := range mutual {
		cfg, err := r.configs.Get(ctx, c.ID)
		if err != nil {
			r.log.Warn().Err(err).Str("community_id", c.ID).Msg("load community config")
			continue
		}
		if cfg.HasRelayChannel() {
			out = append(out, c)
		}
	}
	return out
}

// openTicket creates the thread, persists the record and relays the message
// that started the flow. A failure before the record is saved leaves no
// record behind.
func (r *Router) openTicket(ctx context.Context, f *flow, mode domain.IdentityMode, c Community) {
	lg := r.log.With().Str("community_id", c.ID).Str("mode", string(mode)).Str("user", userField(f.user)).Logger()

	threadID, err := r.createThread(ctx, f.user, mode, c)
	if err != nil {
		onboardingResults.WithLabelValues("create_failed").Inc()
		lg.Warn().Err(err).Msg("create ticket thread")
		r.notify(ctx, f.user, fmt.Sprintf(msgCouldNotCreate, c.Name))
		return
	}
	lg = lg.With().Str("thread_id", threadID).Logger()

	rec := &domain.TicketRecord{
		IdentityMode: mode,
		TicketOpen:   true,
		ThreadID:     threadID,
		OpenedAt:     time.Now().UTC(),
	}
	// A record left behind by a ticket whose thread is gone may sit under
	// the other mode's key; drop it so the user keeps a single record.
	err = r.store.Delete(c.ID, f.user)
	if err == nil {
		err = r.store.Save(c.ID, f.user, rec)
	}
	if err != nil {
		onboardingResults.WithLabelValues("create_failed").Inc()
		lg.Error().Err(err).Msg("save ticket record")
		if aerr := r.p.ArchiveThread(ctx, threadID); aerr != nil {
			lg.Warn().Err(aerr).Msg("archive orphaned thread")
		}
		r.notify(ctx, f.user, fmt.Sprintf(msgCouldNotCreate, c.Name))
		return
	}
	ticketsOpened.WithLabelValues(string(mode)).Inc()
	onboardingResults.WithLabelValues("opened").Inc()
	r.syncGauges()
	lg.Info().Msg("ticket opened")

	if err := r.p.SendThread(ctx, threadID, Outbound{Content: fmt.Sprintf(msgTicketOpened, modeTitle(mode))}); err != nil {
		lg.Warn().Err(err).Msg("announce ticket")
	}

	label := f.user.Label()
	if mode == domain.ModeAnonymous {
		label = AnonymousLabel
	}
	out, err := r.outbound(ctx, formatLine(label, f.first.Content), f.first)
	switch {
	case err != nil:
		relayMessages.WithLabelValues(dirToStaff, outcomeFailed).Inc()
		lg.Warn().Err(err).Msg("fetch attachments")
	case out.Empty():
		relayMessages.WithLabelValues(dirToStaff, outcomeEmpty).Inc()
	default:
		if err := r.p.SendThread(ctx, threadID, out); err != nil {
			relayMessages.WithLabelValues(dirToStaff, outcomeFailed).Inc()
			lg.Warn().Err(err).Msg("relay first message")
		} else {
			relayMessages.WithLabelValues(dirToStaff, outcomeRelayed).Inc()
			r.ack(ctx, f.first.Ref)
		}
	}

	r.notify(ctx, f.user, fmt.Sprintf(msgTicketCreated, mode, c.Name))
}

func (r *Router) createThread(ctx context.Context, user domain.UserRef, mode domain.IdentityMode, c Community) (string, error) {
	cfg, err := r.configs.Get(ctx, c.ID)
	if err != nil {
		return "", err
	}
	if !cfg.HasRelayChannel() {
		return "", ErrNoRelayChannel
	}
	display := r.p.DisplayName(ctx, c.ID, user.ID)
	if display == "" {
		display = user.Label()
	}
	threadID, err := r.p.CreateThread(ctx, cfg.RelayChannelID, threadName(mode, display))
	if err != nil {
		return "", err
	}
	if threadID == "" {
		return "", errors.New("platform returned no thread id")
	}
	return threadID, nil
}

// notify DMs the user; failures are logged.
func (r *Router) notify(ctx context.Context, user domain.UserRef, text string) {
	if err := r.p.SendDirect(ctx, user.ID, Outbound{Content: text}); err != nil {
		r.log.Warn().Err(err).Str("user", userField(user)).Msg("notify user")
	}
}

func (r *Router) reply(ctx context.Context, reply Reply, text string) {
	if reply == nil {
		return
	}
	if err := reply(ctx, text); err != nil {
		r.log.Debug().Err(err).Msg("reply to interaction")
	}
}
