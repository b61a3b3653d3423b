package relay

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/tbourn/go-relay-bot/internal/domain"
)

// CloseTicket closes every open ticket the user has and returns the text
// to answer the command with. It only works from a direct message.
//
// For each ticket the thread is told and archived, then the record is
// deleted; thread failures are logged and do not stop the deletion.
func (r *Router) CloseTicket(ctx context.Context, user domain.UserRef, inDM bool) string {
	if !inDM {
		return MsgDMOnly
	}
	ctx, span := otel.Tracer("relay/Router").Start(ctx, "CloseTicket")
	defer span.End()

	communities, err := r.p.Communities(ctx)
	if err != nil {
		r.log.Warn().Err(err).Msg("list communities")
	}

	closed := 0
	for _, c := range communities {
		rec, err := r.store.Lookup(c.ID, user)
		if err != nil {
			r.log.Warn().Err(err).Str("community_id", c.ID).Msg("ticket lookup")
			continue
		}
		if rec == nil || !rec.TicketOpen {
			continue
		}
		lg := r.log.With().Str("community_id", c.ID).Str("thread_id", rec.ThreadID).Str("user", userField(user)).Logger()

		rec.TicketOpen = false
		if err := r.store.Save(c.ID, user, rec); err != nil {
			lg.Warn().Err(err).Msg("mark ticket closed")
		}
		if err := r.p.SendThread(ctx, rec.ThreadID, Outbound{Content: msgClosedByUser}); err != nil {
			lg.Warn().Err(err).Msg("notify thread of close")
		}
		if err := r.p.ArchiveThread(ctx, rec.ThreadID); err != nil {
			lg.Warn().Err(err).Msg("archive thread")
		}
		if err := r.store.Delete(c.ID, user); err != nil {
			lg.Error().Err(err).Msg("delete ticket record")
			continue
		}
		closed++
		ticketsClosed.Inc()
		lg.Info().Msg("ticket closed")
	}
	span.SetAttributes(attribute.Int("closed", closed))

	if closed == 0 {
		return MsgNoOpenTickets
	}
	return MsgTicketClosed
}
