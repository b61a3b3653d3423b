package relay

import "errors"

var (
	// ErrFlowExpired is returned for a choice on an onboarding flow that timed
	// out, was replaced by a newer one, was already answered, or belongs to
	// someone else.
	ErrFlowExpired = errors.New("onboarding flow expired")

	// ErrNoRelayChannel is returned when a community has no relay channel set.
	ErrNoRelayChannel = errors.New("community has no relay channel")

	// ErrUnknownCommunity is returned when a chosen community is not one the
	// bot can open a ticket in.
	ErrUnknownCommunity = errors.New("unknown community")
)
