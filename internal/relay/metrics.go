package relay

import "github.com/prometheus/client_golang/prometheus"

// Label values.
const (
	dirToStaff = "to_staff"
	dirToUser  = "to_user"

	outcomeRelayed = "relayed"
	outcomeFailed  = "failed"
	outcomeDropped = "dropped"
	outcomeEmpty   = "empty"
)

var (
	// relayMessages counts relay attempts by direction and outcome.
	relayMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_messages_total",
			Help: "Messages relayed between users and staff threads.",
		},
		[]string{"direction", "outcome"},
	)

	// ticketsOpened counts tickets created, by identity mode.
	ticketsOpened = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_tickets_opened_total",
			Help: "Tickets opened.",
		},
		[]string{"mode"},
	)

	ticketsClosed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_tickets_closed_total",
			Help: "Tickets closed by their users.",
		},
	)

	// onboardingResults counts how onboarding flows ended.
	onboardingResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_onboarding_total",
			Help: "Onboarding flows by outcome.",
		},
		[]string{"outcome"},
	)

	anonymousSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_anonymous_sessions",
			Help: "Anonymous users currently reachable by staff replies.",
		},
	)

	pendingOnboarding = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_pending_onboarding",
			Help: "Onboarding flows waiting for a user choice.",
		},
	)
)

func init() {
	prometheus.MustRegister(relayMessages, ticketsOpened, ticketsClosed, onboardingResults, anonymousSessions, pendingOnboarding)
}
