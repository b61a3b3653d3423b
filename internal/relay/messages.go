package relay

// User-facing texts.
const (
	AnonymousLabel      = "Anonymous User"
	AnonymousThreadName = "Anonymous Ticket"

	PromptIdentityText    = "Would you like to open this ticket **Anonymously** or be **Identified** to staff?"
	PromptCommunityText   = "Which server would you like to submit this ticket in?"
	CommunityPlaceholder  = "Choose a server"
	AnonymousButtonLabel  = "Anonymous"
	IdentifiedButtonLabel = "Identified"

	msgChoseMode        = "You chose **%s**. Creating your ticket..."
	msgCreatingIn       = "Creating your ticket in **%s**..."
	msgNoCommunities    = "I couldn’t find any servers where you can open a ticket."
	msgCouldNotCreate   = "Could not create a ticket in %s."
	msgUnknownCommunity = "Could not find that server."
	msgTicketOpened     = "📩 New %s Ticket opened."
	msgTicketCreated    = "Your %s ticket has been created in **%s**. Please be aware that edits to messages are not carried over."

	MsgDMOnly        = "This command can only be used in DMs."
	MsgTicketClosed  = "Your ticket has been closed."
	MsgNoOpenTickets = "You don’t have any open tickets."
	msgClosedByUser  = "This ticket has been closed by the user."
)
