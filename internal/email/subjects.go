package email

const (
	subjectProposalReceivedFmt = "New proposal from %s"
	subjectProposalAcceptedFmt = "Your proposal for %s was accepted"
	subjectProposalRejectedFmt = "Update on your proposal for %s"
	subjectLeadPurchased       = "A contractor picked up your project"
)
