package domain

// Status is the sales funnel position of a lead.
type Status string

const (
	StatusNew         Status = "New"
	StatusContacted   Status = "Contacted"
	StatusQualified   Status = "Qualified"
	StatusNegotiation Status = "Negotiation"
	StatusBooked      Status = "Booked"
	StatusLost        Status = "Lost"
	StatusUnqualified Status = "Unqualified"
)

var knownStatuses = map[Status]struct{}{
	StatusNew:         {},
	StatusContacted:   {},
	StatusQualified:   {},
	StatusNegotiation: {},
	StatusBooked:      {},
	StatusLost:        {},
	StatusUnqualified: {},
}

// terminalStatuses are statuses where no further follow-up is planned.
var terminalStatuses = map[Status]bool{
	StatusBooked:      true,
	StatusLost:        true,
	StatusUnqualified: true,
}

func IsKnownStatus(status Status) bool {
	_, ok := knownStatuses[status]
	return ok
}

// IsTerminalStatus returns true when the lead has left the active funnel.
func IsTerminalStatus(status Status) bool {
	return terminalStatuses[status]
}

// IsClosedLost returns true for statuses whose priority must never be escalated.
func IsClosedLost(status Status) bool {
	return status == StatusLost || status == StatusUnqualified
}

// QualificationStatus is the sales qualification decision.
type QualificationStatus string

const (
	QualificationPending      QualificationStatus = "Pending"
	QualificationQualified    QualificationStatus = "Qualified"
	QualificationDisqualified QualificationStatus = "Disqualified"
)

func IsKnownQualificationStatus(status QualificationStatus) bool {
	switch status {
	case QualificationPending, QualificationQualified, QualificationDisqualified:
		return true
	}
	return false
}

// Source is the acquisition channel.
type Source string

const (
	SourceWebsite  Source = "website"
	SourceReferral Source = "referral"
	SourceWalkIn   Source = "walk_in"
	SourcePartner  Source = "partner"
	SourceSocial   Source = "social"
	SourceColdCall Source = "cold_call"
	SourceOther    Source = "other"
)

// NormalizeSource maps unknown channels to SourceOther.
func NormalizeSource(source string) Source {
	switch s := Source(source); s {
	case SourceWebsite, SourceReferral, SourceWalkIn, SourcePartner, SourceSocial, SourceColdCall:
		return s
	}
	return SourceOther
}

// InteractionType is the kind of contact made.
type InteractionType string

const (
	InteractionCall      InteractionType = "call"
	InteractionMeeting   InteractionType = "meeting"
	InteractionMessage   InteractionType = "message"
	InteractionEmail     InteractionType = "email"
	InteractionNote      InteractionType = "note"
	InteractionSiteVisit InteractionType = "site_visit"
)

func IsKnownInteractionType(t InteractionType) bool {
	switch t {
	case InteractionCall, InteractionMeeting, InteractionMessage, InteractionEmail, InteractionNote, InteractionSiteVisit:
		return true
	}
	return false
}

// Outcome is the result of an interaction as judged by the actor.
type Outcome string

const (
	OutcomeNone     Outcome = ""
	OutcomePositive Outcome = "positive"
	OutcomeNeutral  Outcome = "neutral"
	OutcomeNegative Outcome = "negative"
	OutcomeNoAnswer Outcome = "no_answer"
)

// Direction says who initiated the interaction.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// FollowUpTypeAuto marks a follow-up computed by the scoring worker.
const FollowUpTypeAuto = "auto"
