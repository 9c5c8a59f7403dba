package domain

// forwardDiligence defines the legal forward transitions for diligences.
// completed and cancelled are forward-terminal; both remain revertible.
var forwardDiligence = map[Status][]Status{
	StatusPending:    {StatusAssigned, StatusCancelled},
	StatusAssigned:   {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusDisputed, StatusCancelled},
	StatusDisputed:   {StatusInProgress, StatusCancelled},
	StatusCompleted:  {},
	StatusCancelled:  {},
}

// forwardClientPayment defines the legal forward transitions for the client
// payment sub-record. A direct pending→paid edge exists for admin settlement
// without a proof round-trip.
var forwardClientPayment = map[Status][]Status{
	StatusPending:             {StatusPendingVerification, StatusPaid},
	StatusPendingVerification: {StatusPaid, StatusPending},
	StatusPaid:                {},
}

// forwardCorrespondentPayment defines the legal forward transitions for the
// correspondent payout sub-record.
var forwardCorrespondentPayment = map[Status][]Status{
	StatusPending: {StatusPaid},
	StatusPaid:    {},
}

// reversionDiligence maps a current diligence status to the statuses it may
// legally be reverted to. Cancelled fans out to three targets: the un-cancel
// recovery path restores whatever stage the work was actually at, not merely
// one step back.
var reversionDiligence = map[Status][]Status{
	StatusCompleted:  {StatusInProgress},
	StatusInProgress: {StatusAssigned},
	StatusAssigned:   {StatusPending},
	StatusCancelled:  {StatusPending, StatusAssigned, StatusInProgress},
	StatusDisputed:   {StatusInProgress},
}

// reversionPayment maps a current payment status to its legal reversion
// targets. The same table serves both payment kinds; targets not in the
// kind's status set never occur because the current status constrains them.
var reversionPayment = map[Status][]Status{
	StatusPaid:                {StatusPendingVerification, StatusPending},
	StatusPendingVerification: {StatusPending},
}

// ForwardLegal reports whether from→to is a legal forward transition for the
// entity kind. For payments both sub-record tables are consulted via
// ForwardLegalPayment; callers that know the payment kind should prefer it.
func ForwardLegal(kind EntityKind, from, to Status) bool {
	switch kind {
	case EntityDiligence:
		return contains(forwardDiligence[from], to)
	case EntityPayment:
		return contains(forwardClientPayment[from], to) ||
			contains(forwardCorrespondentPayment[from], to)
	default:
		return false
	}
}

// ForwardLegalPayment reports whether from→to is legal for the given payment
// sub-record.
func ForwardLegalPayment(paymentKind PaymentKind, from, to Status) bool {
	switch paymentKind {
	case PaymentClient:
		return contains(forwardClientPayment[from], to)
	case PaymentCorrespondent:
		return contains(forwardCorrespondentPayment[from], to)
	default:
		return false
	}
}

// ReversionTargets returns the statuses an entity of the given kind may be
// reverted to from current. The returned slice is a copy; callers may mutate it.
func ReversionTargets(kind EntityKind, current Status) []Status {
	var targets []Status
	switch kind {
	case EntityDiligence:
		targets = reversionDiligence[current]
	case EntityPayment:
		targets = reversionPayment[current]
	}
	return append([]Status(nil), targets...)
}

// ReversionLegal reports whether current→target is a legal reversion.
func ReversionLegal(kind EntityKind, current, target Status) bool {
	return contains(ReversionTargets(kind, current), target)
}

func contains(set []Status, s Status) bool {
	for _, item := range set {
		if item == s {
			return true
		}
	}
	return false
}
