package order

type Status string

const (
	StatusEmitted         Status = "Emitted"
	StatusDispatchPending Status = "DispatchPending"
	StatusReceived        Status = "Received"
	StatusInProgress      Status = "InProgress"
	StatusReady           Status = "Ready"
	StatusFinished        Status = "Finished"
)

// progression lists the kitchen-driven moves ChangeStatus allows without force.
// Emitted and DispatchPending are left only through the kitchen dispatch flow.
var progression = map[Status]Status{
	StatusReceived:   StatusInProgress,
	StatusInProgress: StatusReady,
	StatusReady:      StatusFinished,
}

func (s Status) Valid() bool {
	switch s {
	case StatusEmitted, StatusDispatchPending, StatusReceived,
		StatusInProgress, StatusReady, StatusFinished:
		return true
	}
	return false
}

func (s Status) CanAdvanceTo(next Status) bool {
	to, ok := progression[s]
	return ok && to == next
}

func (s Status) String() string { return string(s) }

type PaymentStatus string

const (
	PaymentNotPayed       PaymentStatus = "NotPayed"
	PaymentPendingPayment PaymentStatus = "PendingPayment"
	PaymentPayed          PaymentStatus = "Payed"
)

// paymentTransitions has no entry for Payed: a settled payment only moves with force.
var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentNotPayed:       {PaymentPendingPayment, PaymentPayed},
	PaymentPendingPayment: {PaymentNotPayed, PaymentPayed},
}

func (p PaymentStatus) Valid() bool {
	switch p {
	case PaymentNotPayed, PaymentPendingPayment, PaymentPayed:
		return true
	}
	return false
}

func (p PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	for _, to := range paymentTransitions[p] {
		if to == next {
			return true
		}
	}
	return false
}

func (p PaymentStatus) String() string { return string(p) }

// CurrentStatuses are the statuses shown on the pickup board, most advanced first.
var CurrentStatuses = []Status{StatusReady, StatusInProgress, StatusReceived}
