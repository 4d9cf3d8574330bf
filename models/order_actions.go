package models

// Actions are the client-visible operations an order currently allows
type Actions struct {
	Cancel        bool `json:"cancel"`
	SignContract  bool `json:"sign_contract"`
	SignAmendment bool `json:"sign_amendment"`
	ViewContract  bool `json:"view_contract"`
	SubmitPayment bool `json:"submit_payment"`
	TrackDelivery bool `json:"track_delivery"`
	Rate          bool `json:"rate"`
}

// AvailableActions derives the allowed actions from the order, its latest
// payment (nil when none exists) and whether it has been rated already.
// Both the UI and the mutating endpoints consult this.
func AvailableActions(order Order, latestPayment *Payment, rated bool) Actions {
	var a Actions

	a.Cancel = order.Status.IsCancellable()
	a.SignContract = order.Status == StatusContractSigning && !order.ContractSigned
	a.SignAmendment = order.RequiresContractAmendment && order.ContractSigned && !order.Status.IsTerminal()
	a.ViewContract = order.ContractSigned && !a.SignAmendment

	paymentOpen := latestPayment == nil || latestPayment.Status == PaymentRejected
	a.SubmitPayment = order.Status == StatusWaitingForPayment && order.ContractSigned &&
		!order.RequiresContractAmendment && paymentOpen

	a.TrackDelivery = order.Status == StatusInTransit && order.TrackingLink != ""
	a.Rate = order.Status == StatusCompleted && !rated

	return a
}
