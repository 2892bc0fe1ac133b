package domain

// Fallbacks written when the classifier omits a field.
const (
	DefaultRequestType = "Uncategorized"
	DefaultUrgency     = UrgencyLow
	DefaultRouteTo     = "IT Desk"
	DefaultResponseMsg = "We received your request."
)

// Classification is the decoded result of the AI classification call.
type Classification struct {
	RequestType  string
	Urgency      Urgency
	AutoApproval bool
	RouteTo      string
	ResponseMsg  string
}
