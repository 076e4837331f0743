package domain

// SignalType tags a signal with the source family that produced it.
type SignalType string

const (
	SignalTypeFearGreed SignalType = "FEAR_GREED"
	SignalTypeWhale     SignalType = "WHALE"
	SignalTypeLaunch    SignalType = "LAUNCH"
	SignalTypeSafety    SignalType = "SAFETY"
	SignalTypeMarket    SignalType = "MARKET"
	SignalTypeNews      SignalType = "NEWS"
	SignalTypeGeneric   SignalType = "GENERIC"
)

// Action is the recommended response to a signal.
type Action string

const (
	ActionBuy    Action = "BUY"
	ActionSell   Action = "SELL"
	ActionWatch  Action = "WATCH"
	ActionIgnore Action = "IGNORE"
)

// Urgency orders how quickly a signal should be acted on.
type Urgency string

const (
	UrgencyImmediate Urgency = "IMMEDIATE"
	UrgencyToday     Urgency = "TODAY"
	UrgencyLater     Urgency = "LATER"
	UrgencyNone      Urgency = "NONE"
)

// Rank returns the ordering of an urgency; higher is more urgent.
func (u Urgency) Rank() int {
	switch u {
	case UrgencyImmediate:
		return 3
	case UrgencyToday:
		return 2
	case UrgencyLater:
		return 1
	default:
		return 0
	}
}

// Risk orders the estimated downside of acting on a signal.
type Risk string

const (
	RiskLow    Risk = "LOW"
	RiskMedium Risk = "MEDIUM"
	RiskHigh   Risk = "HIGH"
)

// Rank returns the ordering of a risk level; higher is riskier.
func (r Risk) Rank() int {
	switch r {
	case RiskHigh:
		return 2
	case RiskMedium:
		return 1
	default:
		return 0
	}
}

// Signal is the classified, actionable interpretation of one discovery.
// Signals are stateless; they are produced and consumed within a batch and
// optionally appended to the signal_history table in ClickHouse.
type Signal struct {
	Type       SignalType
	Action     Action
	Confidence float64 // 0-100
	Urgency    Urgency
	Risk       Risk
	Reasoning  string

	// Back-references to the originating discovery.
	Fingerprint string
	Source      string
	Title       string

	CreatedAt int64 // Unix ms
}
