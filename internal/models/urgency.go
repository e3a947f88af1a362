package models

// UrgencyRules are a viewer's preferences for flagging open requests as urgent.
// They travel with each query and are never stored.
type UrgencyRules struct {
	PendingSecondCounts   bool     `json:"pendingSecondCounts"`
	AgeThresholdHours     float64  `json:"ageThresholdHours"`
	PolicyThresholdCounts bool     `json:"policyThresholdCounts"`
	CustomAmountThreshold *float64 `json:"customAmountThreshold,omitempty"`
}

// DefaultUrgencyRules mirrors the console's out-of-the-box toggles.
func DefaultUrgencyRules() UrgencyRules {
	return UrgencyRules{
		PendingSecondCounts:   true,
		AgeThresholdHours:     24,
		PolicyThresholdCounts: true,
	}
}
