package intent

import (
	"github.com/johnquangdev/meeting-scheduler/internal/domain/entities"
)

// Intent is the closed set of reply classifications
type Intent string

const (
	IntentAccept         Intent = "accept"
	IntentCounterPropose Intent = "counter_propose"
	IntentDecline        Intent = "decline"
	IntentQuestion       Intent = "question"
	IntentReschedule     Intent = "reschedule"
	IntentDelegate       Intent = "delegate"
	IntentConfused       Intent = "confused"
	IntentUnclear        Intent = "unclear"
)

// Sentiment of the reply
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// Result is the outcome of DetectIntent. It never carries timestamps.
type Result struct {
	Intent          Intent                  `json:"intent"`
	Confidence      entities.ConfidenceTier `json:"confidence"`
	Sentiment       Sentiment               `json:"sentiment"`
	Reasoning       string                  `json:"reasoning"`
	IsConfused      bool                    `json:"is_confused"`
	ConfusionReason string                  `json:"confusion_reason,omitempty"`
	IsDelegating    bool                    `json:"is_delegating"`
	DelegateTo      string                  `json:"delegate_to,omitempty"`
	HasQuestion     bool                    `json:"has_question"`
	Question        string                  `json:"question,omitempty"`
	Source          string                  `json:"source"`
}

// ShortCircuits reports whether automation must stop and hand off to a human
func (r Result) ShortCircuits() bool {
	return r.IsConfused || r.IsDelegating || r.Confidence == entities.ConfidenceLow
}

func unclear(reason string) Result {
	return Result{
		Intent:     IntentUnclear,
		Confidence: entities.ConfidenceLow,
		Sentiment:  SentimentNeutral,
		Reasoning:  reason,
	}
}
