package intent

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/johnquangdev/meeting-scheduler/internal/domain/entities"
	"github.com/johnquangdev/meeting-scheduler/pkg/ai"
	"github.com/johnquangdev/meeting-scheduler/pkg/config"
	"github.com/johnquangdev/meeting-scheduler/pkg/validator"
)

// Classifier is the text-completion "classify" contract
type Classifier interface {
	Classify(ctx context.Context, prompt string) (string, error)
}

// ResultCache stores serialized results by message hash
type ResultCache interface {
	Get(key string) (string, bool)
	Set(key string, value string, expiration time.Duration)
}

const (
	SourceRules      = "rules"
	SourceClassifier = "classifier"
	SourceCache      = "cache"
)

// classifierPayload is the strict schema the classifier must answer with
type classifierPayload struct {
	Intent          string `json:"intent" validate:"required,oneof=accept counter_propose decline question reschedule delegate confused unclear"`
	Confidence      string `json:"confidence" validate:"required,oneof=high medium low"`
	Sentiment       string `json:"sentiment" validate:"omitempty,oneof=positive neutral negative"`
	Reasoning       string `json:"reasoning" validate:"max=1000"`
	IsConfused      bool   `json:"is_confused"`
	ConfusionReason string `json:"confusion_reason" validate:"max=500"`
	IsDelegating    bool   `json:"is_delegating"`
	DelegateTo      string `json:"delegate_to" validate:"max=200"`
	HasQuestion     bool   `json:"has_question"`
	Question        string `json:"question" validate:"max=1000"`
}

const classifyPrompt = `Classify the reply below to a meeting-scheduling email.
%s
Return JSON with exactly these fields:
{"intent":"accept|counter_propose|decline|question|reschedule|delegate|confused|unclear",
 "confidence":"high|medium|low","sentiment":"positive|neutral|negative","reasoning":"<one sentence>",
 "is_confused":false,"confusion_reason":"","is_delegating":false,"delegate_to":"","has_question":false,"question":""}
Do not extract or compute any dates or times.

Reply:
%s`

// Detector classifies a reply's intent
type Detector struct {
	classifier Classifier
	cache      ResultCache
	ttl        time.Duration
	logger     *zap.Logger
}

// NewDetector creates a detector. classifier and cache may be nil; without a
// classifier the deterministic rules decide alone.
func NewDetector(classifier Classifier, cache ResultCache, rules config.IntentRules, logger *zap.Logger) *Detector {
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := time.Duration(rules.CacheTTLMinutes) * time.Minute
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Detector{
		classifier: classifier,
		cache:      cache,
		ttl:        ttl,
		logger:     logger,
	}
}

// DetectIntent classifies body. Deterministic confusion and delegation
// signals are OR-ed into the classifier's answer.
func (d *Detector) DetectIntent(ctx context.Context, body string, proposed []entities.ProposedTime) Result {
	reply := StripQuoted(body)
	if reply == "" {
		return unclear("empty reply")
	}

	key := cacheKey(reply, proposed)
	if d.cache != nil {
		if raw, ok := d.cache.Get(key); ok {
			var cached Result
			if err := json.Unmarshal([]byte(raw), &cached); err == nil {
				cached.Source = SourceCache
				return cached
			}
		}
	}

	var res Result
	cacheable := true
	if d.classifier != nil {
		res, cacheable = d.classify(ctx, reply, proposed)
	} else {
		res = classifyByRules(reply)
	}
	res = applySignals(res, reply)

	if d.cache != nil && cacheable {
		if b, err := json.Marshal(res); err == nil {
			d.cache.Set(key, string(b), d.ttl)
		}
	}
	return res
}

func (d *Detector) classify(ctx context.Context, reply string, proposed []entities.ProposedTime) (Result, bool) {
	var options string
	if len(proposed) > 0 {
		lines := make([]string, 0, len(proposed))
		for i, p := range proposed {
			lines = append(lines, fmt.Sprintf("  %d. %s", i+1, p.Display))
		}
		options = "We had proposed these options:\n" + strings.Join(lines, "\n")
	}

	raw, err := d.classifier.Classify(ctx, fmt.Sprintf(classifyPrompt, options, reply))
	if err != nil {
		d.logger.Warn("⚠️ Intent classification failed", zap.Error(err))
		res := unclear("classifier unavailable: " + err.Error())
		res.Source = SourceClassifier
		return res, false
	}

	var payload classifierPayload
	if err := json.Unmarshal([]byte(ai.ExtractJSON(raw)), &payload); err != nil {
		d.logger.Warn("⚠️ Classifier returned invalid JSON", zap.Error(err))
		res := unclear("classifier returned invalid JSON")
		res.Source = SourceClassifier
		return res, true
	}
	if err := validator.ValidateStruct(payload); err != nil {
		d.logger.Warn("⚠️ Classifier payload failed validation", zap.Error(err))
		res := unclear("classifier payload failed validation")
		res.Source = SourceClassifier
		return res, true
	}

	sentiment := Sentiment(payload.Sentiment)
	if sentiment == "" {
		sentiment = SentimentNeutral
	}
	return Result{
		Intent:          Intent(payload.Intent),
		Confidence:      entities.ConfidenceTier(payload.Confidence),
		Sentiment:       sentiment,
		Reasoning:       payload.Reasoning,
		IsConfused:      payload.IsConfused,
		ConfusionReason: payload.ConfusionReason,
		IsDelegating:    payload.IsDelegating,
		DelegateTo:      payload.DelegateTo,
		HasQuestion:     payload.HasQuestion,
		Question:        payload.Question,
		Source:          SourceClassifier,
	}, true
}

// classifyByRules is the keyword fallback used without a classifier
func classifyByRules(reply string) Result {
	lower := normalize(reply)
	res := Result{Confidence: entities.ConfidenceMedium, Sentiment: SentimentNeutral, Source: SourceRules}

	if m, ok := matchAny(declinePatterns, lower); ok {
		res.Intent, res.Sentiment = IntentDecline, SentimentNegative
		res.Reasoning = "decline wording " + quote(m)
		return res
	}
	if m, ok := matchAny(reschedulePatterns, lower); ok {
		res.Intent = IntentReschedule
		res.Reasoning = "reschedule wording " + quote(m)
		return res
	}
	if m, ok := matchAny(counterPatterns, lower); ok {
		res.Intent = IntentCounterPropose
		res.Reasoning = "alternative time wording " + quote(m)
		return res
	}
	if m, ok := matchAny(acceptPatterns, lower); ok {
		res.Intent, res.Sentiment = IntentAccept, SentimentPositive
		res.Reasoning = "acceptance wording " + quote(m)
		return res
	}
	if q, ok := DetectQuestion(reply); ok {
		res.Intent = IntentQuestion
		res.Reasoning = "reply asks " + quote(q)
		return res
	}

	res = unclear("no recognisable scheduling intent")
	res.Source = SourceRules
	return res
}

// applySignals ORs the deterministic patterns into a result
func applySignals(res Result, reply string) Result {
	if reason, ok := DetectConfusion(reply); ok && !res.IsConfused {
		res.IsConfused = true
		res.ConfusionReason = reason
	}
	if res.IsConfused {
		res.Intent = IntentConfused
		if res.ConfusionReason == "" {
			res.ConfusionReason = "classifier flagged confusion"
		}
	}

	if to, ok := DetectDelegation(reply); ok {
		res.IsDelegating = true
		if res.DelegateTo == "" {
			res.DelegateTo = to
		}
	}
	if res.IsDelegating && !res.IsConfused {
		res.Intent = IntentDelegate
	}

	if q, ok := DetectQuestion(reply); ok && !res.HasQuestion {
		res.HasQuestion = true
		res.Question = q
	}
	if res.Sentiment == "" {
		res.Sentiment = SentimentNeutral
	}
	return res
}

func cacheKey(reply string, proposed []entities.ProposedTime) string {
	h := sha256.New()
	h.Write([]byte(reply))
	for _, p := range proposed {
		h.Write([]byte{0})
		h.Write([]byte(p.Instant.UTC().Format(time.RFC3339)))
	}
	return "intent:" + hex.EncodeToString(h.Sum(nil))
}
