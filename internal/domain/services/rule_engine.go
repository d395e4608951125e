package services

import (
	"fmt"
	"strings"
	"time"

	"scamguard/internal/domain/models"
	"scamguard/internal/domain/services/detection"
	"scamguard/internal/observability/metrics"
	"scamguard/pkg/logger"
)

const analysisFailedReason = "Message could not be fully analyzed"

// EngineDeps are the stateful collaborators of the rule engine. Reporter may
// be nil when side effects are not wanted.
type EngineDeps struct {
	Trusted  TrustChecker
	Calls    *CallContextStore
	Tracker  *PatternTracker
	Learning *LearningStore
	Reporter *Reporter
}

// ScamRuleEngine runs every detector over a message, folds the signals into a
// RiskState and hands the result to the reporter. It is safe for concurrent use.
type ScamRuleEngine struct {
	trusted    TrustChecker
	calls      *CallContextStore
	correlator *CallOTPCorrelator
	callCheck  *SuspiciousCallDetector
	tracker    *PatternTracker
	learning   *LearningStore
	reporter   *Reporter
	decision   *RiskDecisionEngine

	keywords     *detection.KeywordDetector
	urgency      *detection.UrgencyDetector
	linkCode     *detection.LinkAndCodeDetector
	linkSafety   *detection.LinkSafetyAnalyzer
	banks        *detection.BankNameValidator
	remote       *detection.RemoteAccessDetector
	multilingual *detection.MultilingualDetector
	learned      *detection.LearnedPatternMatcher
	authority    *detection.AuthorityImpersonationDetector

	metrics *metrics.EngineMetrics
	logger  *logger.Logger
}

// NewScamRuleEngine wires the detectors around deps
func NewScamRuleEngine(deps EngineDeps, m *metrics.EngineMetrics, log *logger.Logger) *ScamRuleEngine {
	return &ScamRuleEngine{
		trusted:      deps.Trusted,
		calls:        deps.Calls,
		correlator:   NewCallOTPCorrelator(deps.Calls),
		callCheck:    NewSuspiciousCallDetector(deps.Trusted),
		tracker:      deps.Tracker,
		learning:     deps.Learning,
		reporter:     deps.Reporter,
		decision:     NewRiskDecisionEngine(),
		keywords:     detection.NewKeywordDetector(),
		urgency:      detection.NewUrgencyDetector(),
		linkCode:     detection.NewLinkAndCodeDetector(),
		linkSafety:   detection.NewLinkSafetyAnalyzer(),
		banks:        detection.NewBankNameValidator(),
		remote:       detection.NewRemoteAccessDetector(),
		multilingual: detection.NewMultilingualDetector(),
		learned:      detection.NewLearnedPatternMatcher(),
		authority:    detection.NewAuthorityImpersonationDetector(),
		metrics:      m,
		logger:       log.WithComponent("rule-engine"),
	}
}

// Evaluate classifies one incoming message. It never fails: a detector that
// panics lowers nothing and leaves a reason behind.
func (e *ScamRuleEngine) Evaluate(sender, body string) (state models.RiskState) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().Str("sender", sender).Interface("panic", r).Msg("evaluation failed")
			state = models.RiskState{Level: models.RiskDanger, Reasons: []string{analysisFailedReason}}
		}
		e.metrics.ObserveEvaluation(state.Level.String(), time.Since(start))
	}()

	if e.trusted.IsTrusted(sender) {
		return e.decision.Decide(SignalSet{Trusted: true})
	}

	set, repeat := e.collect(sender, body)
	state = e.decision.Decide(set)

	var critical []string
	for _, sig := range set.Signals {
		if sig.Severity == models.RiskDanger {
			critical = append(critical, sig.Name)
			e.metrics.ObserveEscalation(sig.Name)
		}
	}

	ev := e.logger.Debug()
	if state.Level == models.RiskDanger {
		ev = e.logger.Info()
	}
	ev.Str("sender", sender).
		Str("level", state.Level.String()).
		Strs("signals", critical).
		Int("reasons", len(state.Reasons)).
		Str("preview", detection.Preview(body, 40)).
		Msg("message evaluated")

	if e.reporter != nil {
		e.reporter.ReportMessage(Evaluation{
			Sender:   sender,
			Body:     body,
			State:    state,
			Category: detection.ClassifyScamType(body, state.MatchedKeywords),
			Critical: critical,
			Repeat:   repeat,
		})
	}
	return state
}

// collect runs the detectors in their fixed order
func (e *ScamRuleEngine) collect(sender, body string) (SignalSet, models.RepeatResult) {
	set := SignalSet{UnknownSender: true}
	add := func(sig Signal) { set.Signals = append(set.Signals, sig) }

	e.guard(&set, SignalCallOTPCorrelation, func() {
		if e.correlator.HasCorrelation(sender, body) {
			add(Signal{
				Name:     SignalCallOTPCorrelation,
				Severity: models.RiskDanger,
				Reasons:  []string{"SCAM ALERT: Suspicious call followed by a code from the same number"},
			})
		}
	})

	e.guard(&set, SignalRemoteAccess, func() {
		if res := e.remote.Detect(body); res.Detected {
			add(Signal{
				Name:     SignalRemoteAccess,
				Severity: models.RiskDanger,
				Reasons:  []string{"CRITICAL: " + res.Warning},
				Keywords: res.Keywords,
			})
		}
	})

	// a sender ID that looks like a real bank is still unknown; only the
	// allow-list or contacts can vouch for it
	e.guard(&set, SignalFakeBank, func() {
		if res := e.banks.Validate(sender); res.IsFake {
			add(Signal{
				Name:     SignalFakeBank,
				Severity: models.RiskDanger,
				Reasons:  []string{"FAKE BANK: " + res.Warning},
			})
		}
	})

	linkReasons := false
	e.guard(&set, SignalLink, func() {
		set.HasLink = e.linkCode.ContainsLink(body)
		for _, res := range e.linkSafety.AnalyzeAll(e.linkCode.ExtractLinks(body)) {
			if !res.IsRisky() {
				continue
			}
			sev := models.RiskSafe
			if res.IsCritical() {
				sev = models.RiskDanger
			}
			linkReasons = true
			add(Signal{Name: SignalLink, Severity: sev, Reasons: []string{res.ReasonText()}})
		}
	})

	e.guard(&set, SignalKeywords, func() {
		if kw := e.keywords.FindMatches(body); len(kw) > 0 {
			set.HasKeywords = true
			add(Signal{Name: SignalKeywords, Reasons: []string{"Suspicious keywords found"}, Keywords: kw})
		}
	})

	e.guard(&set, SignalUrgency, func() {
		if e.urgency.HasUrgency(body) {
			set.HasUrgency = true
			add(Signal{Name: SignalUrgency, Reasons: []string{"Urgent language detected"}})
		}
	})

	if set.HasLink && !linkReasons {
		add(Signal{Name: SignalLinkPresence, Reasons: []string{"Contains suspicious link"}})
	}

	e.guard(&set, SignalCode, func() {
		if code := e.linkCode.ExtractCode(body); code != "" {
			set.HasCode = true
			set.ExtractedCode = code
			add(Signal{Name: SignalCode, Reasons: []string{"Requesting or sending code"}})
		}
	})

	e.guard(&set, SignalAuthority, func() {
		if res := e.authority.Detect(body); res.Detected {
			add(Signal{Name: SignalAuthority, Reasons: []string{res.Reason}, Keywords: res.Terms})
		}
	})

	e.guard(&set, SignalMultilingual, func() {
		res := e.multilingual.Detect(body)
		sig := Signal{Name: SignalMultilingual, Keywords: res.Matches()}
		if res.Suspicious() {
			sig.Reasons = []string{"Suspicious multilingual content detected"}
		}
		if len(sig.Keywords) > 0 || len(sig.Reasons) > 0 {
			add(sig)
		}
	})

	e.guard(&set, SignalLearned, func() {
		if e.learning == nil {
			return
		}
		keywords, patterns := e.learning.Snapshot()
		if m := e.learned.Match(body, keywords, patterns); m.HasMatch() {
			add(Signal{
				Name:     SignalLearned,
				Reasons:  []string{"Matches previously learned scam pattern"},
				Keywords: m.Keywords,
			})
		}
	})

	var repeat models.RepeatResult
	e.guard(&set, SignalRepeat, func() {
		if e.tracker == nil {
			return
		}
		repeat = e.tracker.Track(sender, body, set.Keywords())
		if repeat.ShouldEscalate {
			add(Signal{Name: SignalRepeat, Severity: models.RiskDanger, Reasons: []string{repeat.Message}})
		}
	})

	return set, repeat
}

// guard runs one detector and turns a panic into a CAUTION floor
func (e *ScamRuleEngine) guard(set *SignalSet, name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().Str("detector", name).Interface("panic", r).Msg("detector failed")
			set.Signals = append(set.Signals, Signal{
				Name:     name,
				Severity: models.RiskCaution,
				Reasons:  []string{fmt.Sprintf("Could not complete %s check", strings.ReplaceAll(name, "_", " "))},
			})
		}
	}()
	fn()
}

// RecordSuspiciousCall notes a call from an unrecognized number
func (e *ScamRuleEngine) RecordSuspiciousCall(number string) {
	e.calls.RecordSuspiciousCall(number)
}

// HandleIncomingCall checks an incoming call and records it when suspicious.
// Hidden numbers are reported but cannot be correlated later.
func (e *ScamRuleEngine) HandleIncomingCall(number string) bool {
	if !e.callCheck.IsSuspicious(number) {
		return false
	}
	e.calls.RecordSuspiciousCall(number)
	if e.reporter != nil {
		shown := strings.TrimSpace(number)
		if shown == "" {
			shown = "Unknown"
		}
		e.reporter.ReportCall(shown)
	}
	return true
}

// ConfirmScam feeds a user-confirmed scam into the learning store
func (e *ScamRuleEngine) ConfirmScam(sender, body string, confirmed bool) LearnResult {
	if e.learning == nil {
		return LearnResult{}
	}
	return e.learning.Learn(sender, body, confirmed)
}

// IsTrusted reports whether identifier is a trusted sender
func (e *ScamRuleEngine) IsTrusted(identifier string) bool {
	return e.trusted.IsTrusted(identifier)
}
