package detection

// scamKeywords are financial, urgency and credential terms typical of SMS fraud
var scamKeywords = []string{
	"winner", "won", "prize", "lottery", "urgent", "account blocked",
	"verify", "kyc", "suspend", "expiration", "unusual activity",
	"refund", "claim", "deposit", "investment", "profit",
	"otp", "pin", "password", "cvv", "atm card", "credit card",
}

// urgencyPhrases pressure the reader into acting before thinking
var urgencyPhrases = []string{
	"immediately", "now", "today only", "within 24 hours",
	"action required", "act now", "limited time", "expires soon",
	"don't wait", "risk of suspension", "legal action",
}

// KeywordDetector matches the fixed scam keyword list
type KeywordDetector struct {
	keywords []string
}

// NewKeywordDetector creates a detector over the default keyword list
func NewKeywordDetector() *KeywordDetector {
	return &KeywordDetector{keywords: scamKeywords}
}

// FindMatches returns the keywords contained in body, in list order
func (d *KeywordDetector) FindMatches(body string) []string {
	return containsAny(Normalize(body), d.keywords)
}

// UrgencyDetector flags pressure language
type UrgencyDetector struct {
	phrases []string
}

// NewUrgencyDetector creates a detector over the default urgency phrases
func NewUrgencyDetector() *UrgencyDetector {
	return &UrgencyDetector{phrases: urgencyPhrases}
}

// HasUrgency reports whether any urgency phrase appears in body
func (d *UrgencyDetector) HasUrgency(body string) bool {
	return len(d.Matches(body)) > 0
}

// Matches returns the urgency phrases found in body
func (d *UrgencyDetector) Matches(body string) []string {
	return containsAny(Normalize(body), d.phrases)
}
