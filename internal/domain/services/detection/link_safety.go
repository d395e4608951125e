package detection

import (
	"fmt"
	"net/url"
	"strings"

	"scamguard/internal/domain/models"
)

// shorteners hide the real destination of a link
var shorteners = []string{
	"bit.ly", "tinyurl.com", "goo.gl", "ow.ly", "t.co",
	"short.link", "cutt.ly", "rb.gy", "is.gd",
}

var suspiciousTLDs = []string{".tk", ".ml", ".ga", ".cf", ".gq", ".xyz", ".top", ".work"}

// phishingHostWords show up in throwaway phishing domains
var phishingHostWords = []string{
	"verify", "update", "secure", "account", "login", "confirm",
	"suspended", "blocked", "urgent", "action", "required",
}

// bankDomain ties a bank's host token to the only domains it really uses
type bankDomain struct {
	token   string
	display string
	domains []string
}

var legitimateBankDomains = []bankDomain{
	{token: "sbi", display: "SBI", domains: []string{"sbi.co.in", "onlinesbi.sbi", "sbi.bank.in"}},
	{token: "hdfc", display: "HDFC Bank", domains: []string{"hdfcbank.com"}},
	{token: "icici", display: "ICICI Bank", domains: []string{"icicibank.com"}},
	{token: "axis", display: "Axis Bank", domains: []string{"axisbank.com"}},
	{token: "kotak", display: "Kotak Bank", domains: []string{"kotak.com"}},
	{token: "pnb", display: "PNB", domains: []string{"pnbindia.in"}},
	{token: "bankofbaroda", display: "Bank of Baroda", domains: []string{"bankofbaroda.in"}},
	{token: "canara", display: "Canara Bank", domains: []string{"canarabank.com"}},
}

// LinkSafetyResult is the verdict for one URL
type LinkSafetyResult struct {
	URL     string          `json:"url"`
	Host    string          `json:"host,omitempty"`
	Risk    models.LinkRisk `json:"risk"`
	Reason  string          `json:"reason"`
	Message string          `json:"message"`
	Bank    string          `json:"bank,omitempty"`
}

// IsRisky reports whether the link should produce a user-facing warning
func (r LinkSafetyResult) IsRisky() bool {
	return r.Risk >= models.LinkRiskMedium
}

// IsCritical reports whether the link alone is enough to block the message
func (r LinkSafetyResult) IsCritical() bool {
	return r.Risk == models.LinkRiskCritical
}

// ReasonText is the line added to a RiskState for this link
func (r LinkSafetyResult) ReasonText() string {
	host := r.Host
	if host == "" {
		host = r.URL
	}
	return fmt.Sprintf("%s risk link (%s): %s", r.Risk, host, r.Reason)
}

// LinkSafetyAnalyzer grades URLs on host heuristics only. It never resolves
// or fetches anything.
type LinkSafetyAnalyzer struct{}

// NewLinkSafetyAnalyzer creates a link safety analyzer
func NewLinkSafetyAnalyzer() *LinkSafetyAnalyzer {
	return &LinkSafetyAnalyzer{}
}

// Analyze grades a single URL. Rules are checked in a fixed order (shortener,
// suspicious TLD, fake bank host, phishing words) and the first hit wins.
func (a *LinkSafetyAnalyzer) Analyze(rawURL string) LinkSafetyResult {
	res := LinkSafetyResult{URL: rawURL}

	host, err := hostOf(rawURL)
	if err != nil || host == "" {
		res.Risk = models.LinkRiskMedium
		res.Reason = "cannot verify this link"
		res.Message = "Cannot verify this link. Be cautious."
		return res
	}
	res.Host = host

	if isShortener(host) {
		res.Risk = models.LinkRiskHigh
		res.Reason = "URL shortener hides the real destination"
		res.Message = "This link may steal your information. Do not open."
		return res
	}

	for _, tld := range suspiciousTLDs {
		if strings.HasSuffix(host, tld) {
			res.Risk = models.LinkRiskHigh
			res.Reason = fmt.Sprintf("suspicious domain ending %s", tld)
			res.Message = "This link may steal your information. Do not open."
			return res
		}
	}

	if bank, ok := impersonatedBank(host); ok {
		res.Risk = models.LinkRiskCritical
		res.Bank = bank
		res.Reason = fmt.Sprintf("fake %s domain", bank)
		res.Message = fmt.Sprintf("FAKE BANK LINK! This is NOT the real %s. Do not open!", bank)
		return res
	}

	for _, w := range phishingHostWords {
		if strings.Contains(host, w) {
			res.Risk = models.LinkRiskMedium
			res.Reason = fmt.Sprintf("domain contains %q", w)
			res.Message = "This link looks suspicious. Verify before opening."
			return res
		}
	}

	res.Risk = models.LinkRiskLow
	res.Reason = "no known risk indicators"
	return res
}

// AnalyzeAll grades every link and returns the results in input order
func (a *LinkSafetyAnalyzer) AnalyzeAll(links []string) []LinkSafetyResult {
	results := make([]LinkSafetyResult, 0, len(links))
	for _, l := range links {
		results = append(results, a.Analyze(l))
	}
	return results
}

func hostOf(rawURL string) (string, error) {
	s := strings.TrimSpace(rawURL)
	if !strings.Contains(s, "://") {
		s = "http://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", err
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www."), nil
}

func isShortener(host string) bool {
	for _, s := range shorteners {
		if host == s || strings.HasSuffix(host, "."+s) {
			return true
		}
	}
	return false
}

func impersonatedBank(host string) (string, bool) {
	for _, b := range legitimateBankDomains {
		if !strings.Contains(host, b.token) {
			continue
		}
		if !onDomain(host, b.domains) {
			return b.display, true
		}
	}
	return "", false
}

func onDomain(host string, domains []string) bool {
	for _, d := range domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}
