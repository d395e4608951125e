package detection

import "strings"

// Scam categories recorded on audit events and alerts
const (
	CategoryLottery      = "Lottery Scam"
	CategoryBankPhishing = "Bank Phishing"
	CategoryRemoteAccess = "Remote Access Scam"
	CategoryOTPFraud     = "OTP Fraud"
	CategoryAuthority    = "Authority Impersonation"
	CategoryGeneral      = "General Suspicion"
)

// ClassifyScamType picks a coarse category for reporting. The first matching
// rule wins.
func ClassifyScamType(body string, keywords []string) string {
	text := Normalize(body)
	has := func(k string) bool {
		for _, kw := range keywords {
			if kw == k {
				return true
			}
		}
		return strings.Contains(text, k)
	}

	switch {
	case has("winner") || has("lottery") || has("prize"):
		return CategoryLottery
	case has("anydesk") || has("teamviewer") || has("screen share"):
		return CategoryRemoteAccess
	case has("verify") && has("bank"):
		return CategoryBankPhishing
	case has("otp") || has("cvv") || has("pin"):
		return CategoryOTPFraud
	case has("arrest") || has("warrant"):
		return CategoryAuthority
	}
	return CategoryGeneral
}
