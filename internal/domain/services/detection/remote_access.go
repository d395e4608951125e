package detection

var remoteAccessKeywords = []string{
	// english and app names
	"anydesk", "teamviewer", "quicksupport", "remotely", "screen share",
	"screen sharing", "remote access", "remote control", "remote desktop",
	"share screen", "chrome remote", "ammyy", "supremo", "ultraviewer",
	"rustdesk", "zoho assist", "logmein", "gotomypc",
	// hindi
	"screen share karo", "screen dikhao", "apna screen share", "screen dikhaiye",
	"anydesk download", "teamviewer install", "स्क्रीन शेयर",
	// gujarati
	"screen batavo", "screen dekhavo",
}

var remoteInstructionPhrases = []string{
	"download and install", "install this app", "give me access",
	"allow remote", "share your screen", "show me your screen",
	"download karo", "install karo", "access do",
}

// RemoteAccessResult describes a screen-sharing or remote-control lure
type RemoteAccessResult struct {
	Detected       bool     `json:"detected"`
	Critical       bool     `json:"critical"`
	Keywords       []string `json:"keywords,omitempty"`
	HasInstruction bool     `json:"has_instruction"`
	Warning        string   `json:"warning,omitempty"`
}

// RemoteAccessDetector flags requests to install remote-control apps or share
// the screen. Any keyword hit is critical.
type RemoteAccessDetector struct{}

// NewRemoteAccessDetector creates a remote access detector
func NewRemoteAccessDetector() *RemoteAccessDetector {
	return &RemoteAccessDetector{}
}

// Detect inspects body for remote access lures
func (d *RemoteAccessDetector) Detect(body string) RemoteAccessResult {
	text := Normalize(body)
	found := containsAny(text, remoteAccessKeywords)
	if len(found) == 0 {
		return RemoteAccessResult{}
	}

	res := RemoteAccessResult{
		Detected:       true,
		Critical:       true,
		Keywords:       found,
		HasInstruction: len(containsAny(text, remoteInstructionPhrases)) > 0,
	}
	if res.HasInstruction {
		res.Warning = "Remote access scam! Someone is asking you to install a screen sharing app. Never do this."
	} else {
		res.Warning = "Remote access app mentioned. Never share your screen with unknown callers."
	}
	return res
}
