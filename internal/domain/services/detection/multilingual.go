package detection

import "math"

// Language identifies a keyword table
type Language string

const (
	LangHindi    Language = "hindi"
	LangGujarati Language = "gujarati"
	LangTamil    Language = "tamil"
	LangTelugu   Language = "telugu"
	LangBengali  Language = "bengali"
)

type languageTable struct {
	lang     Language
	keywords []string
}

// Tables mix native script and the romanized spellings seen in SMS.
var languageTables = []languageTable{
	{LangHindi, []string{"खाता", "ब्लॉक", "तुरंत", "ओटीपी", "पासवर्ड", "बैंक", "aapka", "khata", "turant", "jaldi", "zaruri"}},
	{LangGujarati, []string{"ખાતું", "તાત્કાલિક", "તમારું", "tamaru", "khatu", "jaruri", "turat"}},
	{LangTamil, []string{"கணக்கு", "உடனே", "உங்கள்", "ungal", "kanakku", "udane"}},
	{LangTelugu, []string{"ఖాతా", "వెంటనే", "మీ ఖాతా", "meeru", "khaata", "twaraga"}},
	{LangBengali, []string{"অ্যাকাউন্ট", "এখনই", "আপনার", "apnar", "ekhuni", "taratari"}},
}

func init() {
	for i := range languageTables {
		for j, kw := range languageTables[i].keywords {
			languageTables[i].keywords[j] = Normalize(kw)
		}
	}
}

var codeMixedPhrases = []string{
	"aapka account block", "your khata block", "otp share karo", "otp bhejo",
	"password do", "link click karo", "tamaru account block", "ungal kanakku block",
}

// MultilingualResult is the outcome of scanning for regional-language lures
type MultilingualResult struct {
	Languages     []Language `json:"languages,omitempty"`
	Keywords      []string   `json:"keywords,omitempty"`
	Phrases       []string   `json:"phrases,omitempty"`
	IsCodeMixed   bool       `json:"is_code_mixed"`
	RiskScore     float64    `json:"risk_score"`
	keywordWeight int
}

// Suspicious reports whether the score is high enough to mention to the user
func (r MultilingualResult) Suspicious() bool {
	return r.RiskScore > 0.5
}

// MultilingualDetector scans Indian-language and code-mixed scam vocabulary
type MultilingualDetector struct{}

// NewMultilingualDetector creates a multilingual detector
func NewMultilingualDetector() *MultilingualDetector {
	return &MultilingualDetector{}
}

// Detect returns matched languages, keywords and phrases with a score in
// [0,1]: (0.5*keywordHits + 1.0*phraseHits) / 5.
func (d *MultilingualDetector) Detect(body string) MultilingualResult {
	text := Normalize(body)
	var res MultilingualResult

	seen := make(map[string]struct{})
	for _, table := range languageTables {
		hits := containsAny(text, table.keywords)
		if len(hits) == 0 {
			continue
		}
		res.Languages = append(res.Languages, table.lang)
		res.keywordWeight += len(hits)
		for _, h := range hits {
			if _, dup := seen[h]; !dup {
				seen[h] = struct{}{}
				res.Keywords = append(res.Keywords, h)
			}
		}
	}
	res.Phrases = containsAny(text, codeMixedPhrases)

	res.IsCodeMixed = len(res.Languages) >= 2 || len(res.Phrases) > 0
	raw := (0.5*float64(res.keywordWeight) + 1.0*float64(len(res.Phrases))) / 5.0
	res.RiskScore = math.Min(1.0, raw)
	return res
}

// Matches returns every keyword and phrase hit, phrases first
func (r MultilingualResult) Matches() []string {
	out := make([]string, 0, len(r.Phrases)+len(r.Keywords))
	out = append(out, r.Phrases...)
	return append(out, r.Keywords...)
}
