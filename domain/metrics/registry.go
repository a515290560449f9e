package metrics

import (
	"regexp"
	"sort"
)

// Info is the human-facing description of one metric code
type Info struct {
	HumanName string
	Category  string
}

// codePattern matches internal metric code tokens: two uppercase letters
// followed by exactly four digits.
var codePattern = regexp.MustCompile(`[A-Z]{2}[0-9]{4}`)

// parenCodePattern matches a parenthesized code, as produced by AnnotateCodes
var parenCodePattern = regexp.MustCompile(`\s*\([A-Z]{2}[0-9]{4}\)`)

// registry is the process-wide read-only code reference table.
// Initialized once at startup, never mutated.
var registry = map[string]Info{
	"SF0001": {HumanName: "Safety Compliance Rate", Category: "safety"},
	"SF0002": {HumanName: "Incident-Free Days", Category: "safety"},
	"SF0003": {HumanName: "PPE Adherence Score", Category: "safety"},
	"TK0101": {HumanName: "Technical Proficiency Score", Category: "technical"},
	"TK0102": {HumanName: "Maintenance Task Completion", Category: "technical"},
	"EN0201": {HumanName: "Engine Watch Performance", Category: "engineering"},
	"NV0301": {HumanName: "Navigation Watch Performance", Category: "navigation"},
	"NV0302": {HumanName: "Passage Planning Quality", Category: "navigation"},
	"CO0001": {HumanName: "Communication Effectiveness", Category: "communication"},
	"CO0002": {HumanName: "Bridge Team Communication", Category: "communication"},
	"LD0401": {HumanName: "Leadership Readiness", Category: "leadership"},
	"LD0402": {HumanName: "Crew Supervision Rating", Category: "leadership"},
	"AT0501": {HumanName: "Attendance Reliability", Category: "conduct"},
	"AT0502": {HumanName: "Disciplinary Record Score", Category: "conduct"},
	"MD0601": {HumanName: "Medical Fitness Status", Category: "medical"},
	"CE0701": {HumanName: "Certification Currency", Category: "certification"},
	"CE0702": {HumanName: "Training Completion Rate", Category: "certification"},
	"PF0801": {HumanName: "Overall Performance Index", Category: "performance"},
	"PF0802": {HumanName: "Appraisal Trend Score", Category: "performance"},
}

// unknownReplacement is substituted for code tokens missing from the registry
const unknownReplacement = "an untracked metric"

// Lookup resolves a code to its human description
func Lookup(code string) (Info, bool) {
	info, ok := registry[code]
	return info, ok
}

// HumanName returns the human translation of a code, or "" when unknown
func HumanName(code string) string {
	return registry[code].HumanName
}

// IsKnown reports whether the code resolves in the reference table
func IsKnown(code string) bool {
	_, ok := registry[code]
	return ok
}

// AllCodes returns every registered code in stable sorted order
func AllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// FindCodes returns every code token in text, deduplicated, in order of
// first appearance.
func FindCodes(text string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, code := range codePattern.FindAllString(text, -1) {
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}
	return out
}

// ContainsCode reports whether text contains any raw code token
func ContainsCode(text string) bool {
	return codePattern.MatchString(text)
}

// StripCodes rewrites text for user-facing fields: parenthesized code
// annotations are removed and every remaining raw token is replaced with
// its human translation. Stripping is idempotent.
func StripCodes(text string) string {
	text = parenCodePattern.ReplaceAllString(text, "")
	return codePattern.ReplaceAllStringFunc(text, func(code string) string {
		if info, ok := registry[code]; ok {
			return info.HumanName
		}
		return unknownReplacement
	})
}

// AnnotateCodes rewrites text for traceability output, replacing every raw
// token with "<human name> (<code>)".
func AnnotateCodes(text string) string {
	return codePattern.ReplaceAllStringFunc(text, func(code string) string {
		if info, ok := registry[code]; ok {
			return info.HumanName + " (" + code + ")"
		}
		return code
	})
}
