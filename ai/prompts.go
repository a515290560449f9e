package ai

import (
	"fmt"
	"sort"
	"strings"

	"crewsight/domain/metrics"
	"crewsight/models"
)

// Prompt construction is pure and deterministic: no network, no side
// effects, snapshot-testable for fixed inputs.

// SystemGuardrails renders the role definition and the content guardrails
// every completion must obey, including the code translation table.
func SystemGuardrails() string {
	var b strings.Builder

	b.WriteString("You are a maritime crew performance analyst for a fleet operator.\n")
	b.WriteString("You answer questions about individual seafarers and fleet-wide performance using only the data provided to you.\n\n")

	b.WriteString("HARD RULES:\n")
	b.WriteString("1. Metric codes are internal identifiers. NEVER show a raw metric code to the user. Always translate codes to their human names using the table below.\n")
	b.WriteString("2. Only the metrics listed in the table exist. Never invent a metric.\n")
	b.WriteString("3. The summary must be at most 150 characters. Provide at most 5 key findings and at most 3 recommended actions. Detailed analysis, when present, must stay under 500 words.\n")
	b.WriteString("4. If a value is missing from the provided data, state that the data is not available. Do not speculate or fabricate specifics.\n\n")

	b.WriteString("METRIC CODE TRANSLATION TABLE:\n")
	for _, code := range metrics.AllCodes() {
		info, _ := metrics.Lookup(code)
		fmt.Fprintf(&b, "  %s = %s [%s]\n", code, info.HumanName, info.Category)
	}

	return b.String()
}

// dataSourceNames lists the capability names the understanding stage may
// request in required_sources.
var dataSourceNames = []string{
	"crew_profile",
	"metric_snapshot",
	"history_events",
	"benchmarks",
	"summaries",
	"conversation_log",
}

// BuildUnderstandingPrompt renders the single-call intent/entity
// extraction instructions for a raw question.
func BuildUnderstandingPrompt(question string) string {
	var b strings.Builder

	b.WriteString("Classify the question below and extract its entities. Respond with a single JSON object and nothing else.\n\n")

	b.WriteString("Allowed intents (choose exactly one):\n")
	for _, intent := range models.AllIntents {
		fmt.Fprintf(&b, "  - %s\n", intent)
	}

	b.WriteString("\nAvailable data sources (list the ones needed in required_sources):\n")
	for _, name := range dataSourceNames {
		fmt.Fprintf(&b, "  - %s\n", name)
	}

	b.WriteString(`
JSON shape:
{
  "intent": "<one allowed intent>",
  "confidence": <0.0 to 1.0>,
  "entities": {
    "subjects": ["<crew names, employee codes or ids mentioned, in order>"],
    "metric_codes": ["<internal metric codes implied by the question>"],
    "ranks": [], "departments": [], "vessels": [],
    "time_range": {"start": "", "end": "", "description": ""}
  },
  "required_sources": ["<data source names>"],
  "clarification_needed": <bool>,
  "clarification_questions": []
}

Set clarification_needed to false for ANY question that matches a known intent or
entity pattern: a status question, a question about a specific metric category, or
a question naming a subject. Reserve clarification_needed=true strictly for
genuinely ambiguous questions with no extractable subject and no metric.
`)

	b.WriteString("\nQUESTION:\n")
	b.WriteString(question)
	return b.String()
}

// structuredResponseShape is the JSON contract every structured answer
// must follow.
const structuredResponseShape = `
Respond with a single JSON object and nothing else:
{
  "summary": "<at most 150 characters, no metric codes>",
  "key_findings": [
    {"finding": "<human text, no codes>", "supporting_codes": ["<metric codes>"], "severity": "positive|neutral|concern|critical"}
  ],
  "risk_indicators": [
    {"risk_type": "<short label>", "severity": "LOW|MEDIUM|HIGH|CRITICAL", "description": "<human text, no codes>", "affected_codes": ["<metric codes>"]}
  ],
  "recommended_actions": ["<at most 3 human-text actions, no codes>"],
  "traceability": [
    {"code": "<metric code>", "human_name": "", "category": "", "score": null, "interpretation": ""}
  ],
  "detailed_analysis": "<optional, under 500 words>"
}
`

// FormatSubjectBlock renders a resolved subject's snapshot as labeled fields
func FormatSubjectBlock(subject *models.SubjectContext) string {
	if !subject.Resolved() {
		return "SUBJECT: not resolved. State that subject data is not available; do not fabricate specifics.\n"
	}

	var b strings.Builder
	crew := subject.Crew
	fmt.Fprintf(&b, "SUBJECT PROFILE:\n")
	fmt.Fprintf(&b, "  Name: %s\n", crew.FullName)
	fmt.Fprintf(&b, "  Employee code: %s\n", crew.EmployeeCode)
	fmt.Fprintf(&b, "  Rank: %s\n", crew.Rank)
	fmt.Fprintf(&b, "  Department: %s\n", crew.Department)
	fmt.Fprintf(&b, "  Vessel: %s\n", crew.Vessel)
	fmt.Fprintf(&b, "  Status: %s\n", crew.Status)
	fmt.Fprintf(&b, "  Hired: %s\n", crew.HiredAt.Format("2006-01-02"))

	if len(subject.Snapshot) > 0 {
		b.WriteString("\nMETRIC SNAPSHOT:\n")
		for _, reading := range subject.Snapshot {
			score := "n/a"
			if reading.Score != nil {
				score = fmt.Sprintf("%.1f", *reading.Score)
			}
			fmt.Fprintf(&b, "  %s (%s, %s): %s", reading.Code, reading.Description, reading.Category, score)
			if reading.Percentile != nil {
				fmt.Fprintf(&b, " (fleet percentile %.0f)", *reading.Percentile)
			}
			if len(reading.Detail) > 0 {
				b.WriteString(" [")
				first := true
				for _, key := range sortedKeys(reading.Detail) {
					if !first {
						b.WriteString(", ")
					}
					fmt.Fprintf(&b, "%s=%.1f", key, reading.Detail[key])
					first = false
				}
				b.WriteString("]")
			}
			b.WriteString("\n")
		}
	}

	if len(subject.Benchmarks) > 0 {
		b.WriteString("\nFLEET BENCHMARKS:\n")
		for _, bench := range subject.Benchmarks {
			fmt.Fprintf(&b, "  %s: fleet mean %.1f, median %.1f, stddev %.1f (n=%d)\n",
				bench.MetricCode, bench.Mean, bench.Median, bench.StdDev, bench.SampleSize)
		}
	}

	if len(subject.History) > 0 {
		b.WriteString("\nRECENT HISTORY:\n")
		for _, event := range subject.History {
			fmt.Fprintf(&b, "  %s [%s]: %s\n", event.OccurredAt.Format("2006-01-02"), event.EventType, event.Description)
		}
	}

	if len(subject.Certifications) > 0 {
		b.WriteString("\nCERTIFICATIONS:\n")
		for _, cert := range subject.Certifications {
			expiry := "no expiry"
			if cert.ExpiresAt != nil {
				expiry = "expires " + cert.ExpiresAt.Format("2006-01-02")
			}
			fmt.Fprintf(&b, "  %s (%s)\n", cert.Name, expiry)
		}
	}

	return b.String()
}

// FormatFleetBlock renders the ranked multi-subject set
func FormatFleetBlock(candidates []models.RiskCandidate) string {
	if len(candidates) == 0 {
		return "FLEET RISK SET: empty. State that no at-risk crew data is available.\n"
	}

	var b strings.Builder
	b.WriteString("FLEET RISK SET (ranked, highest risk first):\n")
	for i, c := range candidates {
		fmt.Fprintf(&b, "  %d. %s (%s, %s) - severity %s", i+1, c.FullName, c.Rank, c.Vessel, c.Severity)
		if c.Source == "heuristic" {
			fmt.Fprintf(&b, ", %d low metrics", c.RiskScore)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// FormatConversationTail renders the capped conversation history
func FormatConversationTail(turns []models.ConversationTurn) string {
	if len(turns) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("CONVERSATION SO FAR:\n")
	for _, turn := range turns {
		fmt.Fprintf(&b, "  %s: %s\n", turn.Role, turn.Text)
	}
	return b.String()
}

// BuildChatPrompt assembles the task body for a chat query
func BuildChatPrompt(question string, history []models.ConversationTurn, assembled *models.AssembledContext) string {
	var b strings.Builder

	if tail := FormatConversationTail(history); tail != "" {
		b.WriteString(tail)
		b.WriteString("\n")
	}

	switch assembled.Branch {
	case models.BranchMultiSubject:
		b.WriteString(FormatFleetBlock(assembled.Fleet))
	case models.BranchSingleSubject:
		b.WriteString(FormatSubjectBlock(assembled.Subject))
	default:
		b.WriteString("No subject context applies to this question. Answer from general knowledge of the fleet operation, and state clearly when data is not available.\n")
	}

	b.WriteString("\nQUESTION:\n")
	b.WriteString(question)
	b.WriteString("\n")
	b.WriteString(structuredResponseShape)
	return b.String()
}

// BuildSummaryPrompt assembles the task body for summary generation
func BuildSummaryPrompt(subject *models.SubjectContext) string {
	var b strings.Builder
	b.WriteString(FormatSubjectBlock(subject))
	b.WriteString("\nTASK: Write a performance summary for this crew member covering strengths, weaknesses, risks, and recommended actions.\n")
	b.WriteString(structuredResponseShape)
	return b.String()
}

// BuildRiskPrompt assembles the task body for risk analysis
func BuildRiskPrompt(subject *models.SubjectContext) string {
	var b strings.Builder
	b.WriteString(FormatSubjectBlock(subject))
	b.WriteString("\nTASK: Identify every performance, safety, certification, or conduct risk this crew member presents. Be specific about which metrics drive each risk.\n")
	b.WriteString(structuredResponseShape)
	return b.String()
}

// BuildComparisonPrompt assembles the task body for a two-subject comparison
func BuildComparisonPrompt(a, b *models.SubjectContext, aspects []string) string {
	var sb strings.Builder
	sb.WriteString("SUBJECT A\n")
	sb.WriteString(FormatSubjectBlock(a))
	sb.WriteString("\nSUBJECT B\n")
	sb.WriteString(FormatSubjectBlock(b))

	sb.WriteString("\nTASK: Compare subject A and subject B")
	if len(aspects) > 0 {
		sb.WriteString(" on these aspects: ")
		sb.WriteString(strings.Join(aspects, ", "))
	}
	sb.WriteString(".\n")
	sb.WriteString(`
Respond with a single JSON object and nothing else:
{
  "narrative": "<human comparison, no metric codes>",
  "aspect_breakdown": [
    {"aspect": "", "subject_a_assessment": "", "subject_b_assessment": "", "advantage": "a|b|even"}
  ],
  "overall_recommendation": ""
}
`)
	return sb.String()
}

// BuildReadinessPrompt assembles the task body for a promotion-readiness check
func BuildReadinessPrompt(subject *models.SubjectContext, targetRank string) string {
	var b strings.Builder
	b.WriteString(FormatSubjectBlock(subject))
	fmt.Fprintf(&b, "\nTASK: Assess whether this crew member is ready for promotion to %s.\n", targetRank)
	b.WriteString(`
Respond with a single JSON object and nothing else:
{
  "narrative": "<human assessment, no metric codes>",
  "readiness_level": "ready|nearly_ready|not_ready",
  "gaps": ["<specific gaps to close>"],
  "timeline": "<realistic timeline to readiness>"
}
`)
	return b.String()
}

// sortedKeys returns the map keys in stable order for deterministic rendering
func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
