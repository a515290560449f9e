package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripCodesReplacesKnownToken(t *testing.T) {
	in := "Scores on CO0001 dropped sharply this quarter."
	out := StripCodes(in)

	assert.Equal(t, "Scores on Communication Effectiveness dropped sharply this quarter.", out)
	assert.False(t, ContainsCode(out), "stripped text must contain no raw code token")
}

func TestStripCodesIsIdempotent(t *testing.T) {
	in := "CO0001 and SF0002 both flagged; see Communication Effectiveness (CO0001) for detail."
	once := StripCodes(in)
	twice := StripCodes(once)

	assert.Equal(t, once, twice)
	assert.False(t, ContainsCode(twice))
}

func TestStripCodesRemovesParenthesizedAnnotations(t *testing.T) {
	in := "Communication Effectiveness (CO0001) remains below benchmark."
	out := StripCodes(in)

	assert.Equal(t, "Communication Effectiveness remains below benchmark.", out)
}

func TestStripCodesUnknownToken(t *testing.T) {
	out := StripCodes("metric ZZ9999 is not registered")

	assert.Equal(t, "metric an untracked metric is not registered", out)
	assert.False(t, ContainsCode(out))
}

func TestAnnotateCodes(t *testing.T) {
	out := AnnotateCodes("review CO0001 before sign-off")

	assert.Equal(t, "review Communication Effectiveness (CO0001) before sign-off", out)
}

func TestFindCodesDeduplicatesInOrder(t *testing.T) {
	codes := FindCodes("SF0001, CO0001, SF0001 again, then LD0401")

	assert.Equal(t, []string{"SF0001", "CO0001", "LD0401"}, codes)
}

func TestLookup(t *testing.T) {
	info, ok := Lookup("CO0001")
	assert.True(t, ok)
	assert.Equal(t, "Communication Effectiveness", info.HumanName)
	assert.Equal(t, "communication", info.Category)

	_, ok = Lookup("XX0000")
	assert.False(t, ok)
}

func TestCodePatternRequiresExactShape(t *testing.T) {
	// Lowercase and short digit runs are not code tokens
	assert.Empty(t, FindCodes("co0001 SF001 A10001"))
}
