package telegram

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/set-night/tripmind/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCardData_RoundTrip(t *testing.T) {
	data := CardData(ActionRefine, domain.CardRef{Message: 3, Card: 1})
	assert.Equal(t, "card:refine:3:1", data)

	action, ref, ok := ParseCardData(data)
	require.True(t, ok)
	assert.Equal(t, ActionRefine, action)
	assert.Equal(t, domain.CardRef{Message: 3, Card: 1}, ref)
}

func TestParseCardData_Rejects(t *testing.T) {
	for _, data := range []string{
		"fu:1",
		"card:refine:1",
		"card:refine:x:1",
		"card:refine:1:-2",
		"card:refine:1:2:3",
		"refine:1:2",
	} {
		_, _, ok := ParseCardData(data)
		assert.False(t, ok, data)
	}
}

func TestParseIndex(t *testing.T) {
	n, ok := ParseIndex("fu:3", CallbackFollowUp)
	require.True(t, ok)
	assert.Equal(t, 3, n)

	_, ok = ParseIndex("fu:-1", CallbackFollowUp)
	assert.False(t, ok)
	_, ok = ParseIndex("tq:1", CallbackFollowUp)
	assert.False(t, ok)
	_, ok = ParseIndex("fu:", CallbackFollowUp)
	assert.False(t, ok)
}

func TestCardKeyboard(t *testing.T) {
	ref := domain.CardRef{Message: 1, Card: 0}

	kb := CardKeyboard(ref, domain.Itinerary{Name: "Goa"})
	require.Len(t, kb.InlineKeyboard, 1)
	require.Len(t, kb.InlineKeyboard[0], 3)
	assert.Equal(t, "card:details:1:0", kb.InlineKeyboard[0][2].CallbackData)

	kb = CardKeyboard(ref, domain.Flight{Carrier: "IndiGo"})
	require.Len(t, kb.InlineKeyboard, 1)
	assert.Len(t, kb.InlineKeyboard[0], 2)

	kb = CardKeyboard(ref, domain.Lodging{Name: "Sea View", Website: "https://sv.example", MapLink: "https://maps.example/sv"})
	require.Len(t, kb.InlineKeyboard, 2)
	require.Len(t, kb.InlineKeyboard[1], 2)
	assert.Equal(t, "https://sv.example", kb.InlineKeyboard[1][0].URL)
	assert.Equal(t, "https://maps.example/sv", kb.InlineKeyboard[1][1].URL)

	kb = CardKeyboard(ref, domain.Lodging{Name: "No links"})
	assert.Len(t, kb.InlineKeyboard, 1)
}

func TestQuestionKeyboard(t *testing.T) {
	long := strings.Repeat("é", 70)
	kb := QuestionKeyboard(CallbackFollowUp, []string{"Add hotels?", long})
	require.Len(t, kb.InlineKeyboard, 2)

	assert.Equal(t, "Add hotels?", kb.InlineKeyboard[0][0].Text)
	assert.Equal(t, "fu:0", kb.InlineKeyboard[0][0].CallbackData)

	label := kb.InlineKeyboard[1][0].Text
	assert.Equal(t, 60, utf8.RuneCountInString(label))
	assert.True(t, strings.HasSuffix(label, "…"))
	assert.Equal(t, "fu:1", kb.InlineKeyboard[1][0].CallbackData)
}

func TestPaginationRow(t *testing.T) {
	row := PaginationRow(0, 3, CallbackPage)
	require.Len(t, row, 2)
	assert.Equal(t, "1/3", row[0].Text)
	assert.Equal(t, "hp:1", row[1].CallbackData)

	row = PaginationRow(1, 3, CallbackPage)
	require.Len(t, row, 3)
	assert.Equal(t, "hp:0", row[0].CallbackData)
	assert.Equal(t, "hp:2", row[2].CallbackData)

	row = PaginationRow(2, 3, CallbackPage)
	require.Len(t, row, 2)
	assert.Equal(t, "3/3", row[1].Text)
}
