package service

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeChannels(t *testing.T, raw string) []any {
	t.Helper()
	var channels []any
	require.NoError(t, json.Unmarshal([]byte(raw), &channels))
	return channels
}

func newTestSelector() *Selector {
	return NewSelector(newTestEvaluator())
}

func TestSelectMatchingChannel(t *testing.T) {
	s := newTestSelector()
	channels := decodeChannels(t, `[
		{"api_token":"A","receivers":"-1","filters":[{"type":"level","value":"warning"}]},
		{"api_token":"B","receivers":"-2","filters":[{"type":"level","value":"error"}]}
	]`)

	selected := s.Select(testEvent(), channels)
	require.Len(t, selected, 1)
	assert.Equal(t, "B", selected[0].Token)
}

func TestSelectFallsBackToDefault(t *testing.T) {
	s := newTestSelector()
	channels := decodeChannels(t, `[
		{"api_token":"D","receivers":"-1"},
		{"api_token":"F","receivers":"-2","filters":[{"type":"level","value":"warning"}]}
	]`)

	selected := s.Select(testEvent(), channels)
	require.Len(t, selected, 1)
	assert.Equal(t, "D", selected[0].Token)
}

func TestSelectDefaultIgnoredWhenFilteredChannelMatches(t *testing.T) {
	s := newTestSelector()
	channels := decodeChannels(t, `[
		{"api_token":"D","receivers":"-1"},
		{"api_token":"F","receivers":"-2","filters":[{"type":"level","value":"error"}]}
	]`)

	selected := s.Select(testEvent(), channels)
	require.Len(t, selected, 1)
	assert.Equal(t, "F", selected[0].Token)
}

func TestSelectFirstDefaultWins(t *testing.T) {
	s := newTestSelector()
	channels := decodeChannels(t, `[
		{"api_token":"D1","receivers":"-1"},
		{"api_token":"D2","receivers":"-2","filters":[]}
	]`)

	selected := s.Select(testEvent(), channels)
	require.Len(t, selected, 1)
	assert.Equal(t, "D1", selected[0].Token)
}

func TestSelectEmptyFilterVariantsAreDefaults(t *testing.T) {
	s := newTestSelector()
	for _, raw := range []string{
		`[{"api_token":"D","receivers":"-1"}]`,
		`[{"api_token":"D","receivers":"-1","filters":[]}]`,
		`[{"api_token":"D","receivers":"-1","filters":{"and_filters":[],"or_filters":[]}}]`,
	} {
		selected := s.Select(testEvent(), decodeChannels(t, raw))
		require.Len(t, selected, 1, "config: %s", raw)
		assert.Equal(t, "D", selected[0].Token)
	}
}

func TestSelectDeduplicatesByIdentity(t *testing.T) {
	s := newTestSelector()
	channels := decodeChannels(t, `[
		{"api_token":"T","receivers":"-1","template":"first","filters":[{"type":"level","value":"error"}]},
		{"api_token":"T","receivers":"-1","template":"second","filters":[{"type":"regex__title","value":"error"}]},
		{"api_token":"T","receivers":"-2","filters":[{"type":"level","value":"error"}]}
	]`)

	selected := s.Select(testEvent(), channels)
	require.Len(t, selected, 2)
	assert.Equal(t, "-1", selected[0].Receivers)
	assert.Equal(t, "-2", selected[1].Receivers)
}

func TestSelectNoChannels(t *testing.T) {
	s := newTestSelector()
	assert.Empty(t, s.Select(testEvent(), nil))
}

func TestSelectNothingMatchesNoDefault(t *testing.T) {
	s := newTestSelector()
	channels := decodeChannels(t, `[
		{"api_token":"A","receivers":"-1","filters":[{"type":"level","value":"warning"}]}
	]`)
	assert.Empty(t, s.Select(testEvent(), channels))
}

func TestSelectSkipsNonMappingEntries(t *testing.T) {
	s := newTestSelector()
	channels := decodeChannels(t, `[
		"junk",
		{"api_token":"B","receivers":"-2","filters":[{"type":"level","value":"error"}]}
	]`)

	selected := s.Select(testEvent(), channels)
	require.Len(t, selected, 1)
	assert.Equal(t, "B", selected[0].Token)
}

func TestSelectRoundTrip(t *testing.T) {
	s := newTestSelector()
	channels := decodeChannels(t, `[
		{"api_token":"D","receivers":"-1"},
		{"api_token":"F","receivers":"-2","filters":{"type":"level","value":"error"}}
	]`)

	selected := s.Select(testEvent(), channels)
	require.Len(t, selected, 1)
	assert.Equal(t, "F", selected[0].Token)

	info := testEvent()
	info.Level = "info"
	selected = s.Select(info, channels)
	require.Len(t, selected, 1)
	assert.Equal(t, "D", selected[0].Token)
}

func TestSelectScenarioFromConfigDocument(t *testing.T) {
	s := newTestSelector()
	channels, origin := ParseChannelsConfig(
		`{"channels":[{"api_token":"T","receivers":"-100/5;-200","filters":[{"type":"regex__title","value":"(?i)error"}]}]}`,
		fallbackOrigin, "api")
	require.Len(t, channels, 1)
	assert.Equal(t, fallbackOrigin, origin)

	selected := s.Select(testEvent(), channels)
	require.Len(t, selected, 1)
	assert.Equal(t, "T", selected[0].Token)
	assert.Equal(t, "-100/5;-200", selected[0].Receivers)
}
