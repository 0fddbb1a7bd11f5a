package domain

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// Destination is one configured routing target decoded from a channels
// config entry. Fields are read defensively: anything that is not a
// string stays empty.
type Destination struct {
	Token     string
	Receivers string
	Template  string
	APIOrigin string
	Filters   FilterExpr

	identity string
}

// DecodeDestination reads one raw channels-config entry. It returns
// false when the entry is not a mapping at all.
func DecodeDestination(raw any) (Destination, bool) {
	m, ok := raw.(map[string]any)
	if !ok {
		return Destination{}, false
	}
	return Destination{
		Token:     stringField(m, "api_token"),
		Receivers: stringField(m, "receivers"),
		Template:  stringField(m, "template"),
		APIOrigin: stringField(m, "api_origin"),
		Filters:   DecodeFilterExpr(m["filters"]),
		// Identity is built from the raw values so that missing or
		// non-string fields still form a usable dedup key.
		identity: fmt.Sprintf("%v|%v", m["api_token"], m["receivers"]),
	}, true
}

// Identity is the dedup key of the destination: the (api_token, receivers)
// pair treated as an opaque composite.
func (d Destination) Identity() string {
	return d.identity
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

// ReceiverTarget is one concrete chat (and optional thread) within a
// destination's receiver list.
type ReceiverTarget struct {
	ChatID   string
	ThreadID string
}

// String renders the target the way it appeared in the config.
func (r ReceiverTarget) String() string {
	if r.ThreadID == "" {
		return r.ChatID
	}
	return r.ChatID + "/" + r.ThreadID
}

// ParseReceivers splits a semicolon-delimited receivers string into
// targets. Each non-blank segment is split on the first "/" into chat
// and thread identifiers.
func ParseReceivers(receivers string) []ReceiverTarget {
	if receivers == "" {
		return nil
	}
	return lo.FilterMap(strings.Split(receivers, ";"), func(part string, _ int) (ReceiverTarget, bool) {
		part = strings.TrimSpace(part)
		if part == "" {
			return ReceiverTarget{}, false
		}
		chatID, threadID, _ := strings.Cut(part, "/")
		return ReceiverTarget{ChatID: chatID, ThreadID: threadID}, true
	})
}
