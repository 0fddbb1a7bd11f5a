package http

import (
	"encoding/json"
	"time"

	eventDomain "github.com/reshetovitsme/sentry-telegram-notify/internal/modules/event/domain"
	"github.com/samber/oops"
)

// decodeWebhook maps a Sentry webhook payload onto the group and event
// read models. Fields are read defensively: Sentry payload shapes vary
// between versions, and a missing field is just an empty value.
func decodeWebhook(body []byte) (*eventDomain.Group, *eventDomain.Event, error) {
	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, nil, oops.With("context", "decoding webhook body").Wrap(err)
	}

	projectSlug := stringValue(doc["project"])
	if projectSlug == "" {
		projectSlug = stringValue(doc["project_slug"])
	}

	group := &eventDomain.Group{
		ProjectName: stringValue(doc["project_name"]),
		ProjectSlug: projectSlug,
		ShortID:     stringValue(doc["short_id"]),
		TimesSeen:   intValue(doc["times_seen"]),
		URL:         stringValue(doc["url"]),
	}

	eventRaw, _ := doc["event"].(map[string]any)

	message := stringValue(doc["message"])
	if message == "" {
		message = stringValue(eventRaw["message"])
	}

	event := &eventDomain.Event{
		Title:       stringValue(eventRaw["title"]),
		Message:     message,
		Level:       stringValue(eventRaw["level"]),
		Platform:    stringValue(eventRaw["platform"]),
		Datetime:    timeValue(eventRaw["datetime"]),
		ProjectSlug: projectSlug,
		Tags:        tagPairs(eventRaw["tags"]),
		Raw:         eventRaw,
	}

	return group, event, nil
}

// tagPairs reads Sentry's [[key, value], ...] tag encoding, keeping
// order and duplicate keys.
func tagPairs(raw any) []eventDomain.Tag {
	pairs, ok := raw.([]any)
	if !ok {
		return nil
	}
	var tags []eventDomain.Tag
	for _, item := range pairs {
		pair, ok := item.([]any)
		if !ok || len(pair) != 2 {
			continue
		}
		tags = append(tags, eventDomain.Tag{
			Key:   stringValue(pair[0]),
			Value: stringValue(pair[1]),
		})
	}
	return tags
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}

func intValue(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	default:
		return 0
	}
}

func timeValue(v any) time.Time {
	s, _ := v.(string)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.999999"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
