package domain

import "time"

// Tag is one (key, value) pair attached to an event. Keys may repeat;
// when materialized as a map the last value for a key wins.
type Tag struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Event is the read-only event payload supplied by the collaborator.
type Event struct {
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	Level       string    `json:"level"`
	Platform    string    `json:"platform"`
	Datetime    time.Time `json:"datetime"`
	ProjectSlug string    `json:"project_slug"`
	Tags        []Tag     `json:"tags"`

	// Raw holds the full decoded event payload (nested maps, slices,
	// strings and scalars) for deep filtering.
	Raw any `json:"-"`
}

// TagMap materializes the tag pairs as a map, last-write-wins.
func (e *Event) TagMap() map[string]string {
	tags := make(map[string]string, len(e.Tags))
	for _, t := range e.Tags {
		tags[t.Key] = t.Value
	}
	return tags
}

// RawData returns the full raw event payload.
func (e *Event) RawData() any {
	return e.Raw
}

// Group is the issue-group context an event belongs to.
type Group struct {
	ProjectName string `json:"project_name"`
	ProjectSlug string `json:"project_slug"`
	ShortID     string `json:"short_id"`
	TimesSeen   int    `json:"times_seen"`
	URL         string `json:"url"`
}
