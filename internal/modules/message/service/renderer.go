package service

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	eventDomain "github.com/reshetovitsme/sentry-telegram-notify/internal/modules/event/domain"
	messageDomain "github.com/reshetovitsme/sentry-telegram-notify/internal/modules/message/domain"
)

const (
	// telegramMaxMessageLength is the hard transport limit on message text.
	telegramMaxMessageLength = 4096
	// eventTitleMaxLength caps the title before escaping.
	eventTitleMaxLength = 500

	truncateWarningText     = "... (truncated)"
	naPlaceholder           = "[NA]"
	missingFieldPlaceholder = "-"
)

// templateFieldRe matches {name} and {name[index]} substitution tokens.
var templateFieldRe = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)(\[([^\]]*)\])?\}`)

// Renderer fills message templates with event fields under the
// transport's length budget.
type Renderer struct {
	log *slog.Logger
}

// NewRenderer creates a message renderer.
func NewRenderer() *Renderer {
	return &Renderer{log: slog.Default()}
}

// BuildMessage renders the notification for one destination.
//
// Title and message body are Markdown-escaped before substitution so
// user-controlled content cannot inject formatting. Unknown tags render
// as "[NA]"; a template field with no value renders as "-" and is
// logged rather than failing the notification.
func (r *Renderer) BuildMessage(group *eventDomain.Group, event *eventDomain.Event, template string) messageDomain.Payload {
	tags := event.TagMap()

	level, ok := tags["level"]
	if !ok {
		level = naPlaceholder
	}

	params := map[string]string{
		"title":          escapeMarkdownV1(truncateChars(event.Title, eventTitleMaxLength)),
		"project_name":   group.ProjectName,
		"url":            group.URL,
		"short_id":       group.ShortID,
		"times_seen":     strconv.Itoa(group.TimesSeen),
		"platform":       orPlaceholder(event.Platform),
		"event_datetime": formatDatetime(event.Datetime),
		"event_level":    level,
	}

	text := r.compileMessageText(template, params, tags, escapeMarkdownV1(event.Message))

	return messageDomain.Payload{
		Text:      text,
		ParseMode: messageDomain.ParseModeMarkdown,
	}
}

// compileMessageText renders the template, truncating the event message
// body so the total stays within the transport limit.
//
// The budget is measured by rendering the template once with the
// truncation marker standing in for the body. When the body overflows
// the budget it is cut and the marker appended; the appended marker is
// deliberately not re-counted, so the final text may exceed the nominal
// limit by the marker's length.
func (r *Renderer) compileMessageText(template string, params, tags map[string]string, body string) string {
	sizing := r.renderTemplate(template, params, tags, truncateWarningText)

	budget := telegramMaxMessageLength - len([]rune(sizing))
	if budget < 0 {
		budget = 0
	}

	if runes := []rune(body); len(runes) > budget {
		body = string(runes[:budget]) + truncateWarningText
	}

	return r.renderTemplate(template, params, tags, body)
}

func (r *Renderer) renderTemplate(template string, params, tags map[string]string, body string) string {
	return templateFieldRe.ReplaceAllStringFunc(template, func(token string) string {
		m := templateFieldRe.FindStringSubmatch(token)
		name, index := m[1], m[3]

		if m[2] != "" {
			if name == "tag" {
				if value, ok := tags[index]; ok {
					return value
				}
				return naPlaceholder
			}
			r.log.Warn("Unknown indexed field in message template", "field", name)
			return missingFieldPlaceholder
		}

		if name == "message" {
			return body
		}
		if value, ok := params[name]; ok {
			return value
		}
		r.log.Warn("Missing field in message template, substituting placeholder", "field", name)
		return missingFieldPlaceholder
	})
}

// escapeMarkdownV1 backslash-escapes the Markdown v1 control characters
// (bold, italic, code, link start) so they render literally.
func escapeMarkdownV1(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch r {
		case '_', '*', '`', '[':
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// truncateChars shortens text to at most maxLen characters, ending with
// "..." when anything was cut.
func truncateChars(text string, maxLen int) string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	cut := maxLen - 3
	if cut < 0 {
		cut = 0
	}
	return string(runes[:cut]) + "..."
}

func orPlaceholder(value string) string {
	if value == "" {
		return naPlaceholder
	}
	return value
}

func formatDatetime(t time.Time) string {
	if t.IsZero() {
		return naPlaceholder
	}
	return t.UTC().Format(time.RFC3339)
}
