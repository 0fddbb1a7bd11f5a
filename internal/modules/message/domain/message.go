package domain

// ParseModeMarkdown is the Telegram rich-text mode all rendered
// messages declare. The renderer escapes user content for this mode.
const ParseModeMarkdown = "Markdown"

// Payload is a rendered notification ready for delivery. The same
// payload is shared by every receiver of a destination.
type Payload struct {
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}
