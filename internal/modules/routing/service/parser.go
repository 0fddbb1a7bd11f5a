package service

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/reshetovitsme/sentry-telegram-notify/internal/shared/errors"
	"github.com/samber/oops"
)

// ParseChannelsConfig decodes the raw channels-config JSON document into
// the list of raw channel entries and the effective API origin.
//
// Malformed configuration never propagates as an error: every failure
// mode logs its reason and degrades to "no channels configured" with
// the fallback origin.
func ParseChannelsConfig(raw, fallbackOrigin, projectSlug string) ([]any, string) {
	log := slog.Default()

	if raw == "" {
		log.Info("Channels configuration is empty", "project", projectSlug)
		return nil, fallbackOrigin
	}

	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		log.Error("Invalid JSON in channels configuration", "project", projectSlug, "error", err)
		return nil, fallbackOrigin
	}

	config, ok := doc.(map[string]any)
	if !ok {
		log.Error("Channels configuration must be a mapping", "project", projectSlug)
		return nil, fallbackOrigin
	}

	channels, ok := config["channels"].([]any)
	if !ok {
		log.Error("Channels configuration must contain a 'channels' key with a list of channel objects", "project", projectSlug)
		return nil, fallbackOrigin
	}

	origin := fallbackOrigin
	if rawOrigin, present := config["api_origin"]; present {
		s, ok := rawOrigin.(string)
		if !ok {
			log.Error("The 'api_origin' in channels configuration must be a string", "project", projectSlug)
			return nil, fallbackOrigin
		}
		origin = s
	}

	return channels, origin
}

// ValidateAPIOrigin checks an operator-supplied Telegram API origin.
func ValidateAPIOrigin(origin string) error {
	if !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
		return errors.ErrInvalidAPIOrigin
	}
	return nil
}

// ValidateChannelsConfigJSON checks that an operator-supplied channels
// config document is well-formed JSON. An empty document is accepted.
func ValidateChannelsConfigJSON(raw string) error {
	if raw == "" {
		return nil
	}
	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return oops.With("context", "channels config validation").Wrapf(errors.ErrInvalidChannelsConfig, "%v", err)
	}
	return nil
}
