package service

import (
	"log/slog"

	eventDomain "github.com/reshetovitsme/sentry-telegram-notify/internal/modules/event/domain"
	routingDomain "github.com/reshetovitsme/sentry-telegram-notify/internal/modules/routing/domain"
	"github.com/samber/lo"
)

// Selector picks the destinations an event should be delivered to.
type Selector struct {
	evaluator *Evaluator
	log       *slog.Logger
}

// NewSelector creates a selector using the given filter evaluator.
func NewSelector(evaluator *Evaluator) *Selector {
	return &Selector{evaluator: evaluator, log: slog.Default()}
}

// Select walks the configured channels in order and returns the unique
// destinations whose filters match the event.
//
// The first channel without filters becomes the default fallback; it is
// used as the sole result only when nothing else matched. Destinations
// are deduplicated by their (api_token, receivers) identity, first
// match winning the slot's position.
func (s *Selector) Select(event *eventDomain.Event, channels []any) []routingDomain.Destination {
	matched := make(map[string]routingDomain.Destination)
	var order []string
	var defaultDest *routingDomain.Destination

	for _, raw := range channels {
		dest, ok := routingDomain.DecodeDestination(raw)
		if !ok {
			s.log.Warn("Channel entry is not a mapping, skipping", "entry", raw)
			continue
		}

		if dest.Filters.IsEmpty() {
			if defaultDest == nil {
				d := dest
				defaultDest = &d
			}
			continue
		}

		if s.evaluator.Matches(event, dest.Filters) {
			if _, seen := matched[dest.Identity()]; !seen {
				order = append(order, dest.Identity())
			}
			matched[dest.Identity()] = dest
		}
	}

	if len(matched) == 0 && defaultDest != nil {
		return []routingDomain.Destination{*defaultDest}
	}

	return lo.Map(order, func(id string, _ int) routingDomain.Destination {
		return matched[id]
	})
}
