package service

import (
	"log/slog"
	"regexp"
	"strings"

	eventDomain "github.com/reshetovitsme/sentry-telegram-notify/internal/modules/event/domain"
	routingDomain "github.com/reshetovitsme/sentry-telegram-notify/internal/modules/routing/domain"
	"github.com/samber/lo"
)

// maxFilterDepth bounds recursion over nested filter groups so a
// pathological config cannot exhaust the stack.
const maxFilterDepth = 32

// maxRawSearchDepth bounds recursion over the raw event payload.
const maxRawSearchDepth = 64

// Evaluator decides whether a decoded filter expression matches an event.
type Evaluator struct {
	cache *RegexCache
	log   *slog.Logger
}

// NewEvaluator creates an evaluator backed by the given pattern cache.
func NewEvaluator(cache *RegexCache) *Evaluator {
	return &Evaluator{cache: cache, log: slog.Default()}
}

// Matches evaluates one filter expression against one event.
//
// A plain list means AND over its well-formed predicates; an explicit
// group combines children with and_filters/or_filters; a bare predicate
// stands alone. Any other top-level shape is a format error and never
// matches.
func (e *Evaluator) Matches(event *eventDomain.Event, filters routingDomain.FilterExpr) bool {
	switch filters.Kind {
	case routingDomain.FilterGroup:
		return e.evaluateGroup(event, filters, 0)
	case routingDomain.FilterPredicate:
		return e.matchPredicate(event, filters.Pred)
	case routingDomain.FilterList:
		for _, pred := range filters.List {
			if !e.matchPredicate(event, pred) {
				return false
			}
		}
		return true
	default:
		e.log.Info("Incorrect filters format (neither group nor list of filters)", "kind", filters.Kind.String())
		return false
	}
}

// evaluateGroup applies the group's combinator. When a group carries
// both and_filters and or_filters, and_filters wins and or_filters is
// ignored; this mirrors accepted configs and must not be "fixed".
func (e *Evaluator) evaluateGroup(event *eventDomain.Event, group routingDomain.FilterExpr, depth int) bool {
	if depth > maxFilterDepth {
		e.log.Error("Filter group nesting too deep, treating as non-matching", "depth", depth)
		return false
	}

	// An empty arm does not select its combinator; it falls through to
	// the malformed-group case like a missing or non-list arm.
	if group.AndIsList && len(group.And) > 0 {
		for _, child := range group.And {
			matched, known := e.evaluateChild(event, child, depth+1)
			// An unknown child counts as a miss for AND.
			if !known || !matched {
				return false
			}
		}
		return true
	}

	if group.OrIsList && len(group.Or) > 0 {
		for _, child := range group.Or {
			matched, known := e.evaluateChild(event, child, depth+1)
			if known && matched {
				return true
			}
		}
		return false
	}

	e.log.Warn("Filter group has no and_filters/or_filters list", "group", group.Raw)
	return false
}

// evaluateChild evaluates one member of a group. The second return
// value is false when the child is neither a predicate nor a group;
// such children are unknown rather than matches or misses.
func (e *Evaluator) evaluateChild(event *eventDomain.Event, child routingDomain.FilterExpr, depth int) (bool, bool) {
	switch child.Kind {
	case routingDomain.FilterPredicate:
		return e.matchPredicate(event, child.Pred), true
	case routingDomain.FilterGroup:
		return e.evaluateGroup(event, child, depth), true
	default:
		e.log.Info("Incorrect filter inside group, skipping", "kind", child.Kind.String())
		return false, false
	}
}

func (e *Evaluator) matchPredicate(event *eventDomain.Event, pred routingDomain.Predicate) bool {
	switch {
	case pred.Type == "regex__message":
		return e.regexSearch(event.Message, pred.Value)
	case pred.Type == "regex__title":
		return e.regexSearch(event.Title, pred.Value)
	case strings.HasPrefix(pred.Type, "tag__"):
		tagName := strings.TrimPrefix(pred.Type, "tag__")
		tagValue, ok := event.TagMap()[tagName]
		if !ok {
			// A missing tag never matches.
			return false
		}
		return e.regexSearch(tagValue, pred.Value)
	case pred.Type == "level":
		return event.Level == pred.Value
	case pred.Type == "project_slug":
		return event.ProjectSlug != "" && event.ProjectSlug == pred.Value
	case pred.Type == "value__tag":
		return lo.Contains(lo.Values(event.TagMap()), pred.Value)
	case pred.Type == "event_raw_regex":
		re := e.cache.Get(pred.Value)
		if re == nil {
			return false
		}
		return searchRaw(event.RawData(), re, 0)
	default:
		e.log.Info("Unsupported filter type", "type", pred.Type)
		return false
	}
}

func (e *Evaluator) regexSearch(text, pattern string) bool {
	re := e.cache.Get(pattern)
	if re == nil {
		return false
	}
	return re.MatchString(text)
}

// searchRaw walks the raw event payload depth-first and reports whether
// the pattern matches any string value or any mapping key.
func searchRaw(data any, re *regexp.Regexp, depth int) bool {
	if depth > maxRawSearchDepth {
		return false
	}
	switch v := data.(type) {
	case map[string]any:
		for key, value := range v {
			if re.MatchString(key) {
				return true
			}
			if searchRaw(value, re, depth+1) {
				return true
			}
		}
	case []any:
		for _, item := range v {
			if searchRaw(item, re, depth+1) {
				return true
			}
		}
	case string:
		return re.MatchString(v)
	}
	return false
}
