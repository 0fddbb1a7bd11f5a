package service

import (
	"context"
	"log/slog"
	"strings"

	eventDomain "github.com/reshetovitsme/sentry-telegram-notify/internal/modules/event/domain"
	messageDomain "github.com/reshetovitsme/sentry-telegram-notify/internal/modules/message/domain"
	messageService "github.com/reshetovitsme/sentry-telegram-notify/internal/modules/message/service"
	routingDomain "github.com/reshetovitsme/sentry-telegram-notify/internal/modules/routing/domain"
	routingService "github.com/reshetovitsme/sentry-telegram-notify/internal/modules/routing/service"
	"github.com/reshetovitsme/sentry-telegram-notify/internal/shared/config"
	"github.com/reshetovitsme/sentry-telegram-notify/internal/transport/telegram"
	"github.com/samber/lo"
)

// Sender delivers one rendered payload to one receiver target.
// Implementations must attempt delivery at most once.
type Sender interface {
	SendMessage(ctx context.Context, origin, token string, payload messageDomain.Payload, target routingDomain.ReceiverTarget) error
}

// Service routes events to the configured Telegram destinations.
type Service struct {
	cfg      *config.Config
	selector *routingService.Selector
	renderer *messageService.Renderer
	sender   Sender
	log      *slog.Logger
}

// New creates the notification service.
func New(cfg *config.Config, selector *routingService.Selector, renderer *messageService.Renderer, sender Sender) *Service {
	return &Service{
		cfg:      cfg,
		selector: selector,
		renderer: renderer,
		sender:   sender,
		log:      slog.Default(),
	}
}

// NotifyUsers is the single entry point per event: it parses the
// channels config, selects matching destinations and fans deliveries
// out per destination and per receiver. It never returns an error;
// every failure degrades to a logged skip of the affected item.
func (s *Service) NotifyUsers(ctx context.Context, group *eventDomain.Group, event *eventDomain.Event) {
	s.log.Debug("Received notification for event", "title", event.Title, "project", group.ProjectSlug)

	if err := s.cfg.ConfiguredError(); err != nil {
		s.log.Info("Telegram notifier is not configured, event not sent",
			"reason", err, "project", group.ProjectSlug)
		return
	}

	channels, apiOrigin := routingService.ParseChannelsConfig(s.cfg.ChannelsConfigJSON, s.cfg.APIOrigin, group.ProjectSlug)
	if len(channels) == 0 {
		s.log.Info("No Telegram channels configured for project, event not sent", "project", group.ProjectSlug)
		return
	}

	destinations := s.selector.Select(event, channels)
	if len(destinations) == 0 {
		s.log.Info("No matching channels or default channel found for event, event not sent", "project", group.ProjectSlug)
		return
	}

	for _, dest := range destinations {
		s.dispatch(ctx, group, event, dest, apiOrigin)
	}
}

// dispatch renders and delivers one destination's notification. The
// payload is rendered once and shared by all receivers; a failed send
// to one receiver never aborts the others.
func (s *Service) dispatch(ctx context.Context, group *eventDomain.Group, event *eventDomain.Event, dest routingDomain.Destination, globalOrigin string) {
	if dest.Token == "" || dest.Receivers == "" {
		s.log.Warn("Channel missing api_token or receivers, notification skipped for this channel", "project", group.ProjectSlug)
		return
	}

	template := dest.Template
	if template == "" {
		template = s.cfg.DefaultMessageTemplate
	}
	origin := dest.APIOrigin
	if origin == "" {
		origin = globalOrigin
	}

	receivers := routingDomain.ParseReceivers(dest.Receivers)
	if len(receivers) == 0 {
		s.log.Warn("No valid receivers parsed for channel, notification skipped for this channel",
			"receivers", dest.Receivers, "project", group.ProjectSlug)
		return
	}

	s.log.Debug("Sending to receivers",
		"receivers", strings.Join(lo.Map(receivers, func(r routingDomain.ReceiverTarget, _ int) string {
			return r.String()
		}), ", "),
		"channel", dest.Receivers)

	payload := s.renderer.BuildMessage(group, event, template)

	maskedURL := telegram.MaskURLToken(telegram.BuildURL(origin, dest.Token))
	s.log.Info("Built URL for sending", "channel", dest.Receivers, "url", maskedURL)

	for _, receiver := range receivers {
		if err := s.sender.SendMessage(ctx, origin, dest.Token, payload, receiver); err != nil {
			s.log.Error("Failed to send message",
				"chat_id", receiver.ChatID, "url", maskedURL, "error", err)
		}
	}
}
