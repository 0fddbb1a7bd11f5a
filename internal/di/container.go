package di

import (
	"context"

	messageService "github.com/reshetovitsme/sentry-telegram-notify/internal/modules/message/service"
	notifyService "github.com/reshetovitsme/sentry-telegram-notify/internal/modules/notify/service"
	routingService "github.com/reshetovitsme/sentry-telegram-notify/internal/modules/routing/service"
	"github.com/reshetovitsme/sentry-telegram-notify/internal/shared/config"
	httpServer "github.com/reshetovitsme/sentry-telegram-notify/internal/transport/http"
	"github.com/reshetovitsme/sentry-telegram-notify/internal/transport/telegram"
	"github.com/samber/do/v2"
	"github.com/samber/oops"
)

// Setup initializes the dependency injection container
func Setup() (do.Injector, error) {
	injector := do.New()

	// Register Config
	do.Provide(injector, func(i do.Injector) (*config.Config, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, oops.With("context", "failed to load config").Wrap(err)
		}
		return cfg, nil
	})

	// Register Regex Cache (process-lifetime compiled-pattern cache)
	do.Provide(injector, func(i do.Injector) (*routingService.RegexCache, error) {
		return routingService.NewRegexCache(), nil
	})

	// Register Filter Evaluator
	do.Provide(injector, func(i do.Injector) (*routingService.Evaluator, error) {
		cache := do.MustInvoke[*routingService.RegexCache](i)
		return routingService.NewEvaluator(cache), nil
	})

	// Register Destination Selector
	do.Provide(injector, func(i do.Injector) (*routingService.Selector, error) {
		evaluator := do.MustInvoke[*routingService.Evaluator](i)
		return routingService.NewSelector(evaluator), nil
	})

	// Register Message Renderer
	do.Provide(injector, func(i do.Injector) (*messageService.Renderer, error) {
		return messageService.NewRenderer(), nil
	})

	// Register Telegram Client
	do.Provide(injector, func(i do.Injector) (*telegram.Client, error) {
		return telegram.NewClient(), nil
	})

	// Register Notify Service
	do.Provide(injector, func(i do.Injector) (*notifyService.Service, error) {
		cfg := do.MustInvoke[*config.Config](i)
		selector := do.MustInvoke[*routingService.Selector](i)
		renderer := do.MustInvoke[*messageService.Renderer](i)
		client := do.MustInvoke[*telegram.Client](i)
		return notifyService.New(cfg, selector, renderer, client), nil
	})

	// Register HTTP Server
	do.Provide(injector, func(i do.Injector) (*httpServer.Server, error) {
		cfg := do.MustInvoke[*config.Config](i)
		notify := do.MustInvoke[*notifyService.Service](i)
		return httpServer.New(cfg, notify), nil
	})

	return injector, nil
}

// Shutdown gracefully shuts down all services
func Shutdown(injector do.Injector) error {
	ctx := context.Background()

	// Release telegram bot instances if the client was ever created
	if client, err := do.Invoke[*telegram.Client](injector); err == nil && client != nil {
		client.Close(ctx)
	}

	return nil
}
