package service

import (
	"context"
	"errors"
	"testing"

	eventDomain "github.com/reshetovitsme/sentry-telegram-notify/internal/modules/event/domain"
	messageDomain "github.com/reshetovitsme/sentry-telegram-notify/internal/modules/message/domain"
	messageService "github.com/reshetovitsme/sentry-telegram-notify/internal/modules/message/service"
	routingDomain "github.com/reshetovitsme/sentry-telegram-notify/internal/modules/routing/domain"
	routingService "github.com/reshetovitsme/sentry-telegram-notify/internal/modules/routing/service"
	"github.com/reshetovitsme/sentry-telegram-notify/internal/shared/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMessage struct {
	Origin  string
	Token   string
	Payload messageDomain.Payload
	Target  routingDomain.ReceiverTarget
}

type fakeSender struct {
	sent    []sentMessage
	failFor map[string]error
}

func (f *fakeSender) SendMessage(_ context.Context, origin, token string, payload messageDomain.Payload, target routingDomain.ReceiverTarget) error {
	f.sent = append(f.sent, sentMessage{Origin: origin, Token: token, Payload: payload, Target: target})
	if err, ok := f.failFor[target.ChatID]; ok {
		return err
	}
	return nil
}

func newTestService(channelsJSON string) (*Service, *fakeSender) {
	cfg := &config.Config{
		APIOrigin:              "https://api.telegram.org",
		DefaultMessageTemplate: config.DefaultMessageTemplate,
		ChannelsConfigJSON:     channelsJSON,
	}
	sender := &fakeSender{failFor: map[string]error{}}
	selector := routingService.NewSelector(routingService.NewEvaluator(routingService.NewRegexCache()))
	svc := New(cfg, selector, messageService.NewRenderer(), sender)
	return svc, sender
}

func notifyEvent() (*eventDomain.Group, *eventDomain.Event) {
	group := &eventDomain.Group{
		ProjectName: "My Project",
		ProjectSlug: "my-project",
		ShortID:     "MY-PROJECT-1",
		TimesSeen:   1,
		URL:         "https://sentry.example.org/issues/1/",
	}
	event := &eventDomain.Event{
		Title:       "Error occurred",
		Message:     "boom",
		Level:       "error",
		ProjectSlug: "my-project",
		Tags:        []eventDomain.Tag{{Key: "level", Value: "error"}},
	}
	return group, event
}

func TestNotifyUsersSendsToAllReceivers(t *testing.T) {
	svc, sender := newTestService(
		`{"channels":[{"api_token":"T","receivers":"-100/5;-200","filters":[{"type":"regex__title","value":"(?i)error"}]}]}`)

	group, event := notifyEvent()
	svc.NotifyUsers(context.Background(), group, event)

	require.Len(t, sender.sent, 2)
	assert.Equal(t, routingDomain.ReceiverTarget{ChatID: "-100", ThreadID: "5"}, sender.sent[0].Target)
	assert.Equal(t, routingDomain.ReceiverTarget{ChatID: "-200"}, sender.sent[1].Target)

	// One rendered payload shared across receivers.
	assert.Equal(t, sender.sent[0].Payload, sender.sent[1].Payload)
	assert.Equal(t, "T", sender.sent[0].Token)
	assert.Equal(t, "https://api.telegram.org", sender.sent[0].Origin)
	assert.Contains(t, sender.sent[0].Payload.Text, "Error occurred")
}

func TestNotifyUsersFailureIsolationPerReceiver(t *testing.T) {
	svc, sender := newTestService(
		`{"channels":[{"api_token":"T","receivers":"-100;-200;-300","filters":[{"type":"level","value":"error"}]}]}`)
	sender.failFor["-100"] = errors.New("bad gateway")

	group, event := notifyEvent()
	svc.NotifyUsers(context.Background(), group, event)

	// All three receivers are attempted despite the first failing.
	require.Len(t, sender.sent, 3)
}

func TestNotifyUsersSkipsChannelMissingToken(t *testing.T) {
	svc, sender := newTestService(
		`{"channels":[
			{"receivers":"-100","filters":[{"type":"level","value":"error"}]},
			{"api_token":"B","receivers":"-200","filters":[{"type":"level","value":"error"}]}
		]}`)

	group, event := notifyEvent()
	svc.NotifyUsers(context.Background(), group, event)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "B", sender.sent[0].Token)
}

func TestNotifyUsersSkipsChannelWithNoValidReceivers(t *testing.T) {
	svc, sender := newTestService(
		`{"channels":[{"api_token":"T","receivers":" ; ; ","filters":[{"type":"level","value":"error"}]}]}`)

	group, event := notifyEvent()
	svc.NotifyUsers(context.Background(), group, event)

	assert.Empty(t, sender.sent)
}

func TestNotifyUsersNotConfigured(t *testing.T) {
	svc, sender := newTestService("")

	group, event := notifyEvent()
	svc.NotifyUsers(context.Background(), group, event)

	assert.Empty(t, sender.sent)
}

func TestNotifyUsersNoMatchingChannels(t *testing.T) {
	svc, sender := newTestService(
		`{"channels":[{"api_token":"T","receivers":"-100","filters":[{"type":"level","value":"fatal"}]}]}`)

	group, event := notifyEvent()
	svc.NotifyUsers(context.Background(), group, event)

	assert.Empty(t, sender.sent)
}

func TestNotifyUsersChannelOverrides(t *testing.T) {
	svc, sender := newTestService(
		`{"api_origin":"https://global.example.org","channels":[
			{"api_token":"A","receivers":"-1","template":"custom {title}","api_origin":"http://proxy.internal","filters":[{"type":"level","value":"error"}]},
			{"api_token":"B","receivers":"-2","filters":[{"type":"level","value":"error"}]}
		]}`)

	group, event := notifyEvent()
	svc.NotifyUsers(context.Background(), group, event)

	require.Len(t, sender.sent, 2)
	assert.Equal(t, "http://proxy.internal", sender.sent[0].Origin)
	assert.Equal(t, "custom Error occurred", sender.sent[0].Payload.Text)
	assert.Equal(t, "https://global.example.org", sender.sent[1].Origin)
	assert.Contains(t, sender.sent[1].Payload.Text, "*[Sentry]*")
}

func TestNotifyUsersDefaultFallbackChannel(t *testing.T) {
	svc, sender := newTestService(
		`{"channels":[
			{"api_token":"D","receivers":"-9"},
			{"api_token":"F","receivers":"-1","filters":[{"type":"level","value":"fatal"}]}
		]}`)

	group, event := notifyEvent()
	svc.NotifyUsers(context.Background(), group, event)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "D", sender.sent[0].Token)
}
