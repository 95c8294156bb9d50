package telegram

import (
	"context"
	"sort"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// HandlerFunc is a function that handles a Telegram update
type HandlerFunc func(ctx context.Context, update tgbotapi.Update) error

// Dispatcher routes bot commands to handlers. Updates that carry no
// command are dropped.
type Dispatcher interface {
	// RegisterHandler registers a handler for a command, case-insensitively
	RegisterHandler(command string, handler HandlerFunc)
	// RegisterFallback handles commands without a registered handler
	RegisterFallback(handler HandlerFunc)
	// Commands lists the registered command names in order
	Commands() []string
	Dispatch(ctx context.Context, update tgbotapi.Update) error
}

func NewDispatcher() Dispatcher {
	return &commandDispatcher{routes: make(map[string]HandlerFunc)}
}

type commandDispatcher struct {
	routes   map[string]HandlerFunc
	fallback HandlerFunc
}

func (d *commandDispatcher) RegisterHandler(command string, handler HandlerFunc) {
	d.routes[strings.ToLower(command)] = handler
}

func (d *commandDispatcher) RegisterFallback(handler HandlerFunc) {
	d.fallback = handler
}

func (d *commandDispatcher) Commands() []string {
	names := make([]string, 0, len(d.routes))
	for name := range d.routes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (d *commandDispatcher) Dispatch(ctx context.Context, update tgbotapi.Update) error {
	if update.Message == nil || !update.Message.IsCommand() {
		return nil
	}

	if route, ok := d.routes[strings.ToLower(update.Message.Command())]; ok {
		return route(ctx, update)
	}
	if d.fallback == nil {
		return nil
	}
	return d.fallback(ctx, update)
}
