package report

import (
	"context"
	"log/slog"
)

// NotificationType is the severity of a user facing message.
type NotificationType string

const (
	NotificationSuccess NotificationType = "success"
	NotificationError   NotificationType = "error"
)

// Notification is a user facing message. The JSON form doubles as the REST response body.
type Notification struct {
	Type    NotificationType `json:"type"`
	Message string           `json:"message"`
}

// Notifier delivers notifications to the user. Implementations must be safe for concurrent use.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// NotifierFunc adapts a function to [Notifier].
type NotifierFunc func(ctx context.Context, n Notification)

func (f NotifierFunc) Notify(ctx context.Context, n Notification) {
	f(ctx, n)
}

// LogNotifier writes notifications to a logger. It serves headless callers such as the CLI.
type LogNotifier struct {
	Logger *slog.Logger
}

func (l LogNotifier) Notify(ctx context.Context, n Notification) {
	level := slog.LevelInfo
	if n.Type == NotificationError {
		level = slog.LevelWarn
	}
	l.Logger.LogAttrs(ctx, level, "notification",
		slog.String("type", string(n.Type)), slog.String("message", n.Message))
}

func errorNotification(msg string) Notification {
	return Notification{Type: NotificationError, Message: msg}
}

func successNotification(msg string) Notification {
	return Notification{Type: NotificationSuccess, Message: msg}
}
