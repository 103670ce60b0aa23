// Package notify delivers posts to a chat channel.
package notify

import (
	"context"
	"fmt"
)

// Notifier sends and edits channel messages. Message ids are opaque strings
// assigned by the chat service.
type Notifier interface {
	SendText(ctx context.Context, text string) (string, error)
	EditText(ctx context.Context, messageID, text string) error
	SendImage(ctx context.Context, url string) (string, error)
	EditImage(ctx context.Context, messageID, url string) error
}

// Deleter removes channel messages. Only maintenance commands use it.
type Deleter interface {
	Delete(ctx context.Context, messageID string) error
}

// SendError reports a failed send. Method is the chat API call that failed.
type SendError struct {
	Method string
	Err    error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("%s: %v", e.Method, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

// EditError reports a failed edit of an existing message.
type EditError struct {
	Method    string
	MessageID string
	Err       error
}

func (e *EditError) Error() string {
	return fmt.Sprintf("%s message %s: %v", e.Method, e.MessageID, e.Err)
}

func (e *EditError) Unwrap() error { return e.Err }

// DeleteError reports a failed message deletion.
type DeleteError struct {
	MessageID string
	Err       error
}

func (e *DeleteError) Error() string {
	return fmt.Sprintf("delete message %s: %v", e.MessageID, e.Err)
}

func (e *DeleteError) Unwrap() error { return e.Err }
