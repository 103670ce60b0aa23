package relay

import "fmt"

// FetchError reports that a source could not produce its candidates. The
// run aborts.
type FetchError struct {
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch source %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// LookupError reports a failed store read. The run aborts.
type LookupError struct {
	PostID string
	Err    error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("lookup post %s: %v", e.PostID, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }

// SendError reports a failed first send. The post is not persisted and the
// run aborts.
type SendError struct {
	PostID string
	Err    error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("send post %s: %v", e.PostID, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

// EditError reports a failed edit of an already relayed message. It is
// logged and counted, never returned from a run.
type EditError struct {
	PostID    string
	MessageID string
	Err       error
}

func (e *EditError) Error() string {
	return fmt.Sprintf("edit post %s message %s: %v", e.PostID, e.MessageID, e.Err)
}

func (e *EditError) Unwrap() error { return e.Err }

// WriteError reports a failed store write. The run aborts.
type WriteError struct {
	PostID string
	Err    error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write post %s: %v", e.PostID, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
