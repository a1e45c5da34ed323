package governance

import (
	"context"
	"errors"
)

type Level int

const (
	// LevelInline belongs next to the offending input.
	LevelInline Level = iota
	LevelToast
	// LevelBlocking must be acknowledged before the user continues.
	LevelBlocking
)

func (l Level) String() string {
	switch l {
	case LevelInline:
		return "inline"
	case LevelBlocking:
		return "blocking"
	}
	return "toast"
}

type Notice struct {
	Level   Level
	Kind    Kind
	Message string
}

type Notifier interface {
	Notify(Notice)
}

type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

type discardNotifier struct{}

func (discardNotifier) Notify(Notice) {}

// NoticeFor converts a failed action into what the user is shown.
func NoticeFor(err error) Notice {
	kind := KindOf(err)
	n := Notice{Kind: kind, Message: err.Error()}

	switch kind {
	case KindValidation:
		n.Level = LevelInline
	case KindConflict, KindNotAllowed:
		n.Level = LevelBlocking
	case KindNotFound:
		n.Level = LevelToast
	default:
		n.Level = LevelToast
		var gErr *Error
		if !errors.As(err, &gErr) || gErr.Message == "" {
			n.Message = GenericMessage
		}
	}
	return n
}

func canceled(err error) bool {
	return errors.Is(err, context.Canceled)
}
