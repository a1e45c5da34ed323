package governance

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNoticeFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Notice
	}{
		{
			name: "validation is inline",
			err:  newError(KindValidation, "attribute is required", nil),
			want: Notice{Level: LevelInline, Kind: KindValidation, Message: "attribute is required"},
		},
		{
			name: "conflict blocks",
			err:  newError(KindConflict, "key is locked", nil),
			want: Notice{Level: LevelBlocking, Kind: KindConflict, Message: "key is locked"},
		},
		{
			name: "not allowed blocks",
			err:  newError(KindNotAllowed, "only the primary key can be deleted", nil),
			want: Notice{Level: LevelBlocking, Kind: KindNotAllowed, Message: "only the primary key can be deleted"},
		},
		{
			name: "not found toasts",
			err:  fmt.Errorf("delete: %w", newError(KindNotFound, "contact not found", nil)),
			want: Notice{Level: LevelToast, Kind: KindNotFound, Message: "delete: contact not found"},
		},
		{
			name: "transient with server message keeps it",
			err:  newError(KindTransient, "storage unavailable", nil),
			want: Notice{Level: LevelToast, Kind: KindTransient, Message: "storage unavailable"},
		},
		{
			name: "bare error gets generic message",
			err:  errors.New("read tcp: connection reset by peer"),
			want: Notice{Level: LevelToast, Kind: KindTransient, Message: GenericMessage},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NoticeFor(tt.err))
		})
	}
}

func TestCanceledActionsAreNotNoticed(t *testing.T) {
	rec := &noticeRecorder{}
	o := NewOrchestrator(newFakeAPI(), Options{Notifier: rec})
	defer o.Close()

	err := o.fail(context.Background(), fmt.Errorf("list: %w", context.Canceled))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, o.fail(context.Background(), nil))
	assert.Empty(t, rec.all())
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindTransient, KindOf(errors.New("boom")))
	assert.Equal(t, KindConflict, KindOf(fmt.Errorf("wrapped: %w", ErrSessionClosed)))
	assert.False(t, IsKind(nil, KindTransient))
	assert.Equal(t, "not_allowed", KindNotAllowed.String())
}
