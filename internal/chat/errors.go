package chat

import (
	"errors"
	"fmt"
)

// ErrFeedUnavailable marks a feed whose subscription could not be
// established or was dropped. The state is terminal for that
// subscription; clearing it takes a re-subscribe.
var ErrFeedUnavailable = errors.New("feed unavailable")

type SendStage string

const (
	SendStageInsert SendStage = "insert"
	SendStageReply  SendStage = "reply"
)

// SendError reports which half of the send protocol failed. Either way
// the submission is recovered locally by restoring the draft; the
// stage only matters for display and logs.
type SendError struct {
	Stage SendStage
	Err   error
}

func (e *SendError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("send failed (%s): %v", e.Stage, e.Err)
}

func (e *SendError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
