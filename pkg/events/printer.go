package events

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"
)

// NewLogHandler logs every event. Tool and state events go to debug, stage and
// run boundaries to info.
func NewLogHandler(logger zerolog.Logger) Handler {
	return HandlerFunc(func(e Event) {
		var ev *zerolog.Event
		switch e.Kind {
		case KindStageFailed, KindRunFailed:
			ev = logger.Warn()
		case KindRunStarted, KindRunCompleted, KindStageStarted, KindStageCompleted:
			ev = logger.Info()
		default:
			ev = logger.Debug()
		}
		ev.EmbedObject(e).Msg("event")
	})
}

// JSONLinesPrinterFunc returns a watermill handler that writes each event as
// one JSON line to w.
func JSONLinesPrinterFunc(w io.Writer) func(msg *message.Message) error {
	var mu sync.Mutex
	return func(msg *message.Message) error {
		defer msg.Ack()

		e, err := EventFromMessage(msg)
		if err != nil {
			return err
		}
		b, err := json.Marshal(e)
		if err != nil {
			return err
		}
		mu.Lock()
		defer mu.Unlock()
		_, err = fmt.Fprintf(w, "%s\n", b)
		return err
	}
}
