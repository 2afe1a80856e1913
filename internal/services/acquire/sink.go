package acquire

import (
	"github.com/pion/logging"

	"cdmbridge/internal/domain"
)

const sinkBuffer = 16

type keyMessage struct {
	payload []byte
	url     string
}

// chanSink turns sink callbacks into channel sends. Sends never block; a
// full channel drops the event.
type chanSink struct {
	log      logging.LeveledLogger
	messages chan keyMessage
	statuses chan string
	errs     chan string
}

func newChanSink(log logging.LeveledLogger) *chanSink {
	return &chanSink{
		log:      log,
		messages: make(chan keyMessage, sinkBuffer),
		statuses: make(chan string, sinkBuffer),
		errs:     make(chan string, sinkBuffer),
	}
}

var _ domain.CallbackSink = (*chanSink)(nil)

func (c *chanSink) OnKeyMessage(message []byte, destinationURL string) {
	select {
	case c.messages <- keyMessage{payload: append([]byte(nil), message...), url: destinationURL}:
	default:
		c.log.Warn("dropping key message: queue full")
	}
}

func (c *chanSink) OnKeyStatusUpdate(status string) {
	select {
	case c.statuses <- status:
	default:
		c.log.Warnf("dropping key status %s: queue full", status)
	}
}

func (c *chanSink) OnKeyError(_ int16, _ domain.Result, errorName string) {
	select {
	case c.errs <- errorName:
	default:
		c.log.Warnf("dropping key error %s: queue full", errorName)
	}
}
