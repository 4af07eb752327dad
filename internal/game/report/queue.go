package report

import (
	"time"

	"go.uber.org/zap"
)

// DefaultSendInterval is the minimum time between two delivered lines.
const DefaultSendInterval = 600 * time.Millisecond

// Channel is the host's outbound text channel.
type Channel interface {
	// Ready reports whether the channel can accept a line (false during loading).
	Ready() bool
	// Send delivers one line.
	Send(line string) error
}

// Queue is an unbounded FIFO of formatted lines awaiting rate-limited delivery.
//
// Queue is not safe for concurrent use.
type Queue struct {
	lines    []string
	interval time.Duration
	lastSend time.Time
	sent     int
	logger   *zap.Logger
}

// NewQueue creates an empty Queue.
//
// Precondition: logger must be non-nil. interval <= 0 selects DefaultSendInterval.
func NewQueue(interval time.Duration, logger *zap.Logger) *Queue {
	if interval <= 0 {
		interval = DefaultSendInterval
	}
	return &Queue{interval: interval, logger: logger}
}

// Push appends line to the back of the queue.
func (q *Queue) Push(line string) {
	q.lines = append(q.lines, line)
}

// Len returns the number of queued lines.
func (q *Queue) Len() int { return len(q.lines) }

// Sent returns the number of lines delivered so far.
func (q *Queue) Sent() int { return q.sent }

// Lines returns a copy of the queued lines, front first.
func (q *Queue) Lines() []string {
	return append([]string(nil), q.lines...)
}

// Drain delivers at most one line when more than the send interval has
// elapsed since the previous attempt. The interval restarts even when ch is
// not ready; the line then stays at the front.
//
// Postcondition: Returns true iff a line was delivered and removed.
func (q *Queue) Drain(now time.Time, ch Channel) bool {
	if len(q.lines) == 0 || now.Sub(q.lastSend) <= q.interval {
		return false
	}
	q.lastSend = now
	if !ch.Ready() {
		return false
	}
	if err := ch.Send(q.lines[0]); err != nil {
		q.logger.Warn("sending report line",
			zap.String("line", q.lines[0]),
			zap.Error(err),
		)
		return false
	}
	q.lines[0] = ""
	q.lines = q.lines[1:]
	q.sent++
	return true
}
