package wallet

import (
	"sync"
	"time"

	"github.com/Cogwheel-Validator/spectra-wallet-engine/models"
	"github.com/rs/zerolog"
)

// Notification reports a finished write. Abandoned is set when the caller
// stopped waiting before the result arrived.
type Notification struct {
	Action    string                   `json:"action"`
	Result    models.TransactionResult `json:"result"`
	Abandoned bool                     `json:"abandoned"`
	At        time.Time                `json:"at"`
}

type Notifier interface {
	Notify(n Notification)
}

// Fanout delivers to every notifier in order.
type Fanout []Notifier

func (f Fanout) Notify(n Notification) {
	for _, s := range f {
		s.Notify(n)
	}
}

// LogSink writes notifications to a zerolog logger.
type LogSink struct {
	Logger zerolog.Logger
}

func (s LogSink) Notify(n Notification) {
	event := s.Logger.Info()
	if !n.Result.Success {
		event = s.Logger.Warn()
	}
	if p := n.Result.Payload; p != nil {
		event = event.Uint32("code", p.Code).Str("tx_hash", p.TxHash)
	}
	event.
		Str("action", n.Action).
		Bool("success", n.Result.Success).
		Bool("abandoned", n.Abandoned).
		Msg(n.Result.Message)
}

// ChannelSink forwards notifications to C without blocking. When C is full
// the notification is dropped and counted.
type ChannelSink struct {
	C chan Notification

	mu      sync.Mutex
	dropped int
}

func NewChannelSink(size int) *ChannelSink {
	return &ChannelSink{C: make(chan Notification, size)}
}

func (s *ChannelSink) Notify(n Notification) {
	select {
	case s.C <- n:
	default:
		s.mu.Lock()
		s.dropped++
		s.mu.Unlock()
		log.Warn().Str("action", n.Action).Msg("Notification channel full, dropping")
	}
}

func (s *ChannelSink) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// RingSink keeps the last N notifications in memory.
type RingSink struct {
	mu    sync.Mutex
	buf   []Notification
	next  int
	count int
}

func NewRingSink(capacity int) *RingSink {
	if capacity < 1 {
		capacity = 1
	}
	return &RingSink{buf: make([]Notification, capacity)}
}

func (s *RingSink) Notify(n Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf[s.next] = n
	s.next = (s.next + 1) % len(s.buf)
	if s.count < len(s.buf) {
		s.count++
	}
}

// Recent returns the kept notifications, newest first.
func (s *RingSink) Recent() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Notification, 0, s.count)
	for i := 1; i <= s.count; i++ {
		idx := (s.next - i + len(s.buf)) % len(s.buf)
		out = append(out, s.buf[idx])
	}
	return out
}
