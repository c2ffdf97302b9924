package events

import (
	"context"
	"fmt"
	"strings"
	"sync"

	plog "github.com/phuslu/log"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/levels"
	arbormodels "github.com/ternarybob/arbor/models"

	"github.com/praecohq/praeco/internal/interfaces"
)

// LogStream bridges arbor's context log channel onto the event hub so
// websocket clients see server logs live. Delivery inherits the hub's
// best-effort semantics; a slow client drops log lines, nothing else.
type LogStream struct {
	hub      *Hub
	logger   arbor.ILogger
	channel  chan []arbormodels.LogEvent
	minLevel levels.LogLevel
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewLogStream creates a log stream publishing into the hub. minLevel is the
// lowest level forwarded ("debug", "info", "warn", "error"), defaulting to
// info.
func NewLogStream(hub *Hub, logger arbor.ILogger, minLevel string) *LogStream {
	ctx, cancel := context.WithCancel(context.Background())
	return &LogStream{
		hub:      hub,
		logger:   logger,
		channel:  make(chan []arbormodels.LogEvent, 10),
		minLevel: parseLevel(minLevel),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Channel returns the batch channel to hand to the logger's SetChannel.
func (s *LogStream) Channel() chan []arbormodels.LogEvent {
	return s.channel
}

// Start launches the consumer goroutine.
func (s *LogStream) Start() {
	s.wg.Add(1)
	go s.consume()
}

// Stop drains and shuts the stream down.
func (s *LogStream) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *LogStream) consume() {
	defer s.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Str("panic", fmt.Sprintf("%v", r)).
				Msg("Log stream panic recovered")
		}
	}()

	for {
		select {
		case <-s.ctx.Done():
			return
		case batch, ok := <-s.channel:
			if !ok {
				return
			}
			for _, event := range batch {
				s.forward(event)
			}
		}
	}
}

func (s *LogStream) forward(event arbormodels.LogEvent) {
	level := plogLevel(event.Level)
	if level < s.minLevel {
		return
	}
	// Websocket traffic logging itself would feed back into the stream.
	if strings.Contains(event.Message, "WebSocket client") {
		return
	}

	s.hub.Publish(interfaces.Event{
		Type: interfaces.EventLog,
		Data: map[string]interface{}{
			"level":   levelString(level),
			"message": event.Message,
			"time":    event.Timestamp.Format("15:04:05"),
		},
		Timestamp: event.Timestamp,
	})
}

// plogLevel converts phuslu/log's level (what arbor events carry) to arbor's.
func plogLevel(level plog.Level) levels.LogLevel {
	switch level {
	case plog.ErrorLevel:
		return levels.ErrorLevel
	case plog.WarnLevel:
		return levels.WarnLevel
	case plog.InfoLevel:
		return levels.InfoLevel
	case plog.DebugLevel:
		return levels.DebugLevel
	default:
		return levels.InfoLevel
	}
}

func parseLevel(level string) levels.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return levels.DebugLevel
	case "info":
		return levels.InfoLevel
	case "warn", "warning":
		return levels.WarnLevel
	case "error":
		return levels.ErrorLevel
	default:
		return levels.InfoLevel
	}
}

func levelString(level levels.LogLevel) string {
	switch level {
	case levels.ErrorLevel:
		return "error"
	case levels.WarnLevel:
		return "warn"
	case levels.DebugLevel:
		return "debug"
	default:
		return "info"
	}
}
