package push

import (
	"context"
	"fmt"

	"github.com/motocabz/dispatch-core/eventlog"
)

// StreamDeadLetterSink implements DeadLetterSink by re-appending the
// exhausted entry onto a separate dead-letter stream, tagged with why it
// died, then deleting it from the source stream.
type StreamDeadLetterSink struct {
	dead   *eventlog.Log
	source *eventlog.Log
}

func NewStreamDeadLetterSink(dead, source *eventlog.Log) *StreamDeadLetterSink {
	return &StreamDeadLetterSink{dead: dead, source: source}
}

// Enqueue copies entry onto the dead-letter stream with reason recorded in
// its metadata, then removes it from the source stream so it can't be
// reclaimed again.
func (s *StreamDeadLetterSink) Enqueue(ctx context.Context, entry eventlog.Entry, reason string) error {
	ev := entry.Event
	if ev.Metadata == nil {
		ev.Metadata = make(map[string]string)
	}
	ev.Metadata["dead_letter_reason"] = reason
	ev.Metadata["original_id"] = entry.ID

	if _, err := s.dead.Append(ctx, ev); err != nil {
		return fmt.Errorf("push: append dead letter: %w", err)
	}
	if s.source != nil {
		if err := s.source.Delete(ctx, entry.ID); err != nil {
			return fmt.Errorf("push: delete dead-lettered entry: %w", err)
		}
	}
	return nil
}
