// Package logger records query session transcripts in a JSON-Lines
// format: one header line followed by one line per exchanged message.
package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// TranscriptHeader is the first line of a session transcript.
type TranscriptHeader struct {
	Version    int    `json:"version"`
	ProviderID string `json:"provider_id"`
	Endpoint   string `json:"endpoint,omitempty"`
	Timestamp  int64  `json:"timestamp"`
}

// TranscriptEvent is a single line in a session transcript.
// Format: [time_offset, direction, kind, data]
// Direction is "out" for frames the client sent and "in" for frames it
// received; kind is the wire message kind ("query" for outbound frames).
type TranscriptEvent struct {
	TimeOffset float64
	Direction  string
	Kind       string
	Data       string
}

// MarshalJSON implements custom JSON marshaling for TranscriptEvent.
func (e TranscriptEvent) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{e.TimeOffset, e.Direction, e.Kind, e.Data})
}

// UnmarshalJSON implements custom JSON unmarshaling for TranscriptEvent.
func (e *TranscriptEvent) UnmarshalJSON(data []byte) error {
	var arr []interface{}
	if err := json.Unmarshal(data, &arr); err != nil {
		return err
	}
	if len(arr) != 4 {
		return fmt.Errorf("invalid event format: expected 4 elements, got %d", len(arr))
	}

	timeOffset, ok := arr[0].(float64)
	if !ok {
		return fmt.Errorf("invalid time offset type")
	}
	e.TimeOffset = timeOffset

	direction, ok := arr[1].(string)
	if !ok {
		return fmt.Errorf("invalid direction type")
	}
	e.Direction = direction

	kind, ok := arr[2].(string)
	if !ok {
		return fmt.Errorf("invalid kind type")
	}
	e.Kind = kind

	eventData, ok := arr[3].(string)
	if !ok {
		return fmt.Errorf("invalid event data type")
	}
	e.Data = eventData

	return nil
}

// TranscriptLogger records the frames of one query session.
type TranscriptLogger struct {
	writer    io.Writer
	file      *os.File // only set if we own the file
	startTime time.Time
	mu        sync.Mutex
}

// NewTranscriptLogger creates a TranscriptLogger that writes to the
// given file path.
func NewTranscriptLogger(filePath string) (*TranscriptLogger, error) {
	file, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create transcript file: %w", err)
	}

	return &TranscriptLogger{
		writer:    file,
		file:      file,
		startTime: time.Now(),
	}, nil
}

// NewTranscriptLoggerWithWriter creates a TranscriptLogger that writes
// to the given writer. This is useful for testing.
func NewTranscriptLoggerWithWriter(w io.Writer) *TranscriptLogger {
	return &TranscriptLogger{
		writer:    w,
		startTime: time.Now(),
	}
}

// WriteHeader writes the transcript header. This should be called once
// at the beginning of the recording.
func (l *TranscriptLogger) WriteHeader(providerID, endpoint string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	header := TranscriptHeader{
		Version:    1,
		ProviderID: providerID,
		Endpoint:   endpoint,
		Timestamp:  l.startTime.Unix(),
	}

	data, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}

	if _, err := l.writer.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	return nil
}

// WriteOutbound records a frame the client sent.
func (l *TranscriptLogger) WriteOutbound(kind string, data []byte) error {
	return l.writeEvent("out", kind, data)
}

// WriteInbound records a frame the client received.
func (l *TranscriptLogger) WriteInbound(kind string, data []byte) error {
	return l.writeEvent("in", kind, data)
}

// writeEvent writes one transcript line.
func (l *TranscriptLogger) writeEvent(direction, kind string, data []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	event := TranscriptEvent{
		TimeOffset: time.Since(l.startTime).Seconds(),
		Direction:  direction,
		Kind:       kind,
		Data:       string(data),
	}

	eventData, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := l.writer.Write(append(eventData, '\n')); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}

	return nil
}

// Close closes the transcript file.
func (l *TranscriptLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// StartTime returns the start time of the recording.
func (l *TranscriptLogger) StartTime() time.Time {
	return l.startTime
}
