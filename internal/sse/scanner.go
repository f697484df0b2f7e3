package sse

import (
	"bufio"
	"io"
	"strings"
)

// Event is a single server-sent event parsed from an event-stream body.
type Event struct {
	// Type is the value of the "event:" field, empty for the default type.
	Type string
	// Data is the payload assembled from one or more "data:" lines, joined
	// with newlines per the event-stream format.
	Data string
}

// Scanner reads server-sent events from an io.Reader. Events are delimited
// by blank lines; "data:" lines carry the payload, "event:" lines set the
// type, comment lines (leading ":") and unknown fields are skipped.
//
//	scanner := sse.NewScanner(body)
//	for scanner.Next() {
//		event := scanner.Event()
//		...
//	}
//	if err := scanner.Err(); err != nil { ... }
type Scanner struct {
	reader  *bufio.Reader
	current Event
	err     error
}

// NewScanner wraps reader in an event-stream scanner.
func NewScanner(reader io.Reader) *Scanner {
	return &Scanner{reader: bufio.NewReaderSize(reader, 64*1024)}
}

// Next advances to the next event. It returns false on EOF or error; call
// Err afterwards to distinguish the two.
func (s *Scanner) Next() bool {
	s.current = Event{}

	var dataLines []string
	var eventType string
	hasData := false

	for {
		line, err := s.reader.ReadString('\n')

		if err != nil && line == "" {
			if err == io.EOF {
				if hasData {
					// Emit the final unterminated event, then stop.
					s.current = Event{Type: eventType, Data: strings.Join(dataLines, "\n")}
					s.err = io.EOF
					return true
				}
				return false
			}
			s.err = err
			return false
		}

		line = strings.TrimRight(line, "\r\n")

		// Blank line terminates an event.
		if line == "" {
			if hasData {
				s.current = Event{Type: eventType, Data: strings.Join(dataLines, "\n")}
				return true
			}
			eventType = ""
			continue
		}

		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, hasColon := strings.Cut(line, ":")
		if !hasColon {
			field = line
			value = ""
		} else {
			// One leading space after the colon is part of the delimiter.
			value = strings.TrimPrefix(value, " ")
		}

		switch field {
		case "data":
			dataLines = append(dataLines, value)
			hasData = true
		case "event":
			eventType = value
		default:
			// id, retry, and unknown fields are not needed here.
		}
	}
}

// Event returns the most recently parsed event. Valid only after Next
// returned true.
func (s *Scanner) Event() Event {
	return s.current
}

// Err returns the first error encountered, nil after a clean EOF.
func (s *Scanner) Err() error {
	if s.err == io.EOF {
		return nil
	}
	return s.err
}
