package sse_test

import (
	"strings"
	"testing"

	"plenum/internal/sse"
)

func TestScannerParsesEvents(t *testing.T) {
	input := "event: status\ndata: {\"a\":1}\n\ndata: plain\n\n"
	scanner := sse.NewScanner(strings.NewReader(input))

	if !scanner.Next() {
		t.Fatal("expected first event")
	}
	first := scanner.Event()
	if first.Type != "status" || first.Data != `{"a":1}` {
		t.Fatalf("unexpected first event: %+v", first)
	}

	if !scanner.Next() {
		t.Fatal("expected second event")
	}
	second := scanner.Event()
	if second.Type != "" || second.Data != "plain" {
		t.Fatalf("unexpected second event: %+v", second)
	}

	if scanner.Next() {
		t.Fatal("expected end of stream")
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestScannerJoinsMultiLineData(t *testing.T) {
	input := "data: line one\ndata: line two\n\n"
	scanner := sse.NewScanner(strings.NewReader(input))
	if !scanner.Next() {
		t.Fatal("expected event")
	}
	if got := scanner.Event().Data; got != "line one\nline two" {
		t.Fatalf("unexpected data: %q", got)
	}
}

func TestScannerSkipsCommentsAndBlankBlocks(t *testing.T) {
	input := ": keepalive\n\n: another\n\ndata: real\n\n"
	scanner := sse.NewScanner(strings.NewReader(input))
	if !scanner.Next() {
		t.Fatal("expected event")
	}
	if got := scanner.Event().Data; got != "real" {
		t.Fatalf("unexpected data: %q", got)
	}
}

func TestScannerEmitsFinalUnterminatedEvent(t *testing.T) {
	input := "data: tail"
	scanner := sse.NewScanner(strings.NewReader(input))
	if !scanner.Next() {
		t.Fatal("expected trailing event")
	}
	if got := scanner.Event().Data; got != "tail" {
		t.Fatalf("unexpected data: %q", got)
	}
	if scanner.Next() {
		t.Fatal("expected stream end after trailing event")
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("clean EOF should not error: %v", err)
	}
}

func TestScannerHandlesCRLF(t *testing.T) {
	input := "data: windows\r\n\r\n"
	scanner := sse.NewScanner(strings.NewReader(input))
	if !scanner.Next() {
		t.Fatal("expected event")
	}
	if got := scanner.Event().Data; got != "windows" {
		t.Fatalf("unexpected data: %q", got)
	}
}
