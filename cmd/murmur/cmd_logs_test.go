package main

import (
	"strings"
	"testing"
	"time"

	"murmur/pkg/history"
)

func TestPrintEntriesOldestFirst(t *testing.T) {
	t.Parallel()

	entries := []history.Entry{
		{ID: 2, Kind: history.KindMessage, Peer: "bob", Detail: "hi back", CreatedAt: time.Date(2026, 8, 30, 12, 1, 0, 0, time.UTC)},
		{ID: 1, Kind: history.KindSend, Peer: "bob", Detail: "hello", CreatedAt: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)},
	}

	var out strings.Builder
	printEntries(&out, entries)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if !strings.Contains(lines[0], "hello") || !strings.Contains(lines[1], "hi back") {
		t.Errorf("entries not printed oldest first:\n%s", out.String())
	}
}

func TestPrintEntriesEmpty(t *testing.T) {
	t.Parallel()

	var out strings.Builder
	printEntries(&out, nil)
	if !strings.Contains(out.String(), "no activity found") {
		t.Errorf("output = %q", out.String())
	}
}
