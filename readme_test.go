package main

import (
	"os"
	"strings"
	"testing"
)

func TestREADMEContainsReferencesSection(t *testing.T) {
	content, err := os.ReadFile("README.md")
	if err != nil {
		t.Fatalf("Failed to read README.md: %v", err)
	}

	readmeText := string(content)

	// Check for References section header
	if !strings.Contains(readmeText, "## References") {
		t.Error("README.md missing ## References section")
	}

	// Check for required links
	requiredLinks := map[string]string{
		"MeshCore":          "meshcore.co.uk",
		"Nostr NIPs":        "github.com/nostr-protocol/nips",
		"Gorilla WebSocket": "github.com/gorilla/websocket",
		"Bubble Tea":        "github.com/charmbracelet/bubbletea",
	}

	for name, expectedURL := range requiredLinks {
		if !strings.Contains(readmeText, name) {
			t.Errorf("README.md missing reference to %s", name)
		}
		if !strings.Contains(readmeText, expectedURL) {
			t.Errorf("README.md missing URL for %s (expected to contain: %s)", name, expectedURL)
		}
	}
}

func TestREADMEDocumentsSubcommands(t *testing.T) {
	content, err := os.ReadFile("README.md")
	if err != nil {
		t.Fatalf("Failed to read README.md: %v", err)
	}

	for _, cmd := range []string{"murmur run", "murmur logs"} {
		if !strings.Contains(string(content), cmd) {
			t.Errorf("README.md missing usage for %q", cmd)
		}
	}
}
