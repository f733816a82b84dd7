package domain

import "testing"

func TestRejectReason_Terminal(t *testing.T) {
	terminal := []RejectReason{ReasonFormat, ReasonTooSmall, ReasonTooLarge}
	for _, r := range terminal {
		if !r.Terminal() {
			t.Errorf("expected %q to be terminal", r)
		}
	}

	nonTerminal := []RejectReason{ReasonNone, ReasonTransport, ReasonStorage, ReasonDeadline}
	for _, r := range nonTerminal {
		if r.Terminal() {
			t.Errorf("expected %q to be non-terminal", r)
		}
	}
}
