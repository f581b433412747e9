package main

import (
	"strings"
	"testing"
)

func TestNetStatusReportsTraffic(t *testing.T) {
	n := newNetClient("ws://localhost:0", nil)
	if got := n.status(); !strings.HasPrefix(got, "net offline") {
		t.Fatalf("status before connecting = %q", got)
	}
	n.setConnected(true)
	n.bytesIn.Add(2048)
	n.bytesOut.Add(10)
	n.badPackets.Add(3)
	got := n.status()
	for _, want := range []string{"net connected", "in 2.0 kB", "out 10 B", "bad 3"} {
		if !strings.Contains(got, want) {
			t.Fatalf("status %q missing %q", got, want)
		}
	}
}
