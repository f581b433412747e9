package main

import (
	"strings"
	"testing"
	"time"

	"github.com/hako/durafmt"
)

func TestDecodeUnits(t *testing.T) {
	u, err := decodeUnits(shortUnitNames)
	if err != nil {
		t.Fatalf("decodeUnits: %v", err)
	}
	if got := durafmt.Parse(90 * time.Second).Format(u); !strings.Contains(got, "30 s") {
		t.Fatalf("formatted %q", got)
	}
	if _, err := decodeUnits("h:h,m:m"); err == nil {
		t.Fatalf("short unit list decoded without error")
	}
}
