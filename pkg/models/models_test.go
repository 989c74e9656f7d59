package models

import (
	"testing"
	"time"
)

func TestEdgeKeyOrderIndependent(t *testing.T) {
	a := Edge{From: "NODE_NC_2", To: "NODE_ATRIUM"}
	b := Edge{From: "NODE_ATRIUM", To: "NODE_NC_2"}
	if a.Key() != b.Key() {
		t.Errorf("keys differ: %q vs %q", a.Key(), b.Key())
	}
	if a.Key() != "NODE_ATRIUM~NODE_NC_2" {
		t.Errorf("key = %q", a.Key())
	}
}

func TestBlockedEdgeMatches(t *testing.T) {
	e := Edge{From: "a", To: "b", Type: EdgeCorridor}
	if !(BlockedEdge{From: "b", To: "a"}).Matches(e) {
		t.Error("reverse pair should match")
	}
	if (BlockedEdge{From: "a", To: "c"}).Matches(e) {
		t.Error("different pair should not match")
	}
}

func TestParseBlockedEdge(t *testing.T) {
	tests := []struct {
		in      string
		want    BlockedEdge
		wantErr bool
	}{
		{"A~B", BlockedEdge{From: "A", To: "B"}, false},
		{" NODE_NC_3 ~ NODE_NC_E ", BlockedEdge{From: "NODE_NC_3", To: "NODE_NC_E"}, false},
		{"A", BlockedEdge{}, true},
		{"~B", BlockedEdge{}, true},
		{"A~", BlockedEdge{}, true},
	}
	for _, tt := range tests {
		got, err := ParseBlockedEdge(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseBlockedEdge(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseBlockedEdge(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestParseBlockedList(t *testing.T) {
	got, err := ParseBlockedList("A~B,C~D")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[1].From != "C" {
		t.Errorf("got %+v", got)
	}

	if got, err := ParseBlockedList(""); err != nil || got != nil {
		t.Errorf("empty list = %+v, %v", got, err)
	}
	if _, err := ParseBlockedList("A~B,oops"); err == nil {
		t.Error("expected error for malformed entry")
	}
}

func TestHazardActiveAt(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	exp := now.Add(time.Minute)

	open := Hazard{From: "a", To: "b"}
	if !open.ActiveAt(now.Add(24 * time.Hour)) {
		t.Error("hazard without expiry is always active")
	}
	timed := Hazard{From: "a", To: "b", ExpiresAt: &exp}
	if !timed.ActiveAt(now) || timed.ActiveAt(exp) {
		t.Error("timed hazard should expire exactly at its expiry")
	}
	if timed.Blocked() != (BlockedEdge{From: "a", To: "b"}) {
		t.Error("Blocked should keep the pair")
	}
}

func TestTypesValid(t *testing.T) {
	if !NodeRefuge.Valid() || NodeType("lobby").Valid() {
		t.Error("NodeType.Valid mismatch")
	}
	if !EdgeRamp.Valid() || EdgeType("tunnel").Valid() {
		t.Error("EdgeType.Valid mismatch")
	}
	n := Node{ID: "NODE_X"}
	if n.DisplayName() != "NODE_X" {
		t.Errorf("DisplayName = %q", n.DisplayName())
	}
}
