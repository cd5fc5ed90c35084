package mqtt

import (
	"sync"
	"testing"
)

func TestTopicsMatch(t *testing.T) {
	tests := []struct {
		filter string
		topic  string
		want   bool
	}{
		{"rpeer/v1/route/status/r1", "rpeer/v1/route/status/r1", true},
		{"rpeer/v1/route/status/+", "rpeer/v1/route/status/r1", true},
		{"rpeer/v1/route/status/+", "rpeer/v1/route/status/r1/extra", false},
		{"rpeer/v1/#", "rpeer/v1/order/status/o1", true},
		{"rpeer/v1/+/status/+", "rpeer/v1/order/status/o1", true},
		{"rpeer/v1/order/status/o1", "rpeer/v1/order/status/o2", false},
		{"rpeer/v1/route/+", "rpeer/v1/route", false},
	}

	for _, tt := range tests {
		t.Run(tt.filter+"|"+tt.topic, func(t *testing.T) {
			if got := topicsMatch(tt.filter, tt.topic); got != tt.want {
				t.Errorf("topicsMatch(%q, %q) = %v, want %v", tt.filter, tt.topic, got, tt.want)
			}
		})
	}
}

func TestTopicFilter(t *testing.T) {
	if got := topicFilter("$share/hub/rpeer/v1/driver/presence/+"); got != "rpeer/v1/driver/presence/+" {
		t.Errorf("unexpected shared filter: %q", got)
	}
	if got := topicFilter("rpeer/v1/#"); got != "rpeer/v1/#" {
		t.Errorf("plain filter changed: %q", got)
	}
}

func TestWatchConnection(t *testing.T) {
	c, err := NewClient(&ClientConfig{BrokerURL: "tcp://localhost:1883"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	pc := c.(*pahoClient)

	var mu sync.Mutex
	var seen []bool
	stop := c.WatchConnection(func(up bool) {
		mu.Lock()
		seen = append(seen, up)
		mu.Unlock()
	})

	pc.setConnected(true)
	pc.setConnected(true) // no edge
	pc.setConnected(false)
	stop()
	pc.setConnected(true)

	want := []bool{false, true, false}
	if len(seen) != len(want) {
		t.Fatalf("got %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("got %v, want %v", seen, want)
		}
	}
	if !c.IsConnected() {
		t.Error("IsConnected should report the last state")
	}
}

func TestClientConfigValidate(t *testing.T) {
	if err := (&ClientConfig{}).Validate(); err == nil {
		t.Error("empty broker url should fail")
	}
	if err := (&ClientConfig{BrokerURL: "tcp://b:1883", WillQoS: 3}).Validate(); err == nil {
		t.Error("will qos 3 should fail")
	}
}
