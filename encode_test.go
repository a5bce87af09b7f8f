package journal

import (
	"bytes"
	"strings"
	"testing"
)

func TestDecodeTrades(t *testing.T) {
	input := `{"id":"t1","account":"acc","ticker":"AAPL","date":"2024-01-02","type":"buy","quantity":100,"price":"10","commission":"0.5","currency":"USD"}

{"account":"acc","ticker":"AAPL","date":"2024-01-03","type":"SELL","quantity":50,"price":12,"commission":0.5,"currency":"USD","brokerDate":"2024-01-05","brokerTime":"10:00:00"}
`
	trades, err := DecodeTrades(strings.NewReader(input))
	if err != nil {
		t.Fatalf("DecodeTrades() unexpected error: %v", err)
	}
	if len(trades) != 2 {
		t.Fatalf("DecodeTrades() returned %d trades, want 2", len(trades))
	}
	first, second := trades[0], trades[1]
	if first.ID != "t1" || first.Type != Buy || !first.Quantity.Equal(Q(100)) {
		t.Errorf("first trade = %+v", first)
	}
	assertMoney(t, "commission", first.Commission, USD(0.5))
	if second.Type != Sell || second.BrokerDate != day(5) || second.BrokerTime != "10:00:00" {
		t.Errorf("second trade = %+v", second)
	}
	for _, tr := range trades {
		if err := tr.Validate(); err != nil {
			t.Errorf("decoded trade is invalid: %v", err)
		}
	}
}

func TestDecodeTrades_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"malformed json", "{\"account\":\n", "line 1"},
		{"unknown side", `{"account":"acc","ticker":"X","date":"2024-01-02","type":"HOLD","quantity":1,"price":1}` + "\n", "HOLD"},
		{"second line", "{\"account\":\"acc\",\"ticker\":\"X\",\"date\":\"2024-01-02\",\"type\":\"BUY\",\"quantity\":1,\"price\":1}\n{\"date\":\"yesterday\"}\n", "line 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeTrades(strings.NewReader(tt.input))
			if err == nil {
				t.Fatal("DecodeTrades() expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("DecodeTrades() error = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestEncodeTrades(t *testing.T) {
	trades := []Trade{
		buy("t1", "AAPL", day(2), 100, 10.005, 0.5),
		sell("", "AAPL", day(3), 50, 12, 0),
	}
	var buf bytes.Buffer
	if err := EncodeTrades(&buf, trades); err != nil {
		t.Fatalf("EncodeTrades() unexpected error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("EncodeTrades() wrote %d lines, want 2", len(lines))
	}
	want := `{"account":"acc","ticker":"AAPL","date":"2024-01-03","type":"SELL","quantity":"50","price":"12","currency":"USD"}`
	if lines[1] != want {
		t.Errorf("second line = %s, want %s", lines[1], want)
	}

	back, err := DecodeTrades(&buf)
	if err != nil {
		t.Fatalf("DecodeTrades() unexpected error: %v", err)
	}
	for i := range trades {
		if back[i].Key() != trades[i].Key() || !back[i].Commission.Equal(trades[i].Commission) {
			t.Errorf("trade %d = %+v, want %+v", i, back[i], trades[i])
		}
	}
}
