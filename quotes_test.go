package journal

import "testing"

func TestParseQuotes(t *testing.T) {
	got, err := ParseQuotes([]string{"aapl=11.5", " MSFT = 300 "}, "USD")
	if err != nil {
		t.Fatalf("ParseQuotes() unexpected error: %v", err)
	}
	assertMoney(t, "AAPL", got["AAPL"], M(11.5, "USD"))
	assertMoney(t, "MSFT", got["MSFT"], M(300, "USD"))

	for _, bad := range []string{"AAPL", "=10", "AAPL=abc", "AAPL=-1"} {
		if _, err := ParseQuotes([]string{bad}, "USD"); err == nil {
			t.Errorf("ParseQuotes(%q) expected an error", bad)
		}
	}
}

func TestOpenedOn(t *testing.T) {
	if got := OpenedOn(nil); !got.IsZero() {
		t.Errorf("OpenedOn(nil) = %v, want zero", got)
	}
	positions := []Position{{OpenDate: day(5)}, {OpenDate: day(2)}, {OpenDate: day(9)}}
	if got := OpenedOn(positions); got != day(2) {
		t.Errorf("OpenedOn() = %v, want %v", got, day(2))
	}
}
