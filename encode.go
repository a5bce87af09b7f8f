package journal

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// DecodeTrades decodes trades from a stream of JSONL data, one trade per line.
// Empty lines are skipped. Trades are returned in input order, unvalidated.
func DecodeTrades(r io.Reader) ([]Trade, error) {
	var trades []Trade
	scanner := bufio.NewScanner(r)
	for i := 1; scanner.Scan(); i++ {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var t Trade
		if err := json.Unmarshal(line, &t); err != nil {
			return nil, fmt.Errorf("format error on line %d %q: %w", i, string(line), err)
		}
		trades = append(trades, t)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read trades: %w", err)
	}
	return trades, nil
}

// EncodeTrades writes trades to w, one JSON object per line.
func EncodeTrades(w io.Writer, trades []Trade) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, t := range trades {
		if err := enc.Encode(t); err != nil {
			return fmt.Errorf("failed to encode trade %s: %w", t.Key(), err)
		}
	}
	return nil
}
