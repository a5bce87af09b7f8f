package renderer

import "github.com/etnz/journal"

// Import is the view of an import result.
type Import struct {
	Account  string
	Mode     journal.ImportMode
	Stats    journal.ImportStats
	Errors   []string
	Trades   []journal.Trade
	Equity   []journal.EquityPoint
	Removed  int
	Verbose  bool
	HasTrade bool
}

// NewImport creates the view of 'res'. Verbose views list every imported trade.
func NewImport(res journal.ImportResult, verbose bool) *Import {
	return &Import{
		Account:  res.AccountID,
		Mode:     res.Mode,
		Stats:    res.Stats,
		Errors:   res.Errors,
		Trades:   res.Trades,
		Equity:   res.Equity,
		Removed:  len(res.RemovedPositions),
		Verbose:  verbose,
		HasTrade: len(res.Trades) > 0,
	}
}

// RenderImport renders the summary of an import.
func RenderImport(v *Import) string {
	partials := map[string]string{
		"import_stats":  "import_stats.md",
		"import_errors": "import_errors.md",
		"import_trades": "",
	}
	if v.Verbose && v.HasTrade {
		partials["import_trades"] = "import_trades.md"
	}
	return renderTemplate("import", "import.md", partials, v)
}
