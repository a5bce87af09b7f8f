package server

import (
	"net/http"
	"strconv"

	"github.com/etnz/journal"
	"github.com/etnz/journal/renderer"
	"github.com/go-chi/chi/v5"
	"github.com/patrickmn/go-cache"
)

// metricsResponse is the body of the metrics endpoint.
type metricsResponse struct {
	Account string           `json:"account"`
	From    journal.Date     `json:"from"`
	To      journal.Date     `json:"to"`
	Metrics *journal.Metrics `json:"metrics"`
}

// positionResponse is a position valued at its current price.
type positionResponse struct {
	Position  journal.Position  `json:"position"`
	Valuation journal.Valuation `json:"valuation"`
}

// accountContext is the market context of a read request: the date it is made
// on, the quotes and the account balances it is valued with.
type accountContext struct {
	on     journal.Date
	quotes map[string]journal.Money
	assets journal.Money
	cash   journal.Money
}

// parseContext reads the 'on', 'quote', 'assets' and 'cash' query parameters.
func (s *Server) parseContext(r *http.Request) (accountContext, error) {
	q := r.URL.Query()
	c := accountContext{
		on:     journal.Today(),
		assets: journal.M(0, s.settings.Currency),
		cash:   journal.M(0, s.settings.Currency),
	}
	var err error
	if v := q.Get("on"); v != "" {
		if c.on, err = journal.ParseDate(v); err != nil {
			return c, err
		}
	}
	if c.quotes, err = journal.ParseQuotes(q["quote"], s.settings.Currency); err != nil {
		return c, err
	}
	if v := q.Get("assets"); v != "" {
		if c.assets, err = journal.ParseMoney(v, s.settings.Currency); err != nil {
			return c, err
		}
	}
	if v := q.Get("cash"); v != "" {
		if c.cash, err = journal.ParseMoney(v, s.settings.Currency); err != nil {
			return c, err
		}
	}
	return c, nil
}

// wantsMarkdown reports whether the client asked for the markdown rendering.
func wantsMarkdown(r *http.Request) bool {
	return r.URL.Query().Get("format") == "markdown" || r.Header.Get("Accept") == "text/markdown"
}

func (s *Server) writeMarkdown(w http.ResponseWriter, doc string) {
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(doc)); err != nil {
		s.log.Error().Err(err).Msg("Failed to write markdown response")
	}
}

func (s *Server) handleAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.store.Accounts(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to list accounts")
		s.writeError(w, http.StatusInternalServerError, "failed to list accounts")
		return
	}
	if accounts == nil {
		accounts = []string{}
	}
	s.writeJSON(w, http.StatusOK, accounts)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")
	key := account + "?" + r.URL.RawQuery
	s.syncCache(r.Context())

	var resp *metricsResponse
	if cached, ok := s.metrics.Get(key); ok {
		resp = cached.(*metricsResponse)
	} else {
		period, err := journal.ParsePeriod(r.URL.Query().Get("period"))
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		c, err := s.parseContext(r)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		positions, err := s.store.PositionsByAccount(r.Context(), account)
		if err != nil {
			s.log.Error().Err(err).Str("account", account).Msg("Failed to load positions")
			s.writeError(w, http.StatusInternalServerError, "failed to load positions")
			return
		}
		equity, err := s.store.EquityCurve(r.Context(), account)
		if err != nil {
			s.log.Error().Err(err).Str("account", account).Msg("Failed to load equity curve")
			s.writeError(w, http.StatusInternalServerError, "failed to load equity curve")
			return
		}
		if c.assets.IsZero() {
			if v, ok := equity.ValueAsOf(c.on); ok {
				c.assets = v
			}
		}
		window := period.ToDate(c.on)
		m := journal.ComputeMetrics(journal.MetricsInput{
			Positions:     journal.FilterPositions(positions, window),
			Quotes:        c.quotes,
			TotalAssets:   c.assets,
			Cash:          c.cash,
			AccountOpened: journal.OpenedOn(positions),
			AsOf:          c.on,
			Equity:        equity,
		}, s.settings)
		resp = &metricsResponse{Account: account, From: window.From, To: window.To, Metrics: m}
		s.metrics.Set(key, resp, cache.DefaultExpiration)
	}

	if wantsMarkdown(r) {
		s.writeMarkdown(w, renderer.RenderMetrics(renderer.NewMetrics(account, journal.NewRange(resp.From, resp.To), resp.Metrics)))
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")
	c, err := s.parseContext(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	withClosed, _ := strconv.ParseBool(r.URL.Query().Get("closed"))

	positions, err := s.store.PositionsByAccount(r.Context(), account)
	if err != nil {
		s.log.Error().Err(err).Str("account", account).Msg("Failed to load positions")
		s.writeError(w, http.StatusInternalServerError, "failed to load positions")
		return
	}
	if c.assets.IsZero() {
		point, err := s.store.LatestEquityPoint(r.Context(), account)
		if err != nil {
			s.log.Error().Err(err).Str("account", account).Msg("Failed to load equity anchor")
			s.writeError(w, http.StatusInternalServerError, "failed to load equity anchor")
			return
		}
		if point != nil {
			c.assets = point.TotalValue
		}
	}

	view := renderer.NewPositions(account, positions, c.quotes, c.assets, c.on, s.settings, withClosed)
	if wantsMarkdown(r) {
		s.writeMarkdown(w, renderer.RenderPositions(view))
		return
	}
	list := []positionResponse{}
	for _, rows := range [][]renderer.PositionRow{view.Active, view.Closed} {
		for _, row := range rows {
			list = append(list, positionResponse{Position: row.Position, Valuation: row.Valuation})
		}
	}
	s.writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")
	q := r.URL.Query()
	mode, err := journal.ParseImportMode(q.Get("mode"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req := journal.ImportRequest{AccountID: account, Mode: mode}
	if v := q.Get("assets"); v != "" {
		assets, err := journal.ParseMoney(v, s.settings.Currency)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		req.CurrentAssets = &assets
	}
	if req.Trades, err = journal.DecodeTrades(r.Body); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.reconciler.Import(r.Context(), req)
	if err != nil {
		s.log.Error().Err(err).Str("account", account).Msg("Failed to reconcile import")
		s.writeError(w, http.StatusInternalServerError, "failed to reconcile import")
		return
	}
	if dryRun, _ := strconv.ParseBool(q.Get("dry_run")); !dryRun {
		if err := s.store.SaveImport(r.Context(), res); err != nil {
			s.log.Error().Err(err).Str("account", account).Msg("Failed to save import")
			s.writeError(w, http.StatusInternalServerError, "failed to save import")
			return
		}
		s.invalidate(account)
	}

	if wantsMarkdown(r) {
		s.writeMarkdown(w, renderer.RenderImport(renderer.NewImport(res, false)))
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}
