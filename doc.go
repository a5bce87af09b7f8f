// Package journal is the core of a personal trading journal. It turns a stream of
// buy and sell trades into position episodes and derives the performance and risk
// statistics of an account.
//
// The core functionalities include:
//   - Money and Quantity: exact decimal arithmetic, rounded only for display at the
//     precision of the currency. Divisions that may be undefined return a [Ratio].
//   - Position Builder: folds trades, per account and ticker, into episodes with a
//     weighted average cost basis, realized P&L and stop-loss risk.
//   - Import Reconciler: deduplicates a new batch of trades against the persisted
//     history, rebuilds the affected positions and extends the equity curve.
//   - Metrics Aggregator: a vector of statistics keyed by stable identifiers, where
//     values that cannot be computed are explicitly [NoData].
//
// Every computation is pure and synchronous: it reads its inputs, including the
// account [Settings], and returns a result. Persistence is left to the caller, see
// [Store] and the store/sqlite package.
package journal
