// Package logx configures agroguru's structured logging.
//
// logx.Logger is a small value-type wrapper on top of zerolog:
//   - Console output stays readable (short timestamp + short caller)
//   - File output is JSON-structured
//   - An optional Telegram sink forwards warnings to an admin chat (min-level + rate limited)
package logx
