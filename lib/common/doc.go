// Package common holds the ambient pieces shared by the libraries and the CLI:
// the Config struct the composition root fills from flags and environment, and the
// logger factory that renders dragonboat's logger facade through zap.
//
// Libraries declare a package level logger with logger.GetLogger("<name>"); InitLoggers
// swaps in the zap backend and applies the configured level to all of them.
package common
