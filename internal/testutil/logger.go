// Package testutil provides shared test helpers for RentBuddy packages.
package testutil

import "go.uber.org/zap"

// Logger returns a development zap logger for use in tests.
func Logger() *zap.Logger {
	l, err := zap.NewDevelopment()
	if err != nil {
		panic("testutil.Logger: " + err.Error())
	}
	return l
}
