package engine

import "fmt"

// InvalidTransactionError rejects a transaction before any scoring happens.
// The engine never produces a partial assessment for invalid input.
type InvalidTransactionError struct {
	Field  string
	Reason string
}

func (e *InvalidTransactionError) Error() string {
	return fmt.Sprintf("invalid transaction: %s: %s", e.Field, e.Reason)
}

// InvalidConfigError is returned once, at engine construction. A constructed
// engine never fails on configuration.
type InvalidConfigError struct {
	Err error
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid scoring config: %v", e.Err)
}

func (e *InvalidConfigError) Unwrap() error {
	return e.Err
}
