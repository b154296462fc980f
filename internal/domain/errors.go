package domain

import (
	"errors"
	"fmt"
)

// OracleError is a contract error with a stable numeric code. The values are
// an external contract and must not be renumbered.
type OracleError uint32

const (
	ErrAlreadyInitialized    OracleError = 3
	ErrNotImplemented        OracleError = 100
	ErrInvalidOracleConfig   OracleError = 101
	ErrInvalidAssets         OracleError = 102
	ErrOracleNotFound        OracleError = 103
	ErrCircuitBreakerTripped OracleError = 104
	ErrAssetNotFound         OracleError = 105
	ErrInvalidTimestamp      OracleError = 106
	ErrAssetBlocked          OracleError = 107
)

var oracleErrorNames = map[OracleError]string{
	ErrAlreadyInitialized:    "already initialized",
	ErrNotImplemented:        "not implemented",
	ErrInvalidOracleConfig:   "invalid oracle config",
	ErrInvalidAssets:         "invalid assets",
	ErrOracleNotFound:        "oracle not found",
	ErrCircuitBreakerTripped: "circuit breaker tripped",
	ErrAssetNotFound:         "asset not found",
	ErrInvalidTimestamp:      "invalid timestamp",
	ErrAssetBlocked:          "asset blocked",
}

func (e OracleError) Error() string {
	name, ok := oracleErrorNames[e]
	if !ok {
		name = "unknown"
	}
	return fmt.Sprintf("%s (#%d)", name, uint32(e))
}

func (e OracleError) Code() uint32 {
	return uint32(e)
}

// AsOracleError extracts the contract error from a wrapped chain.
func AsOracleError(err error) (OracleError, bool) {
	var oe OracleError
	if errors.As(err, &oe) {
		return oe, true
	}
	return 0, false
}

var (
	// ErrUnauthorized is returned when a non-admin caller invokes an admin
	// operation.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotInitialized is returned by reads made before Initialize.
	ErrNotInitialized = errors.New("aggregator not initialized")
)
