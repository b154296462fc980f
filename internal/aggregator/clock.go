package aggregator

import "time"

// Clock supplies the ledger time in unix seconds.
type Clock interface {
	Now() uint64
}

type ClockFunc func() uint64

func (f ClockFunc) Now() uint64 { return f() }

type SystemClock struct{}

func (SystemClock) Now() uint64 { return uint64(time.Now().Unix()) }
