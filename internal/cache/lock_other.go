//go:build !unix

package cache

import (
	"os"
	"time"
)

type lockMode int

const (
	lockShared lockMode = iota
	lockExclusive
)

// Without flock the atomic rename is the only coordination between writers.
func lockFile(_ *os.File, _ lockMode, _ time.Duration) error { return nil }

func unlockFile(_ *os.File) error { return nil }
