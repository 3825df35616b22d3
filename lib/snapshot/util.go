package snapshot

import (
	"bytes"
	"runtime"
	"strconv"
)

// goroutineID returns the ID of the calling goroutine, parsed from the
// first line of its stack header ("goroutine N [running]:"). The runtime
// deliberately hides this ID, but the core lock tracks goroutine-held
// read locks purely for watchdog diagnostics, where a stable opaque
// identifier is all that is needed.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)

	fields := bytes.Fields(buf[:n])
	if len(fields) < 2 {
		return 0
	}
	id, err := strconv.ParseUint(string(fields[1]), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
