package sleeptime

import "errors"

// ErrAlreadyRunning is returned when Start is called on a consolidator whose
// loop is already active. At most one loop runs per instance.
var ErrAlreadyRunning = errors.New("sleep-time consolidator already running")
