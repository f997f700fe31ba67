package core

import "errors"

// ErrBlockSizeExceeded is returned when a value update would exceed a memory
// block's MaxSize. The block is left unchanged.
var ErrBlockSizeExceeded = errors.New("memory block size limit exceeded")
