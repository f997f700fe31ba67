package checkpoint

import "errors"

// ErrIncompatibleVersion is returned by Load when a file's format version
// does not match FileVersion.
var ErrIncompatibleVersion = errors.New("incompatible agent file version")
