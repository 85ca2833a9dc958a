package shutdown

import "errors"

// ErrTerminationFile is returned when the termination file exists at startup.
var ErrTerminationFile = errors.New("termination file found")
