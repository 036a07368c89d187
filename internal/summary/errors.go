package summary

import "errors"

var (
	// ErrEmptyVisit means the aggregator was called with no events. The
	// worker always checks emptiness first, so hitting this is a
	// programmer error, not an operational condition.
	ErrEmptyVisit = errors.New("empty visit: no events to aggregate")
)
