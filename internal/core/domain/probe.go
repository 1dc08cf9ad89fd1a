package domain

// ProbeOutcome tags the result of one detection probe.
type ProbeOutcome int

// Probe outcomes. Unavailable and TimedOut are expected, non-fatal results:
// the detector falls through to the next probe.
const (
	// ProbeUnavailable means the probed capability is absent.
	ProbeUnavailable ProbeOutcome = iota

	// ProbeTimedOut means the probe did not answer within its bound.
	ProbeTimedOut

	// ProbeSuccess means the probe produced a context snapshot.
	ProbeSuccess
)

// String returns the outcome name for logging.
func (o ProbeOutcome) String() string {
	switch o {
	case ProbeSuccess:
		return "success"
	case ProbeTimedOut:
		return "timed-out"
	default:
		return "unavailable"
	}
}

// ProbeResult is the tagged result of one detection probe.
type ProbeResult struct {
	// Outcome tags the result.
	Outcome ProbeOutcome

	// Context is the produced snapshot. Only set on ProbeSuccess.
	Context *DashboardContext
}

// Unavailable is the zero-value miss result.
func Unavailable() ProbeResult {
	return ProbeResult{Outcome: ProbeUnavailable}
}

// TimedOut is the timeout miss result.
func TimedOut() ProbeResult {
	return ProbeResult{Outcome: ProbeTimedOut}
}

// Success wraps a produced snapshot.
func Success(ctx *DashboardContext) ProbeResult {
	return ProbeResult{Outcome: ProbeSuccess, Context: ctx}
}
