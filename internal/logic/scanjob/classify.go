package scanjob

// classify maps an observed job onto a record state. done is false while the job is
// still pending or running.
func classify(status JobStatus) (state State, reason string, done bool) {
	switch status.Phase {
	case JobPhaseSucceeded:
		return StateSucceeded, ReasonCompleted, true
	case JobPhaseFailed:
		if status.Reason == ReasonDeadlineExceeded {
			return StateTimedOut, ReasonDeadlineExceeded, true
		}

		if status.ExitCode == nil {
			if status.Reason != "" {
				return StateFailed, status.Reason, true
			}

			return StateFailed, ReasonExitCode, true
		}

		return classifyExitCode(*status.ExitCode)
	case JobPhaseActive:
		return StateRunning, "", false
	default:
		return StateCreated, "", false
	}
}

func classifyExitCode(code int32) (State, string, bool) {
	switch code {
	case ExitSuccess:
		return StateSucceeded, ReasonCompleted, true
	case ExitPolicyViolation:
		return StatePolicyViolation, ReasonPolicyViolation, true
	default:
		return StateFailed, ReasonExitCode, true
	}
}
