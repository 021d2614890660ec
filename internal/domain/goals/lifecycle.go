package goals

import "math"

// Lifecycle guards. Each returns nil when the transition is allowed from the
// given status. The store re-checks the same condition inside its conditional
// update, so a race loses cleanly instead of producing a lost update.

func CanApprove(status string) error {
	if status != StatusPending {
		return preconditionf("goal must be PENDING to approve, is %s", status)
	}
	return nil
}

func CanReject(status string) error {
	if status != StatusPending {
		return preconditionf("goal must be PENDING to reject, is %s", status)
	}
	return nil
}

func CanResubmit(status string) error {
	if status != StatusRejected && status != StatusModified {
		return preconditionf("goal must be REJECTED or MODIFIED to resubmit, is %s", status)
	}
	return nil
}

func CanComplete(status string) error {
	if status != StatusApproved {
		return preconditionf("goal must be APPROVED to complete, is %s", status)
	}
	return nil
}

func CanEditContent(status string) error {
	if status == StatusDeleted {
		return preconditionf("deleted goals cannot be edited")
	}
	return nil
}

func CanUpdateProgress(status string) error {
	if status == StatusDeleted {
		return preconditionf("deleted goals cannot receive progress updates")
	}
	return nil
}

func CanDelete(status string) error {
	if status == StatusDeleted {
		return preconditionf("goal is already deleted")
	}
	return nil
}

func CanRateManager(status string) error {
	if status != StatusApproved {
		return preconditionf("goal must be approved before rating")
	}
	return nil
}

func Terminal(status string) bool {
	return status == StatusCompleted || status == StatusDeleted
}

// ParseScore accepts only whole numbers in [1,5]; 3.5 is as invalid as 6.
func ParseScore(value float64) (int, error) {
	if value != math.Trunc(value) {
		return 0, invalidf("score must be an integer between %d and %d", MinScore, MaxScore)
	}
	score := int(value)
	if score < MinScore || score > MaxScore {
		return 0, invalidf("score must be between %d and %d, got %d", MinScore, MaxScore, score)
	}
	return score, nil
}

// ParseProgress accepts only whole numbers in [0,100].
func ParseProgress(value float64) (int, error) {
	if value != math.Trunc(value) {
		return 0, invalidf("progress must be an integer between %d and %d", MinProgress, MaxProgress)
	}
	progress := int(value)
	if progress < MinProgress || progress > MaxProgress {
		return 0, invalidf("progress must be between %d and %d, got %d", MinProgress, MaxProgress, progress)
	}
	return progress, nil
}
