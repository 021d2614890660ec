package notifications

const (
	TypeGoalSubmitted         = "goal_submitted"
	TypeGoalApproved          = "goal_approved"
	TypeGoalRejected          = "goal_rejected"
	TypeGoalResubmitted       = "goal_resubmitted"
	TypeGoalProgress          = "goal_progress"
	TypeGoalCompleted         = "goal_completed"
	TypeGoalDeleted           = "goal_deleted"
	TypeSelfRatingReceived    = "self_rating_received"
	TypeManagerRatingReceived = "manager_rating_received"
)
