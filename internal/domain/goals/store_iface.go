package goals

import (
	"context"

	"perftrack/internal/domain/auth"
)

// UserRef is the slice of the directory the goal engine needs: enough to
// resolve managers and address notifications.
type UserRef struct {
	ID        string
	Name      string
	Email     string
	ManagerID string
	Role      auth.Role
}

type StoreAPI interface {
	CreateGoal(ctx context.Context, g Goal) (Goal, error)
	GetGoal(ctx context.Context, goalID string, scope Scope) (Goal, error)
	ListGoals(ctx context.Context, scope Scope, status string) ([]Goal, error)
	UpdateGoalContent(ctx context.Context, goalID string, upd ContentUpdate) (Goal, error)
	ApproveGoal(ctx context.Context, goalID, approverID string) (Decision, error)
	RejectGoal(ctx context.Context, goalID, approverID, comments string) (Decision, error)
	ResubmitGoal(ctx context.Context, goalID, actorID string) (Goal, error)
	CompleteGoal(ctx context.Context, goalID, actorID string) (Goal, error)
	UpdateProgress(ctx context.Context, goalID, actorID string, progress int, notes string) (Goal, error)
	SoftDeleteGoal(ctx context.Context, goalID, actorID string) error
	PurgeGoal(ctx context.Context, goalID string) error
	UpsertSelfRating(ctx context.Context, goalID, raterID string, score int, comments string) (Rating, error)
	UpsertManagerRating(ctx context.Context, goalID, raterID string, score int, comments string) (Rating, error)
	UpsertManagerRatingBatch(ctx context.Context, managerID string, scope Scope, items []ratedItem) ([]Rating, error)
	GetRating(ctx context.Context, goalID string) (Rating, error)
	UserRef(ctx context.Context, userID string) (UserRef, error)
}

// ratedItem is a batch entry whose score has already passed validation.
type ratedItem struct {
	GoalID   string
	Score    int
	Comments string
}
