package goals

import (
	"context"
	"strings"

	"perftrack/internal/domain/auth"
)

// Service owns the goal lifecycle, the rating reconciliation rules and the
// authorization flow around them. Every operation re-derives the caller's
// scope before touching a goal; a goal outside the scope is reported as
// missing, never as forbidden, so out-of-scope ids leak nothing.
type Service struct {
	store StoreAPI
}

func NewService(store StoreAPI) *Service {
	return &Service{store: store}
}

// Create registers a goal for the caller. The approver is the caller's
// assigned manager; managers and admins without one get a self-goal where
// employee and manager coincide.
func (s *Service) Create(ctx context.Context, caller auth.UserContext, in CreateInput) (Goal, error) {
	if strings.TrimSpace(in.Title) == "" {
		return Goal{}, invalidf("title is required")
	}
	if in.DueDate.IsZero() {
		return Goal{}, invalidf("dueDate is required")
	}
	if !ValidCategory(in.Category) {
		return Goal{}, invalidf("unknown category %q", in.Category)
	}

	// The manager assignment comes from the directory, not from the token or
	// the payload: tokens outlive re-assignments.
	ref, err := s.store.UserRef(ctx, caller.UserID)
	if err != nil {
		return Goal{}, err
	}

	managerID := ref.ManagerID
	if managerID == "" {
		if ref.Role == auth.RoleEmployee {
			return Goal{}, preconditionf("no manager assigned")
		}
		managerID = caller.UserID
	}

	return s.store.CreateGoal(ctx, Goal{
		EmployeeID:  caller.UserID,
		ManagerID:   managerID,
		CreatedByID: caller.UserID,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Category:    in.Category,
		DueDate:     in.DueDate,
		Status:      StatusPending,
	})
}

func (s *Service) Get(ctx context.Context, caller auth.UserContext, goalID string) (Goal, error) {
	return s.store.GetGoal(ctx, goalID, ScopeFor(caller, false))
}

func (s *Service) List(ctx context.Context, caller auth.UserContext, status string, includeDeleted bool) ([]Goal, error) {
	if status != "" && !ValidStatus(status) {
		return nil, invalidf("unknown status %q", status)
	}
	return s.store.ListGoals(ctx, ScopeFor(caller, includeDeleted), status)
}

// Update edits goal content. Only the assigned manager or an admin may edit;
// editing an approved goal without an explicit status flags it MODIFIED.
func (s *Service) Update(ctx context.Context, caller auth.UserContext, goalID string, upd ContentUpdate) (Goal, error) {
	if strings.TrimSpace(upd.Title) == "" {
		return Goal{}, invalidf("title is required")
	}
	if upd.DueDate.IsZero() {
		return Goal{}, invalidf("dueDate is required")
	}
	if !ValidCategory(upd.Category) {
		return Goal{}, invalidf("unknown category %q", upd.Category)
	}
	if upd.Status != "" {
		if !ValidStatus(upd.Status) {
			return Goal{}, invalidf("unknown status %q", upd.Status)
		}
		if upd.Status == StatusDeleted {
			return Goal{}, invalidf("use the delete operation to remove a goal")
		}
	}

	goal, err := s.store.GetGoal(ctx, goalID, ScopeFor(caller, caller.Role == auth.RoleAdmin))
	if err != nil {
		return Goal{}, err
	}
	if caller.Role != auth.RoleAdmin && goal.ManagerID != caller.UserID {
		return Goal{}, ErrForbidden
	}
	if err := CanEditContent(goal.Status); err != nil {
		return Goal{}, err
	}

	upd.Title = strings.TrimSpace(upd.Title)
	upd.UpdatedByID = caller.UserID
	return s.store.UpdateGoalContent(ctx, goalID, upd)
}

// Approve is a one-shot decision by the assigned manager. Re-approving an
// already decided goal fails with a precondition error instead of silently
// succeeding, so the audit trail and notifications stay single-shot.
func (s *Service) Approve(ctx context.Context, caller auth.UserContext, goalID string) (Decision, error) {
	goal, err := s.store.GetGoal(ctx, goalID, ScopeFor(caller, false))
	if err != nil {
		return Decision{}, err
	}
	if goal.ManagerID != caller.UserID {
		return Decision{}, ErrForbidden
	}
	if err := CanApprove(goal.Status); err != nil {
		return Decision{}, err
	}
	return s.store.ApproveGoal(ctx, goalID, caller.UserID)
}

func (s *Service) Reject(ctx context.Context, caller auth.UserContext, goalID, comments string) (Decision, error) {
	if strings.TrimSpace(comments) == "" {
		return Decision{}, invalidf("managerComments are required when rejecting")
	}
	goal, err := s.store.GetGoal(ctx, goalID, ScopeFor(caller, false))
	if err != nil {
		return Decision{}, err
	}
	if goal.ManagerID != caller.UserID {
		return Decision{}, ErrForbidden
	}
	if err := CanReject(goal.Status); err != nil {
		return Decision{}, err
	}
	return s.store.RejectGoal(ctx, goalID, caller.UserID, comments)
}

// Resubmit returns a rejected or modified goal to the manager's queue. The
// prior decision audit fields are kept.
func (s *Service) Resubmit(ctx context.Context, caller auth.UserContext, goalID string) (Goal, error) {
	goal, err := s.store.GetGoal(ctx, goalID, ScopeFor(caller, false))
	if err != nil {
		return Goal{}, err
	}
	if goal.EmployeeID != caller.UserID {
		return Goal{}, ErrForbidden
	}
	if err := CanResubmit(goal.Status); err != nil {
		return Goal{}, err
	}
	return s.store.ResubmitGoal(ctx, goalID, caller.UserID)
}

func (s *Service) Complete(ctx context.Context, caller auth.UserContext, goalID string) (Goal, error) {
	goal, err := s.store.GetGoal(ctx, goalID, ScopeFor(caller, false))
	if err != nil {
		return Goal{}, err
	}
	if goal.EmployeeID != caller.UserID && goal.ManagerID != caller.UserID {
		return Goal{}, ErrForbidden
	}
	if err := CanComplete(goal.Status); err != nil {
		return Goal{}, err
	}
	return s.store.CompleteGoal(ctx, goalID, caller.UserID)
}

// UpdateProgress is employee-only. The value is validated before any store
// call: an out-of-range progress never reaches the database.
func (s *Service) UpdateProgress(ctx context.Context, caller auth.UserContext, goalID string, value float64, notes string) (Goal, error) {
	progress, err := ParseProgress(value)
	if err != nil {
		return Goal{}, err
	}
	goal, err := s.store.GetGoal(ctx, goalID, ScopeFor(caller, false))
	if err != nil {
		return Goal{}, err
	}
	if goal.EmployeeID != caller.UserID {
		return Goal{}, ErrForbidden
	}
	if err := CanUpdateProgress(goal.Status); err != nil {
		return Goal{}, err
	}
	return s.store.UpdateProgress(ctx, goalID, caller.UserID, progress, notes)
}

// Delete soft-deletes: the row is retained for audit and excluded from all
// default queries. Allowed for admins and the goal's own employee or manager.
func (s *Service) Delete(ctx context.Context, caller auth.UserContext, goalID string) (Goal, error) {
	goal, err := s.store.GetGoal(ctx, goalID, ScopeFor(caller, false))
	if err != nil {
		return Goal{}, err
	}
	if caller.Role != auth.RoleAdmin && goal.EmployeeID != caller.UserID && goal.ManagerID != caller.UserID {
		return Goal{}, ErrForbidden
	}
	if err := CanDelete(goal.Status); err != nil {
		return Goal{}, err
	}
	if err := s.store.SoftDeleteGoal(ctx, goalID, caller.UserID); err != nil {
		return Goal{}, err
	}
	return goal, nil
}

// Purge hard-deletes a goal and, by cascade, its rating. Admin only.
func (s *Service) Purge(ctx context.Context, caller auth.UserContext, goalID string) error {
	if caller.Role != auth.RoleAdmin {
		return ErrForbidden
	}
	return s.store.PurgeGoal(ctx, goalID)
}

// SubmitSelfRating upserts the employee's own assessment. There is no status
// gate: an employee may reflect on a pending goal. Submitting twice updates
// the same slot in place.
func (s *Service) SubmitSelfRating(ctx context.Context, caller auth.UserContext, goalID string, score float64, comments string) (Rating, Goal, error) {
	parsed, err := ParseScore(score)
	if err != nil {
		return Rating{}, Goal{}, err
	}
	goal, err := s.store.GetGoal(ctx, goalID, ScopeFor(caller, false))
	if err != nil {
		return Rating{}, Goal{}, err
	}
	if goal.EmployeeID != caller.UserID {
		return Rating{}, Goal{}, ErrForbidden
	}
	rating, err := s.store.UpsertSelfRating(ctx, goalID, caller.UserID, parsed, comments)
	if err != nil {
		return Rating{}, Goal{}, err
	}
	return rating, goal, nil
}

// SubmitManagerRating upserts the manager's assessment. The APPROVED gate is
// enforced both here and atomically inside the store write.
func (s *Service) SubmitManagerRating(ctx context.Context, caller auth.UserContext, goalID string, score float64, comments string) (Rating, Goal, error) {
	parsed, err := ParseScore(score)
	if err != nil {
		return Rating{}, Goal{}, err
	}
	goal, err := s.store.GetGoal(ctx, goalID, ScopeFor(caller, false))
	if err != nil {
		return Rating{}, Goal{}, err
	}
	if goal.ManagerID != caller.UserID {
		return Rating{}, Goal{}, ErrForbidden
	}
	if err := CanRateManager(goal.Status); err != nil {
		return Rating{}, Goal{}, err
	}
	rating, err := s.store.UpsertManagerRating(ctx, goalID, caller.UserID, parsed, comments)
	if err != nil {
		return Rating{}, Goal{}, err
	}
	return rating, goal, nil
}

// SubmitManagerRatingBatch rates several goals in one transaction: any
// failing goal aborts the whole batch.
func (s *Service) SubmitManagerRatingBatch(ctx context.Context, caller auth.UserContext, items []BatchRatingItem) ([]Rating, error) {
	if caller.Role != auth.RoleManager && caller.Role != auth.RoleAdmin {
		return nil, ErrForbidden
	}
	if len(items) == 0 {
		return nil, invalidf("batch is empty")
	}

	validated := make([]ratedItem, 0, len(items))
	for _, item := range items {
		if strings.TrimSpace(item.GoalID) == "" {
			return nil, invalidf("goalId is required for every batch entry")
		}
		parsed, err := ParseScore(item.Score)
		if err != nil {
			return nil, err
		}
		validated = append(validated, ratedItem{GoalID: item.GoalID, Score: parsed, Comments: item.Comments})
	}
	return s.store.UpsertManagerRatingBatch(ctx, caller.UserID, ScopeFor(caller, false), validated)
}

func (s *Service) GetRating(ctx context.Context, caller auth.UserContext, goalID string) (Rating, error) {
	if _, err := s.store.GetGoal(ctx, goalID, ScopeFor(caller, false)); err != nil {
		return Rating{}, err
	}
	return s.store.GetRating(ctx, goalID)
}

// CounterpartID names the user to notify about an action the caller took on
// the goal: the manager when the employee acted, the employee otherwise.
func CounterpartID(goal Goal, actorID string) string {
	if goal.EmployeeID == actorID && goal.ManagerID != actorID {
		return goal.ManagerID
	}
	if goal.ManagerID == actorID && goal.EmployeeID != actorID {
		return goal.EmployeeID
	}
	return ""
}
