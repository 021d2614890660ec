package goals

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"perftrack/internal/domain/auth"
)

// fakeStore mirrors the real store's conditional semantics in memory so the
// service's authorization and lifecycle flow can be exercised without a
// database.
type fakeStore struct {
	goals   map[string]*Goal
	ratings map[string]*Rating
	users   map[string]UserRef
	seq     int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		goals:   map[string]*Goal{},
		ratings: map[string]*Rating{},
		users:   map[string]UserRef{},
	}
}

func (f *fakeStore) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-%d", prefix, f.seq)
}

func (f *fakeStore) addUser(id string, role auth.Role, managerID string) {
	f.users[id] = UserRef{
		ID:        id,
		Name:      "User " + id,
		Email:     id + "@example.com",
		ManagerID: managerID,
		Role:      role,
	}
}

func (f *fakeStore) visible(g *Goal, scope Scope) bool {
	if g.Status == StatusDeleted && !scope.IncludeDeleted {
		return false
	}
	switch scope.Role {
	case auth.RoleAdmin:
		return true
	case auth.RoleManager:
		if ref, ok := f.users[g.EmployeeID]; ok && ref.ManagerID == scope.UserID {
			return true
		}
		return g.EmployeeID == scope.UserID || g.ManagerID == scope.UserID
	case auth.RoleEmployee:
		return g.EmployeeID == scope.UserID || g.ManagerID == scope.UserID
	}
	return false
}

func (f *fakeStore) CreateGoal(_ context.Context, g Goal) (Goal, error) {
	g.ID = f.nextID("goal")
	g.CreatedAt = time.Now()
	g.UpdatedAt = g.CreatedAt
	f.goals[g.ID] = &g
	return g, nil
}

func (f *fakeStore) GetGoal(_ context.Context, goalID string, scope Scope) (Goal, error) {
	g, ok := f.goals[goalID]
	if !ok || !f.visible(g, scope) {
		return Goal{}, ErrNotFound
	}
	return *g, nil
}

func (f *fakeStore) ListGoals(_ context.Context, scope Scope, status string) ([]Goal, error) {
	var out []Goal
	for _, g := range f.goals {
		if !f.visible(g, scope) {
			continue
		}
		if status != "" && g.Status != status {
			continue
		}
		out = append(out, *g)
	}
	return out, nil
}

func (f *fakeStore) UpdateGoalContent(_ context.Context, goalID string, upd ContentUpdate) (Goal, error) {
	g, ok := f.goals[goalID]
	if !ok || g.Status == StatusDeleted {
		return Goal{}, preconditionf("deleted goals cannot be edited")
	}
	g.Title, g.Description, g.Category, g.DueDate = upd.Title, upd.Description, upd.Category, upd.DueDate
	switch {
	case upd.Status != "":
		g.Status = upd.Status
	case g.Status == StatusApproved:
		g.Status = StatusModified
	}
	g.UpdatedByID = upd.UpdatedByID
	g.UpdatedAt = time.Now()
	return *g, nil
}

func (f *fakeStore) decide(goalID, approverID, status, comments string) (Decision, error) {
	g, ok := f.goals[goalID]
	if !ok || g.Status != StatusPending {
		return Decision{}, preconditionf("goal is no longer PENDING")
	}
	now := time.Now()
	g.Status = status
	if status == StatusApproved {
		g.ApprovedAt, g.ApprovedBy = &now, approverID
	} else {
		g.RejectedAt, g.RejectedBy = &now, approverID
		g.ManagerComments = comments
	}
	employee := f.users[g.EmployeeID]
	return Decision{
		ID:            g.ID,
		EmployeeID:    g.EmployeeID,
		EmployeeName:  employee.Name,
		EmployeeEmail: employee.Email,
		Title:         g.Title,
		Description:   g.Description,
		DueDate:       g.DueDate,
		Status:        g.Status,
		SubmittedDate: g.CreatedAt,
		Feedback:      g.ManagerComments,
	}, nil
}

func (f *fakeStore) ApproveGoal(_ context.Context, goalID, approverID string) (Decision, error) {
	return f.decide(goalID, approverID, StatusApproved, "")
}

func (f *fakeStore) RejectGoal(_ context.Context, goalID, approverID, comments string) (Decision, error) {
	return f.decide(goalID, approverID, StatusRejected, comments)
}

func (f *fakeStore) ResubmitGoal(_ context.Context, goalID, actorID string) (Goal, error) {
	g, ok := f.goals[goalID]
	if !ok || (g.Status != StatusRejected && g.Status != StatusModified) {
		return Goal{}, preconditionf("goal must be REJECTED or MODIFIED to resubmit")
	}
	g.Status = StatusPending
	g.UpdatedByID = actorID
	return *g, nil
}

func (f *fakeStore) CompleteGoal(_ context.Context, goalID, actorID string) (Goal, error) {
	g, ok := f.goals[goalID]
	if !ok || g.Status != StatusApproved {
		return Goal{}, preconditionf("goal must be APPROVED to complete")
	}
	g.Status = StatusCompleted
	g.UpdatedByID = actorID
	return *g, nil
}

func (f *fakeStore) UpdateProgress(_ context.Context, goalID, actorID string, progress int, notes string) (Goal, error) {
	g, ok := f.goals[goalID]
	if !ok || g.Status == StatusDeleted {
		return Goal{}, preconditionf("deleted goals cannot receive progress updates")
	}
	now := time.Now()
	g.Progress, g.ProgressNotes, g.LastProgressUpdate = progress, notes, &now
	g.UpdatedByID = actorID
	return *g, nil
}

func (f *fakeStore) SoftDeleteGoal(_ context.Context, goalID, actorID string) error {
	g, ok := f.goals[goalID]
	if !ok || g.Status == StatusDeleted {
		return preconditionf("goal is already deleted")
	}
	now := time.Now()
	g.Status = StatusDeleted
	g.DeletedByID = actorID
	g.DeletedAt = &now
	return nil
}

func (f *fakeStore) PurgeGoal(_ context.Context, goalID string) error {
	if _, ok := f.goals[goalID]; !ok {
		return ErrNotFound
	}
	delete(f.goals, goalID)
	delete(f.ratings, goalID)
	return nil
}

func (f *fakeStore) UpsertSelfRating(_ context.Context, goalID, raterID string, score int, comments string) (Rating, error) {
	if _, ok := f.goals[goalID]; !ok {
		return Rating{}, ErrNotFound
	}
	r, ok := f.ratings[goalID]
	if !ok {
		r = &Rating{ID: f.nextID("rating"), GoalID: goalID, CreatedAt: time.Now()}
		f.ratings[goalID] = r
	}
	now := time.Now()
	r.SelfRatedByID, r.SelfScore, r.SelfComments, r.SelfRatedAt = raterID, &score, comments, &now
	r.UpdatedAt = now
	return *r, nil
}

func (f *fakeStore) UpsertManagerRating(_ context.Context, goalID, raterID string, score int, comments string) (Rating, error) {
	g, ok := f.goals[goalID]
	if !ok || g.Status != StatusApproved {
		return Rating{}, preconditionf("goal must be approved before rating")
	}
	r, ok := f.ratings[goalID]
	if !ok {
		r = &Rating{ID: f.nextID("rating"), GoalID: goalID, CreatedAt: time.Now()}
		f.ratings[goalID] = r
	}
	now := time.Now()
	r.ManagerRatedByID, r.ManagerScore, r.ManagerComments, r.ManagerRatedAt = raterID, &score, comments, &now
	r.UpdatedAt = now
	return *r, nil
}

func (f *fakeStore) UpsertManagerRatingBatch(_ context.Context, managerID string, scope Scope, items []ratedItem) ([]Rating, error) {
	// All-or-nothing: stage the writes, commit only if every goal passes.
	staged := map[string]Rating{}
	var out []Rating
	for _, item := range items {
		g, ok := f.goals[item.GoalID]
		if !ok || !f.visible(g, scope) {
			return nil, fmt.Errorf("%w: goal %s", ErrNotFound, item.GoalID)
		}
		if g.ManagerID != managerID {
			return nil, fmt.Errorf("%w: goal %s", ErrForbidden, item.GoalID)
		}
		if g.Status != StatusApproved {
			return nil, preconditionf("goal must be approved before rating")
		}
		r, ok := f.ratings[item.GoalID]
		var next Rating
		if ok {
			next = *r
		} else {
			next = Rating{ID: f.nextID("rating"), GoalID: item.GoalID, CreatedAt: time.Now()}
		}
		score := item.Score
		now := time.Now()
		next.ManagerRatedByID, next.ManagerScore, next.ManagerComments, next.ManagerRatedAt = managerID, &score, item.Comments, &now
		staged[item.GoalID] = next
		out = append(out, next)
	}
	for goalID, r := range staged {
		committed := r
		f.ratings[goalID] = &committed
	}
	return out, nil
}

func (f *fakeStore) GetRating(_ context.Context, goalID string) (Rating, error) {
	r, ok := f.ratings[goalID]
	if !ok {
		return Rating{}, fmt.Errorf("%w: no rating for goal", ErrNotFound)
	}
	return *r, nil
}

func (f *fakeStore) UserRef(_ context.Context, userID string) (UserRef, error) {
	ref, ok := f.users[userID]
	if !ok {
		return UserRef{}, ErrNotFound
	}
	return ref, nil
}

func setup(t *testing.T) (*Service, *fakeStore, auth.UserContext, auth.UserContext) {
	t.Helper()
	store := newFakeStore()
	store.addUser("m1", auth.RoleManager, "")
	store.addUser("e1", auth.RoleEmployee, "m1")
	service := NewService(store)
	employee := auth.UserContext{UserID: "e1", Role: auth.RoleEmployee, ManagerID: "m1"}
	manager := auth.UserContext{UserID: "m1", Role: auth.RoleManager}
	return service, store, employee, manager
}

func createGoal(t *testing.T, service *Service, caller auth.UserContext) Goal {
	t.Helper()
	goal, err := service.Create(context.Background(), caller, CreateInput{
		Title:    "Complete Project A",
		Category: CategoryProfessional,
		DueDate:  time.Now().AddDate(0, 0, 30),
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	return goal
}

func TestCreateGoalPendingWithAssignedManager(t *testing.T) {
	service, _, employee, _ := setup(t)
	goal := createGoal(t, service, employee)

	if goal.Status != StatusPending {
		t.Fatalf("expected PENDING, got %s", goal.Status)
	}
	if goal.EmployeeID != "e1" || goal.ManagerID != "m1" {
		t.Fatalf("unexpected ownership: %+v", goal)
	}
}

func TestCreateGoalWithoutManagerFails(t *testing.T) {
	service, store, _, _ := setup(t)
	store.addUser("orphan", auth.RoleEmployee, "")
	_, err := service.Create(context.Background(), auth.UserContext{UserID: "orphan", Role: auth.RoleEmployee}, CreateInput{
		Title:    "Unassigned",
		Category: CategoryPersonal,
		DueDate:  time.Now().AddDate(0, 1, 0),
	})
	if !errors.Is(err, ErrPrecondition) {
		t.Fatalf("expected precondition error, got %v", err)
	}
}

func TestCreateSelfGoalForManager(t *testing.T) {
	service, _, _, manager := setup(t)
	goal := createGoal(t, service, manager)
	if goal.EmployeeID != "m1" || goal.ManagerID != "m1" {
		t.Fatalf("expected self-goal with coinciding ids, got %+v", goal)
	}
}

func TestCreateValidation(t *testing.T) {
	service, _, employee, _ := setup(t)
	ctx := context.Background()

	if _, err := service.Create(ctx, employee, CreateInput{Category: CategoryTraining, DueDate: time.Now()}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected invalid argument for missing title, got %v", err)
	}
	if _, err := service.Create(ctx, employee, CreateInput{Title: "t", Category: CategoryTraining}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected invalid argument for missing due date, got %v", err)
	}
	if _, err := service.Create(ctx, employee, CreateInput{Title: "t", Category: "OTHER", DueDate: time.Now()}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected invalid argument for bad category, got %v", err)
	}
}

func TestApproveOnceThenConflict(t *testing.T) {
	service, store, employee, manager := setup(t)
	goal := createGoal(t, service, employee)
	ctx := context.Background()

	decision, err := service.Approve(ctx, manager, goal.ID)
	if err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if decision.Status != StatusApproved {
		t.Fatalf("expected APPROVED, got %s", decision.Status)
	}
	if store.goals[goal.ID].ApprovedBy != "m1" || store.goals[goal.ID].ApprovedAt == nil {
		t.Fatal("expected approval audit fields to be set")
	}

	if _, err := service.Approve(ctx, manager, goal.ID); !errors.Is(err, ErrPrecondition) {
		t.Fatalf("expected precondition error on second approve, got %v", err)
	}
	if store.goals[goal.ID].Status != StatusApproved {
		t.Fatalf("state changed after failed re-approve: %s", store.goals[goal.ID].Status)
	}
}

func TestApproveByNonManagerForbidden(t *testing.T) {
	service, _, employee, _ := setup(t)
	goal := createGoal(t, service, employee)
	if _, err := service.Approve(context.Background(), employee, goal.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden for the employee approving, got %v", err)
	}
}

func TestRejectRequiresComments(t *testing.T) {
	service, _, employee, manager := setup(t)
	goal := createGoal(t, service, employee)
	ctx := context.Background()

	if _, err := service.Reject(ctx, manager, goal.ID, "  "); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected invalid argument for blank comments, got %v", err)
	}

	decision, err := service.Reject(ctx, manager, goal.ID, "needs a measurable outcome")
	if err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	if decision.Status != StatusRejected || decision.Feedback != "needs a measurable outcome" {
		t.Fatalf("unexpected decision: %+v", decision)
	}

	if _, err := service.Reject(ctx, manager, goal.ID, "again"); !errors.Is(err, ErrPrecondition) {
		t.Fatalf("expected precondition error on second reject, got %v", err)
	}
}

func TestResubmitAfterRejection(t *testing.T) {
	service, _, employee, manager := setup(t)
	goal := createGoal(t, service, employee)
	ctx := context.Background()

	if _, err := service.Reject(ctx, manager, goal.ID, "too vague"); err != nil {
		t.Fatalf("reject failed: %v", err)
	}

	if _, err := service.Resubmit(ctx, manager, goal.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden for manager resubmitting, got %v", err)
	}

	updated, err := service.Resubmit(ctx, employee, goal.ID)
	if err != nil {
		t.Fatalf("resubmit failed: %v", err)
	}
	if updated.Status != StatusPending {
		t.Fatalf("expected PENDING after resubmit, got %s", updated.Status)
	}
	if updated.RejectedBy != "m1" {
		t.Fatal("expected prior rejection audit to be preserved")
	}
}

func TestSelfRatingIdempotentUpsert(t *testing.T) {
	service, store, employee, _ := setup(t)
	goal := createGoal(t, service, employee)
	ctx := context.Background()

	first, _, err := service.SubmitSelfRating(ctx, employee, goal.ID, 3, "early days")
	if err != nil {
		t.Fatalf("first self-rating failed: %v", err)
	}
	second, _, err := service.SubmitSelfRating(ctx, employee, goal.ID, 5, "finished strong")
	if err != nil {
		t.Fatalf("second self-rating failed: %v", err)
	}

	if first.ID != second.ID {
		t.Fatal("expected the same rating row to be updated in place")
	}
	if len(store.ratings) != 1 {
		t.Fatalf("expected exactly one rating row, got %d", len(store.ratings))
	}
	if *second.SelfScore != 5 || second.SelfComments != "finished strong" {
		t.Fatalf("expected second submission to win: %+v", second)
	}
}

func TestSelfRatingAllowedWhilePending(t *testing.T) {
	service, _, employee, _ := setup(t)
	goal := createGoal(t, service, employee)
	if _, _, err := service.SubmitSelfRating(context.Background(), employee, goal.ID, 4, ""); err != nil {
		t.Fatalf("self-rating must not be gated on goal status: %v", err)
	}
}

func TestManagerRatingGatedOnApproval(t *testing.T) {
	service, store, employee, manager := setup(t)
	goal := createGoal(t, service, employee)
	ctx := context.Background()

	if _, _, err := service.SubmitManagerRating(ctx, manager, goal.ID, 4, ""); !errors.Is(err, ErrPrecondition) {
		t.Fatalf("expected precondition error rating a pending goal, got %v", err)
	}
	if len(store.ratings) != 0 {
		t.Fatal("no rating row may be created when the gate fails")
	}

	if _, err := service.Approve(ctx, manager, goal.ID); err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	rating, _, err := service.SubmitManagerRating(ctx, manager, goal.ID, 4, "solid delivery")
	if err != nil {
		t.Fatalf("manager rating failed: %v", err)
	}
	if rating.ManagerRatedByID != "m1" || *rating.ManagerScore != 4 {
		t.Fatalf("unexpected manager rating: %+v", rating)
	}
}

func TestBothPerspectivesShareOneRow(t *testing.T) {
	service, store, employee, manager := setup(t)
	goal := createGoal(t, service, employee)
	ctx := context.Background()

	if _, err := service.Approve(ctx, manager, goal.ID); err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if _, _, err := service.SubmitManagerRating(ctx, manager, goal.ID, 4, ""); err != nil {
		t.Fatalf("manager rating failed: %v", err)
	}
	rating, _, err := service.SubmitSelfRating(ctx, employee, goal.ID, 5, "")
	if err != nil {
		t.Fatalf("self rating failed: %v", err)
	}

	if len(store.ratings) != 1 {
		t.Fatalf("expected one rating row carrying both perspectives, got %d", len(store.ratings))
	}
	if *rating.ManagerScore != 4 || *rating.SelfScore != 5 {
		t.Fatalf("expected independent scores 4 and 5, got %+v", rating)
	}
	if rating.SelfRatedByID != "e1" || rating.ManagerRatedByID != "m1" {
		t.Fatalf("unexpected rater ids: %+v", rating)
	}
}

func TestScoreValidationBeforeStore(t *testing.T) {
	service, store, employee, _ := setup(t)
	goal := createGoal(t, service, employee)
	ctx := context.Background()

	for _, invalid := range []float64{0, 6, -1, 3.5} {
		if _, _, err := service.SubmitSelfRating(ctx, employee, goal.ID, invalid, ""); !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("expected invalid argument for score %v, got %v", invalid, err)
		}
	}
	if len(store.ratings) != 0 {
		t.Fatal("invalid scores must never reach the store")
	}
}

func TestProgressValidationAndOwnership(t *testing.T) {
	service, store, employee, manager := setup(t)
	goal := createGoal(t, service, employee)
	ctx := context.Background()

	if _, err := service.UpdateProgress(ctx, employee, goal.ID, 150, ""); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected invalid argument for progress 150, got %v", err)
	}
	if store.goals[goal.ID].Progress != 0 {
		t.Fatal("progress must be unchanged after rejected update")
	}

	if _, err := service.UpdateProgress(ctx, manager, goal.ID, 10, ""); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden for non-owner progress update, got %v", err)
	}

	updated, err := service.UpdateProgress(ctx, employee, goal.ID, 60, "on track")
	if err != nil {
		t.Fatalf("progress update failed: %v", err)
	}
	if updated.Progress != 60 || updated.LastProgressUpdate == nil {
		t.Fatalf("unexpected progress state: %+v", updated)
	}
}

func TestVisibilityConflatesToNotFound(t *testing.T) {
	service, store, employee, _ := setup(t)
	store.addUser("m2", auth.RoleManager, "")
	store.addUser("e2", auth.RoleEmployee, "m2")
	outsider := auth.UserContext{UserID: "e2", Role: auth.RoleEmployee, ManagerID: "m2"}
	other := createGoal(t, service, outsider)

	if _, err := service.Get(context.Background(), employee, other.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("out-of-scope goal must look missing, got %v", err)
	}
	if _, err := service.UpdateProgress(context.Background(), employee, other.ID, 10, ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("out-of-scope mutation must look missing, got %v", err)
	}
}

func TestManagerListSeesUnionNotStrangers(t *testing.T) {
	service, store, employee, manager := setup(t)
	ctx := context.Background()

	mine := createGoal(t, service, manager)
	report := createGoal(t, service, employee)

	store.addUser("m2", auth.RoleManager, "")
	store.addUser("e2", auth.RoleEmployee, "m2")
	stranger := createGoal(t, service, auth.UserContext{UserID: "e2", Role: auth.RoleEmployee, ManagerID: "m2"})

	goals, err := service.List(ctx, manager, "", false)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}

	seen := map[string]bool{}
	for _, g := range goals {
		seen[g.ID] = true
	}
	if !seen[mine.ID] || !seen[report.ID] {
		t.Fatalf("manager must see own goals and reports' goals, saw %v", seen)
	}
	if seen[stranger.ID] {
		t.Fatal("manager must never see an unrelated employee's goal")
	}
}

func TestSoftDeleteExcludedFromDefaultQueries(t *testing.T) {
	service, store, employee, _ := setup(t)
	goal := createGoal(t, service, employee)
	ctx := context.Background()

	if _, err := service.Delete(ctx, employee, goal.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if store.goals[goal.ID].Status != StatusDeleted || store.goals[goal.ID].DeletedByID != "e1" {
		t.Fatalf("expected soft delete with audit fields, got %+v", store.goals[goal.ID])
	}

	if _, err := service.Get(ctx, employee, goal.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted goal must be hidden, got %v", err)
	}

	admin := auth.UserContext{UserID: "root", Role: auth.RoleAdmin}
	goals, err := service.List(ctx, admin, "", true)
	if err != nil {
		t.Fatalf("admin list failed: %v", err)
	}
	found := false
	for _, g := range goals {
		if g.ID == goal.ID {
			found = true
		}
	}
	if !found {
		t.Fatal("admin with includeDeleted must still see the goal")
	}
}

func TestPurgeAdminOnly(t *testing.T) {
	service, store, employee, manager := setup(t)
	goal := createGoal(t, service, employee)
	ctx := context.Background()

	if err := service.Purge(ctx, manager, goal.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden for manager purge, got %v", err)
	}

	admin := auth.UserContext{UserID: "root", Role: auth.RoleAdmin}
	if err := service.Purge(ctx, admin, goal.ID); err != nil {
		t.Fatalf("admin purge failed: %v", err)
	}
	if _, ok := store.goals[goal.ID]; ok {
		t.Fatal("expected goal row to be gone after purge")
	}
}

func TestBatchRatingAllOrNothing(t *testing.T) {
	service, store, employee, manager := setup(t)
	ctx := context.Background()

	first := createGoal(t, service, employee)
	second := createGoal(t, service, employee)
	for _, id := range []string{first.ID, second.ID} {
		if _, err := service.Approve(ctx, manager, id); err != nil {
			t.Fatalf("approve failed: %v", err)
		}
	}

	_, err := service.SubmitManagerRatingBatch(ctx, manager, []BatchRatingItem{
		{GoalID: first.ID, Score: 4},
		{GoalID: "missing", Score: 5},
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found for the bad goal, got %v", err)
	}
	if len(store.ratings) != 0 {
		t.Fatal("a failing batch must not leave partial ratings behind")
	}

	ratings, err := service.SubmitManagerRatingBatch(ctx, manager, []BatchRatingItem{
		{GoalID: first.ID, Score: 4},
		{GoalID: second.ID, Score: 5},
	})
	if err != nil {
		t.Fatalf("batch failed: %v", err)
	}
	if len(ratings) != 2 || len(store.ratings) != 2 {
		t.Fatalf("expected two committed ratings, got %d", len(store.ratings))
	}
}

func TestBatchRatingValidatesUpFront(t *testing.T) {
	service, _, employee, manager := setup(t)
	ctx := context.Background()
	goal := createGoal(t, service, employee)
	if _, err := service.Approve(ctx, manager, goal.ID); err != nil {
		t.Fatalf("approve failed: %v", err)
	}

	if _, err := service.SubmitManagerRatingBatch(ctx, manager, nil); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected invalid argument for empty batch, got %v", err)
	}
	if _, err := service.SubmitManagerRatingBatch(ctx, manager, []BatchRatingItem{{GoalID: goal.ID, Score: 3.5}}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected invalid argument for fractional score, got %v", err)
	}
	if _, err := service.SubmitManagerRatingBatch(ctx, employee, []BatchRatingItem{{GoalID: goal.ID, Score: 3}}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden for employee batch, got %v", err)
	}
}

func TestBatchRatingOutOfScopeGoalLooksMissing(t *testing.T) {
	service, store, employee, manager := setup(t)
	ctx := context.Background()

	mine := createGoal(t, service, employee)
	if _, err := service.Approve(ctx, manager, mine.ID); err != nil {
		t.Fatalf("approve failed: %v", err)
	}

	store.addUser("m2", auth.RoleManager, "")
	store.addUser("e2", auth.RoleEmployee, "m2")
	foreign := createGoal(t, service, auth.UserContext{UserID: "e2", Role: auth.RoleEmployee, ManagerID: "m2"})

	// The batch path must report the same NotFound the single-goal path does
	// for a goal outside the caller's scope. Forbidden would confirm the id
	// exists.
	_, err := service.SubmitManagerRatingBatch(ctx, manager, []BatchRatingItem{
		{GoalID: mine.ID, Score: 4},
		{GoalID: foreign.ID, Score: 5},
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found for an out-of-scope goal, got %v", err)
	}
	if errors.Is(err, ErrForbidden) {
		t.Fatalf("out-of-scope goal must not surface as forbidden: %v", err)
	}
	if _, _, singleErr := service.SubmitManagerRating(ctx, manager, foreign.ID, 5, ""); !errors.Is(singleErr, ErrNotFound) {
		t.Fatalf("single path disagreed: %v", singleErr)
	}
	if len(store.ratings) != 0 {
		t.Fatal("a failing batch must not leave partial ratings behind")
	}
}

func TestEditApprovedGoalFlagsModified(t *testing.T) {
	service, _, employee, manager := setup(t)
	goal := createGoal(t, service, employee)
	ctx := context.Background()

	if _, err := service.Approve(ctx, manager, goal.ID); err != nil {
		t.Fatalf("approve failed: %v", err)
	}

	updated, err := service.Update(ctx, manager, goal.ID, ContentUpdate{
		Title:       "Complete Project A (rescoped)",
		Description: "narrower scope",
		Category:    CategoryProfessional,
		DueDate:     goal.DueDate,
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Status != StatusModified {
		t.Fatalf("expected MODIFIED after editing an approved goal, got %s", updated.Status)
	}

	if _, err := service.Update(ctx, employee, goal.ID, ContentUpdate{
		Title: "x", Category: CategoryProfessional, DueDate: goal.DueDate,
	}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden for employee content edit, got %v", err)
	}
}

func TestCounterpart(t *testing.T) {
	goal := Goal{EmployeeID: "e1", ManagerID: "m1"}
	if CounterpartID(goal, "e1") != "m1" || CounterpartID(goal, "m1") != "e1" {
		t.Fatal("counterpart must be the other party")
	}
	selfGoal := Goal{EmployeeID: "m1", ManagerID: "m1"}
	if CounterpartID(selfGoal, "m1") != "" {
		t.Fatal("self-goals have no counterpart to notify")
	}
}
