package goals

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"perftrack/internal/domain/auth"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

const goalColumns = `
  g.id, g.employee_id, g.manager_id, g.created_by,
  COALESCE(g.updated_by::text, ''), COALESCE(g.deleted_by::text, ''),
  g.title, g.description, g.category, g.due_date, g.status,
  g.progress, COALESCE(g.progress_notes, ''), g.last_progress_update,
  g.approved_at, COALESCE(g.approved_by::text, ''),
  g.rejected_at, COALESCE(g.rejected_by::text, ''),
  COALESCE(g.manager_comments, ''), g.created_at, g.updated_at, g.deleted_at`

const ratingColumns = `
  r.id, r.goal_id,
  COALESCE(r.self_rated_by::text, ''), r.self_score, COALESCE(r.self_comments, ''), r.self_rated_at,
  COALESCE(r.manager_rated_by::text, ''), r.manager_score, COALESCE(r.manager_comments, ''), r.manager_rated_at,
  r.created_at, r.updated_at`

func (s *Store) CreateGoal(ctx context.Context, g Goal) (Goal, error) {
	row := s.DB.QueryRow(ctx, `
    INSERT INTO goals AS g (employee_id, manager_id, created_by, title, description, category, due_date, status)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
    RETURNING `+goalColumns, g.EmployeeID, g.ManagerID, g.CreatedByID, g.Title, g.Description, g.Category, g.DueDate, g.Status)
	return scanGoal(row)
}

func (s *Store) GetGoal(ctx context.Context, goalID string, scope Scope) (Goal, error) {
	pred, args := scope.Predicate("g", 2)
	row := s.DB.QueryRow(ctx, `
    SELECT `+goalColumns+`
    FROM goals g
    WHERE g.id = $1 AND `+pred, append([]any{goalID}, args...)...)
	goal, err := scanGoal(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Goal{}, ErrNotFound
	}
	return goal, err
}

func (s *Store) ListGoals(ctx context.Context, scope Scope, status string) ([]Goal, error) {
	pred, args := scope.Predicate("g", 1)
	query := `
    SELECT ` + goalColumns + `
    FROM goals g
    WHERE ` + pred
	if status != "" {
		query += fmt.Sprintf(" AND g.status = $%d", len(args)+1)
		args = append(args, status)
	}
	query += " ORDER BY g.created_at DESC"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Goal
	for rows.Next() {
		goal, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, goal)
	}
	return out, rows.Err()
}

func (s *Store) UpdateGoalContent(ctx context.Context, goalID string, upd ContentUpdate) (Goal, error) {
	row := s.DB.QueryRow(ctx, `
    UPDATE goals g SET
      title = $2, description = $3, category = $4, due_date = $5,
      status = CASE
        WHEN $6 <> '' THEN $6
        WHEN g.status = 'APPROVED' THEN 'MODIFIED'
        ELSE g.status
      END,
      updated_by = $7, updated_at = now()
    WHERE g.id = $1 AND g.status <> 'DELETED'
    RETURNING `+goalColumns,
		goalID, upd.Title, upd.Description, upd.Category, upd.DueDate, upd.Status, upd.UpdatedByID)
	goal, err := scanGoal(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Goal{}, preconditionf("deleted goals cannot be edited")
	}
	return goal, err
}

// ApproveGoal is a single conditional update: a concurrent decision or delete
// makes the guard fail instead of being overwritten.
func (s *Store) ApproveGoal(ctx context.Context, goalID, approverID string) (Decision, error) {
	row := s.DB.QueryRow(ctx, `
    WITH decided AS (
      UPDATE goals SET status = 'APPROVED', approved_at = now(), approved_by = $2, updated_by = $2, updated_at = now()
      WHERE id = $1 AND status = 'PENDING'
      RETURNING id, employee_id, title, description, due_date, status, created_at, manager_comments
    )
    SELECT d.id, d.employee_id, u.first_name || ' ' || u.last_name, u.email,
           d.title, d.description, d.due_date, d.status, d.created_at, COALESCE(d.manager_comments, '')
    FROM decided d JOIN users u ON u.id = d.employee_id
  `, goalID, approverID)
	decision, err := scanDecision(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Decision{}, preconditionf("goal is no longer PENDING")
	}
	return decision, err
}

func (s *Store) RejectGoal(ctx context.Context, goalID, approverID, comments string) (Decision, error) {
	row := s.DB.QueryRow(ctx, `
    WITH decided AS (
      UPDATE goals SET status = 'REJECTED', rejected_at = now(), rejected_by = $2, manager_comments = $3, updated_by = $2, updated_at = now()
      WHERE id = $1 AND status = 'PENDING'
      RETURNING id, employee_id, title, description, due_date, status, created_at, manager_comments
    )
    SELECT d.id, d.employee_id, u.first_name || ' ' || u.last_name, u.email,
           d.title, d.description, d.due_date, d.status, d.created_at, COALESCE(d.manager_comments, '')
    FROM decided d JOIN users u ON u.id = d.employee_id
  `, goalID, approverID, comments)
	decision, err := scanDecision(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Decision{}, preconditionf("goal is no longer PENDING")
	}
	return decision, err
}

func (s *Store) ResubmitGoal(ctx context.Context, goalID, actorID string) (Goal, error) {
	row := s.DB.QueryRow(ctx, `
    UPDATE goals g SET status = 'PENDING', updated_by = $2, updated_at = now()
    WHERE g.id = $1 AND g.status IN ('REJECTED', 'MODIFIED')
    RETURNING `+goalColumns, goalID, actorID)
	goal, err := scanGoal(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Goal{}, preconditionf("goal must be REJECTED or MODIFIED to resubmit")
	}
	return goal, err
}

func (s *Store) CompleteGoal(ctx context.Context, goalID, actorID string) (Goal, error) {
	row := s.DB.QueryRow(ctx, `
    UPDATE goals g SET status = 'COMPLETED', updated_by = $2, updated_at = now()
    WHERE g.id = $1 AND g.status = 'APPROVED'
    RETURNING `+goalColumns, goalID, actorID)
	goal, err := scanGoal(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Goal{}, preconditionf("goal must be APPROVED to complete")
	}
	return goal, err
}

func (s *Store) UpdateProgress(ctx context.Context, goalID, actorID string, progress int, notes string) (Goal, error) {
	row := s.DB.QueryRow(ctx, `
    UPDATE goals g SET progress = $2, progress_notes = $3, last_progress_update = now(), updated_by = $4, updated_at = now()
    WHERE g.id = $1 AND g.status <> 'DELETED'
    RETURNING `+goalColumns, goalID, progress, notes, actorID)
	goal, err := scanGoal(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Goal{}, preconditionf("deleted goals cannot receive progress updates")
	}
	return goal, err
}

func (s *Store) SoftDeleteGoal(ctx context.Context, goalID, actorID string) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE goals SET status = 'DELETED', deleted_by = $2, deleted_at = now(), updated_at = now()
    WHERE id = $1 AND status <> 'DELETED'
  `, goalID, actorID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return preconditionf("goal is already deleted")
	}
	return nil
}

func (s *Store) PurgeGoal(ctx context.Context, goalID string) error {
	tag, err := s.DB.Exec(ctx, "DELETE FROM goals WHERE id = $1", goalID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) UpsertSelfRating(ctx context.Context, goalID, raterID string, score int, comments string) (Rating, error) {
	row := s.DB.QueryRow(ctx, `
    INSERT INTO ratings AS r (goal_id, self_rated_by, self_score, self_comments, self_rated_at)
    VALUES ($1, $2, $3, $4, now())
    ON CONFLICT (goal_id) DO UPDATE SET
      self_rated_by = EXCLUDED.self_rated_by,
      self_score = EXCLUDED.self_score,
      self_comments = EXCLUDED.self_comments,
      self_rated_at = now(),
      updated_at = now()
    RETURNING `+ratingColumns, goalID, raterID, score, comments)
	rating, err := scanRating(row)
	if isForeignKeyViolation(err) {
		return Rating{}, ErrNotFound
	}
	return rating, err
}

// UpsertManagerRating gates on APPROVED inside the statement itself: the
// insert source row only exists while the goal is approved, so the check and
// the write are one atomic operation.
func (s *Store) UpsertManagerRating(ctx context.Context, goalID, raterID string, score int, comments string) (Rating, error) {
	return upsertManagerRating(ctx, s.DB, goalID, raterID, "", score, comments)
}

// UpsertManagerRatingBatch commits all ratings or none: the first failing
// goal aborts the transaction.
func (s *Store) UpsertManagerRatingBatch(ctx context.Context, managerID string, scope Scope, items []ratedItem) ([]Rating, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ratings := make([]Rating, 0, len(items))
	for _, item := range items {
		rating, err := upsertManagerRating(ctx, tx, item.GoalID, managerID, managerID, item.Score, item.Comments)
		if err != nil {
			if errors.Is(err, ErrPrecondition) {
				// Distinguish a missing goal from a state violation so the
				// caller gets the right failure for the whole batch. The
				// lookup is scoped: a goal the caller cannot see reports
				// NotFound, the same as a goal that does not exist.
				pred, predArgs := scope.Predicate("g", 2)
				var status, goalManager string
				diagErr := tx.QueryRow(ctx,
					"SELECT g.status, g.manager_id::text FROM goals g WHERE g.id = $1 AND "+pred,
					append([]any{item.GoalID}, predArgs...)...).Scan(&status, &goalManager)
				if errors.Is(diagErr, pgx.ErrNoRows) {
					return nil, fmt.Errorf("%w: goal %s", ErrNotFound, item.GoalID)
				}
				if diagErr == nil && goalManager != managerID {
					return nil, fmt.Errorf("%w: goal %s", ErrForbidden, item.GoalID)
				}
			}
			return nil, err
		}
		ratings = append(ratings, rating)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return ratings, nil
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func upsertManagerRating(ctx context.Context, q queryRower, goalID, raterID, requireManager string, score int, comments string) (Rating, error) {
	guard := "g.id = $1 AND g.status = 'APPROVED'"
	args := []any{goalID, raterID, score, comments}
	if requireManager != "" {
		guard += " AND g.manager_id = $5"
		args = append(args, requireManager)
	}
	row := q.QueryRow(ctx, `
    INSERT INTO ratings AS r (goal_id, manager_rated_by, manager_score, manager_comments, manager_rated_at)
    SELECT g.id, $2, $3, $4, now() FROM goals g WHERE `+guard+`
    ON CONFLICT (goal_id) DO UPDATE SET
      manager_rated_by = EXCLUDED.manager_rated_by,
      manager_score = EXCLUDED.manager_score,
      manager_comments = EXCLUDED.manager_comments,
      manager_rated_at = now(),
      updated_at = now()
    RETURNING `+ratingColumns, args...)
	rating, err := scanRating(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Rating{}, preconditionf("goal must be approved before rating")
	}
	return rating, err
}

func (s *Store) GetRating(ctx context.Context, goalID string) (Rating, error) {
	row := s.DB.QueryRow(ctx, `
    SELECT `+ratingColumns+`
    FROM ratings r
    WHERE r.goal_id = $1
  `, goalID)
	rating, err := scanRating(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Rating{}, fmt.Errorf("%w: no rating for goal", ErrNotFound)
	}
	return rating, err
}

func (s *Store) UserRef(ctx context.Context, userID string) (UserRef, error) {
	var ref UserRef
	var role string
	err := s.DB.QueryRow(ctx, `
    SELECT id, first_name || ' ' || last_name, email, COALESCE(manager_id::text, ''), role
    FROM users
    WHERE id = $1
  `, userID).Scan(&ref.ID, &ref.Name, &ref.Email, &ref.ManagerID, &role)
	if errors.Is(err, pgx.ErrNoRows) {
		return UserRef{}, ErrNotFound
	}
	if err != nil {
		return UserRef{}, err
	}
	parsed, err := auth.ParseRole(role)
	if err != nil {
		return UserRef{}, err
	}
	ref.Role = parsed
	return ref, nil
}

func scanGoal(row pgx.Row) (Goal, error) {
	var g Goal
	err := row.Scan(
		&g.ID, &g.EmployeeID, &g.ManagerID, &g.CreatedByID,
		&g.UpdatedByID, &g.DeletedByID,
		&g.Title, &g.Description, &g.Category, &g.DueDate, &g.Status,
		&g.Progress, &g.ProgressNotes, &g.LastProgressUpdate,
		&g.ApprovedAt, &g.ApprovedBy,
		&g.RejectedAt, &g.RejectedBy,
		&g.ManagerComments, &g.CreatedAt, &g.UpdatedAt, &g.DeletedAt,
	)
	return g, err
}

func scanDecision(row pgx.Row) (Decision, error) {
	var d Decision
	err := row.Scan(
		&d.ID, &d.EmployeeID, &d.EmployeeName, &d.EmployeeEmail,
		&d.Title, &d.Description, &d.DueDate, &d.Status, &d.SubmittedDate, &d.Feedback,
	)
	return d, err
}

func scanRating(row pgx.Row) (Rating, error) {
	var r Rating
	err := row.Scan(
		&r.ID, &r.GoalID,
		&r.SelfRatedByID, &r.SelfScore, &r.SelfComments, &r.SelfRatedAt,
		&r.ManagerRatedByID, &r.ManagerScore, &r.ManagerComments, &r.ManagerRatedAt,
		&r.CreatedAt, &r.UpdatedAt,
	)
	return r, err
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
