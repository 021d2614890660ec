package reports

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"perftrack/internal/domain/goals"
)

// GoalStat is one goal row flattened with its rating, as much of it as the
// caller's scope allows them to see.
type GoalStat struct {
	Status       string
	Category     string
	Progress     int
	SelfScore    *int
	ManagerScore *int
}

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) ListGoalStats(ctx context.Context, scope goals.Scope) ([]GoalStat, error) {
	predicate, args := scope.Predicate("g", 1)
	query := `
    SELECT g.status, g.category, g.progress, r.self_score, r.manager_score
    FROM goals g
    LEFT JOIN ratings r ON r.goal_id = g.id
    WHERE ` + predicate

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []GoalStat
	for rows.Next() {
		var stat GoalStat
		if err := rows.Scan(&stat.Status, &stat.Category, &stat.Progress, &stat.SelfScore, &stat.ManagerScore); err != nil {
			return nil, err
		}
		out = append(out, stat)
	}
	return out, rows.Err()
}
