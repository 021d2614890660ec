package reports

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/jung-kurt/gofpdf"

	"perftrack/internal/domain/auth"
	"perftrack/internal/domain/goals"
)

// Summary aggregates the goals a caller can see. Score distributions are
// keyed by the integer score as a string so they serialize as JSON objects.
type Summary struct {
	TotalGoals      int            `json:"totalGoals"`
	ByStatus        map[string]int `json:"byStatus"`
	ByCategory      map[string]int `json:"byCategory"`
	AvgProgress     float64        `json:"avgProgress"`
	RatedByManager  int            `json:"ratedByManager"`
	RatedBySelf     int            `json:"ratedBySelf"`
	AvgManagerScore float64        `json:"avgManagerScore"`
	AvgSelfScore    float64        `json:"avgSelfScore"`
	ManagerScores   map[string]int `json:"managerScores"`
	SelfScores      map[string]int `json:"selfScores"`
	GeneratedAt     time.Time      `json:"generatedAt"`
}

type Service struct {
	store     *Store
	exportDir string
}

func NewService(store *Store, exportDir string) *Service {
	if exportDir == "" {
		exportDir = "storage/reports"
	}
	return &Service{store: store, exportDir: exportDir}
}

func (s *Service) Summary(ctx context.Context, caller auth.UserContext) (Summary, error) {
	stats, err := s.store.ListGoalStats(ctx, goals.ScopeFor(caller, false))
	if err != nil {
		return Summary{}, err
	}
	return BuildSummary(stats), nil
}

// BuildSummary folds raw goal rows into the report aggregates.
func BuildSummary(stats []GoalStat) Summary {
	summary := Summary{
		ByStatus:      map[string]int{},
		ByCategory:    map[string]int{},
		ManagerScores: map[string]int{},
		SelfScores:    map[string]int{},
		GeneratedAt:   time.Now().UTC(),
	}

	var progressSum, managerSum, selfSum int
	for _, stat := range stats {
		summary.TotalGoals++
		summary.ByStatus[stat.Status]++
		summary.ByCategory[stat.Category]++
		progressSum += stat.Progress

		if stat.ManagerScore != nil {
			summary.RatedByManager++
			managerSum += *stat.ManagerScore
			summary.ManagerScores[fmt.Sprint(*stat.ManagerScore)]++
		}
		if stat.SelfScore != nil {
			summary.RatedBySelf++
			selfSum += *stat.SelfScore
			summary.SelfScores[fmt.Sprint(*stat.SelfScore)]++
		}
	}

	if summary.TotalGoals > 0 {
		summary.AvgProgress = round1(float64(progressSum) / float64(summary.TotalGoals))
	}
	if summary.RatedByManager > 0 {
		summary.AvgManagerScore = round1(float64(managerSum) / float64(summary.RatedByManager))
	}
	if summary.RatedBySelf > 0 {
		summary.AvgSelfScore = round1(float64(selfSum) / float64(summary.RatedBySelf))
	}
	return summary
}

func round1(value float64) float64 {
	return float64(int(value*10+0.5)) / 10
}

// ExportPDF renders the caller's summary to a PDF on disk and returns the
// file path.
func (s *Service) ExportPDF(ctx context.Context, caller auth.UserContext) (string, error) {
	summary, err := s.Summary(ctx, caller)
	if err != nil {
		return "", err
	}
	return s.WritePDF(summary, caller.UserID)
}

func (s *Service) WritePDF(summary Summary, ownerID string) (string, error) {
	if err := os.MkdirAll(s.exportDir, 0o755); err != nil {
		return "", err
	}
	filePath := filepath.Join(s.exportDir, fmt.Sprintf("goal-report-%s-%s.pdf", ownerID, summary.GeneratedAt.Format("20060102150405")))

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Goal Performance Report")
	pdf.Ln(12)
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Generated: %s", summary.GeneratedAt.Format("2006-01-02 15:04 MST")))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Total goals: %d", summary.TotalGoals))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Average progress: %.1f%%", summary.AvgProgress))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 13)
	pdf.Cell(0, 8, "Goals by status")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 12)
	for _, key := range sortedKeys(summary.ByStatus) {
		pdf.Cell(0, 7, fmt.Sprintf("  %s: %d", key, summary.ByStatus[key]))
		pdf.Ln(6)
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 13)
	pdf.Cell(0, 8, "Ratings")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 7, fmt.Sprintf("  Manager-rated goals: %d (avg %.1f)", summary.RatedByManager, summary.AvgManagerScore))
	pdf.Ln(6)
	pdf.Cell(0, 7, fmt.Sprintf("  Self-rated goals: %d (avg %.1f)", summary.RatedBySelf, summary.AvgSelfScore))
	pdf.Ln(6)
	for _, key := range sortedKeys(summary.ManagerScores) {
		pdf.Cell(0, 7, fmt.Sprintf("  Manager score %s: %d", key, summary.ManagerScores[key]))
		pdf.Ln(6)
	}

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", err
	}
	return filePath, nil
}

func sortedKeys(counts map[string]int) []string {
	keys := make([]string, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
