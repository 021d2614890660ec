package goals

import "time"

type Goal struct {
	ID                 string     `json:"id"`
	EmployeeID         string     `json:"employeeId"`
	ManagerID          string     `json:"managerId"`
	CreatedByID        string     `json:"createdById"`
	UpdatedByID        string     `json:"updatedById,omitempty"`
	DeletedByID        string     `json:"deletedById,omitempty"`
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	Category           string     `json:"category"`
	DueDate            time.Time  `json:"dueDate"`
	Status             string     `json:"status"`
	Progress           int        `json:"progress"`
	ProgressNotes      string     `json:"progressNotes,omitempty"`
	LastProgressUpdate *time.Time `json:"lastProgressUpdate,omitempty"`
	ApprovedAt         *time.Time `json:"approvedAt,omitempty"`
	ApprovedBy         string     `json:"approvedBy,omitempty"`
	RejectedAt         *time.Time `json:"rejectedAt,omitempty"`
	RejectedBy         string     `json:"rejectedBy,omitempty"`
	ManagerComments    string     `json:"managerComments,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
	DeletedAt          *time.Time `json:"deletedAt,omitempty"`
}

// Rating holds both perspectives on one goal in a single row. Each slot has
// its own rater, score and comments, so self- and manager-ratings never
// overwrite each other.
type Rating struct {
	ID               string     `json:"id"`
	GoalID           string     `json:"goalId"`
	SelfRatedByID    string     `json:"selfRatedById,omitempty"`
	SelfScore        *int       `json:"selfScore,omitempty"`
	SelfComments     string     `json:"selfComments,omitempty"`
	SelfRatedAt      *time.Time `json:"selfRatedAt,omitempty"`
	ManagerRatedByID string     `json:"managerRatedById,omitempty"`
	ManagerScore     *int       `json:"managerScore,omitempty"`
	ManagerComments  string     `json:"managerComments,omitempty"`
	ManagerRatedAt   *time.Time `json:"managerRatedAt,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// Decision is the response shape for approve/reject operations.
type Decision struct {
	ID            string    `json:"id"`
	EmployeeID    string    `json:"-"`
	EmployeeName  string    `json:"employeeName"`
	EmployeeEmail string    `json:"employeeEmail"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	DueDate       time.Time `json:"dueDate"`
	Status        string    `json:"status"`
	SubmittedDate time.Time `json:"submittedDate"`
	Feedback      string    `json:"feedback,omitempty"`
}

type CreateInput struct {
	Title       string
	Description string
	Category    string
	DueDate     time.Time
}

type ContentUpdate struct {
	Title       string
	Description string
	Category    string
	DueDate     time.Time
	Status      string // empty means derive (MODIFIED when editing an approved goal)
	UpdatedByID string
}

type BatchRatingItem struct {
	GoalID   string  `json:"goalId"`
	Score    float64 `json:"score"`
	Comments string  `json:"comments"`
}
