package goals

const (
	StatusDraft     = "DRAFT"
	StatusPending   = "PENDING"
	StatusApproved  = "APPROVED"
	StatusRejected  = "REJECTED"
	StatusCompleted = "COMPLETED"
	StatusModified  = "MODIFIED"
	StatusDeleted   = "DELETED"

	CategoryProfessional = "PROFESSIONAL"
	CategoryTechnical    = "TECHNICAL"
	CategoryLeadership   = "LEADERSHIP"
	CategoryPersonal     = "PERSONAL"
	CategoryTraining     = "TRAINING"

	MinScore = 1
	MaxScore = 5

	MinProgress = 0
	MaxProgress = 100
)

var statuses = map[string]bool{
	StatusDraft:     true,
	StatusPending:   true,
	StatusApproved:  true,
	StatusRejected:  true,
	StatusCompleted: true,
	StatusModified:  true,
	StatusDeleted:   true,
}

var categories = map[string]bool{
	CategoryProfessional: true,
	CategoryTechnical:    true,
	CategoryLeadership:   true,
	CategoryPersonal:     true,
	CategoryTraining:     true,
}

func ValidStatus(status string) bool {
	return statuses[status]
}

func ValidCategory(category string) bool {
	return categories[category]
}
