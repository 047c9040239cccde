package domain

// TimeLayout is the stored form of every timestamp: UTC with fixed-width
// microseconds, so text order is time order.
const TimeLayout = "2006-01-02T15:04:05.000000Z07:00"

const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Statuses lists every status the engine writes.
var Statuses = []string{StatusPending, StatusInProgress, StatusCompleted}

// Priorities lists priorities from lowest to highest.
var Priorities = []string{PriorityLow, PriorityMedium, PriorityHigh}

func ValidStatus(s string) bool {
	return s == StatusPending || s == StatusInProgress || s == StatusCompleted
}

func ValidPriority(p string) bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

type Task struct {
	ID             int64   `json:"id"`
	OwnerID        int64   `json:"owner_id"`
	OwnerName      string  `json:"owner_name,omitempty"`
	OwnerEmail     string  `json:"owner_email,omitempty"`
	Title          string  `json:"title"`
	Description    string  `json:"description"`
	Priority       string  `json:"priority" enum:"low,medium,high"`
	Status         string  `json:"status" enum:"pending,in_progress,completed"`
	Overdue        bool    `json:"overdue"`
	DueDate        string  `json:"due_date" format:"date-time"`
	CreatedAt      string  `json:"created_at" format:"date-time"`
	CompletedAt    *string `json:"completed_at,omitempty" format:"date-time"`
	AssignedByName string  `json:"assigned_by_name,omitempty"`
	AssignedByID   *int64  `json:"assigned_by_id,omitempty"`
	Instructions   string  `json:"instructions,omitempty"`
	Version        int     `json:"version"`
}

// Attachment is a file bound to a task. Data is only populated on download.
type Attachment struct {
	ID         int64  `json:"id"`
	TaskID     int64  `json:"task_id"`
	FileName   string `json:"file_name"`
	MediaType  string `json:"media_type"`
	SizeBytes  int64  `json:"size_bytes"`
	SHA256     string `json:"sha256"`
	UploadedAt string `json:"uploaded_at" format:"date-time"`
	Data       []byte `json:"-"`
}

// Principal is the authenticated actor an operation runs for.
type Principal struct {
	ID   int64  `json:"id"`
	Role string `json:"role" enum:"user,admin"`
}

func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

type Statistics struct {
	Total          int     `json:"total"`
	Pending        int     `json:"pending"`
	InProgress     int     `json:"in_progress"`
	Completed      int     `json:"completed"`
	Overdue        int     `json:"overdue"`
	HighPriority   int     `json:"high_priority"`
	MediumPriority int     `json:"medium_priority"`
	LowPriority    int     `json:"low_priority"`
	CompletionRate float64 `json:"completion_rate"`
}

type Template struct {
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
}

type Category struct {
	Name      string     `json:"name" yaml:"name"`
	Templates []Template `json:"templates" yaml:"templates"`
}

// Person is a row of the users or admins directory.
type Person struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type ActivityEntry struct {
	ID            int64  `json:"id"`
	TS            string `json:"ts" format:"date-time"`
	PrincipalID   int64  `json:"principal_id"`
	PrincipalRole string `json:"principal_role"`
	Action        string `json:"action"`
	EntityKind    string `json:"entity_kind,omitempty"`
	EntityID      string `json:"entity_id,omitempty"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

type APIKey struct {
	ID          string `json:"id"`
	PrincipalID int64  `json:"principal_id"`
	Role        string `json:"role"`
	Name        string `json:"name"`
	KeyHash     string `json:"-"`
	CreatedAt   string `json:"created_at" format:"date-time"`
}
