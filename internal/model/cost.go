package model

import "time"

// CostRef names the kind of record a cost is booked against.
type CostRef string

const (
	CostRefProject CostRef = "PROJECT"
	CostRefTask    CostRef = "TASK"
)

// Valid reports whether r is a known reference type.
func (r CostRef) Valid() bool {
	return r == CostRefProject || r == CostRefTask
}

// CostKind classifies a cost entry.
type CostKind string

const (
	CostAdvance        CostKind = "ADVANCE"
	CostDelay          CostKind = "DELAY"
	CostPlannedExpense CostKind = "PLANNED_EXPENSE"
)

// Valid reports whether k is a known cost kind.
func (k CostKind) Valid() bool {
	switch k {
	case CostAdvance, CostDelay, CostPlannedExpense:
		return true
	}
	return false
}

// Cost is a monetary entry recorded against a project or a task.
type Cost struct {
	ID          int64     `json:"id" db:"id"`
	RefType     CostRef   `json:"ref_type" db:"ref_type"`
	RefID       int64     `json:"ref_id" db:"ref_id"`
	Description string    `json:"description" db:"description"`
	Amount      float64   `json:"amount" db:"amount"`
	Kind        CostKind  `json:"kind" db:"kind"`
	RecordedBy  int64     `json:"recorded_by" db:"recorded_by"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// CostBalance sums the entries of one reference by kind.
type CostBalance struct {
	RefType        CostRef `json:"ref_type"`
	RefID          int64   `json:"ref_id"`
	Advances       float64 `json:"advances"`
	Delays         float64 `json:"delays"`
	PlannedExpense float64 `json:"planned_expense"`
	Balance        float64 `json:"balance"`
}

// Total is advances minus delays minus planned expenses. Balance holds
// the same value once computed.
func (b CostBalance) Total() float64 {
	return b.Advances - b.Delays - b.PlannedExpense
}
