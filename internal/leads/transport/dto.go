package transport

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs
type BudgetRequest struct {
	Amount      *float64 `json:"amount" validate:"omitempty,gte=0"`
	IsValidated bool     `json:"isValidated"`
	Source      string   `json:"source,omitempty" validate:"max=100"`
}

type CreateLeadRequest struct {
	ContactName         string         `json:"contactName" validate:"required,min=1,max=200"`
	ContactPhone        string         `json:"contactPhone" validate:"required,phone"`
	ContactEmail        string         `json:"contactEmail,omitempty" validate:"omitempty,email"`
	Status              string         `json:"status,omitempty" validate:"omitempty,oneof=New Contacted Qualified Negotiation Booked Lost Unqualified"`
	QualificationStatus string         `json:"qualificationStatus,omitempty" validate:"omitempty,oneof=Pending Qualified Disqualified"`
	AssignedTo          *uuid.UUID     `json:"assignedTo,omitempty"`
	Budget              *BudgetRequest `json:"budget,omitempty"`
	Requirements        map[string]any `json:"requirements,omitempty"`
	Source              string         `json:"source,omitempty" validate:"max=50"`
}

type UpdateLeadRequest struct {
	ContactName         *string        `json:"contactName,omitempty" validate:"omitempty,min=1,max=200"`
	ContactPhone        *string        `json:"contactPhone,omitempty" validate:"omitempty,phone"`
	ContactEmail        *string        `json:"contactEmail,omitempty" validate:"omitempty,email"`
	Status              *string        `json:"status,omitempty" validate:"omitempty,oneof=New Contacted Qualified Negotiation Booked Lost Unqualified"`
	QualificationStatus *string        `json:"qualificationStatus,omitempty" validate:"omitempty,oneof=Pending Qualified Disqualified"`
	Budget              *BudgetRequest `json:"budget,omitempty"`
	Requirements        map[string]any `json:"requirements,omitempty"`
	Source              *string        `json:"source,omitempty" validate:"omitempty,max=50"`
}

type AssignLeadRequest struct {
	AssigneeID *uuid.UUID `json:"assigneeId"`
}

type BulkUpdateRequest struct {
	LeadIDs             []uuid.UUID  `json:"leadIds" validate:"required,min=1,max=500"`
	Status              *string      `json:"status,omitempty" validate:"omitempty,oneof=New Contacted Qualified Negotiation Booked Lost Unqualified"`
	QualificationStatus *string      `json:"qualificationStatus,omitempty" validate:"omitempty,oneof=Pending Qualified Disqualified"`
	AssignedTo          OptionalUUID `json:"assignedTo,omitempty" validate:"-"`
}

type AddInteractionRequest struct {
	Type        string     `json:"type" validate:"required,oneof=call meeting message email note site_visit"`
	Content     string     `json:"content,omitempty" validate:"max=5000"`
	Outcome     string     `json:"outcome,omitempty" validate:"omitempty,oneof=positive neutral negative no_answer"`
	Direction   string     `json:"direction" validate:"required,oneof=inbound outbound"`
	NextAction  string     `json:"nextAction,omitempty" validate:"max=100"`
	ScheduledAt *time.Time `json:"scheduledAt,omitempty" validate:"required_with=NextAction"`
}

type PageRequest struct {
	Page     int `form:"page"`
	PageSize int `form:"pageSize" validate:"omitempty,max=100"`
}

type ListByPriorityRequest struct {
	Min      string `form:"min" validate:"omitempty,oneof=Critical High Medium Low 'Very Low'"`
	Page     int    `form:"page"`
	PageSize int    `form:"pageSize" validate:"omitempty,max=100"`
}

// Response DTOs
type BudgetResponse struct {
	Amount      *float64 `json:"amount"`
	IsValidated bool     `json:"isValidated"`
	Source      string   `json:"source,omitempty"`
}

type EngagementResponse struct {
	TotalInteractions   int        `json:"totalInteractions"`
	ResponseRate        float64    `json:"responseRate"`
	LastInteractionDate *time.Time `json:"lastInteractionDate,omitempty"`
	LastInteractionType string     `json:"lastInteractionType,omitempty"`
}

type FollowUpResponse struct {
	NextFollowUpDate *time.Time `json:"nextFollowUpDate,omitempty"`
	FollowUpType     string     `json:"followUpType,omitempty"`
	Notes            string     `json:"notes,omitempty"`
	IsOverdue        bool       `json:"isOverdue"`
	OverdueDays      int        `json:"overdueDays,omitempty"`
	Urgency          string     `json:"urgency,omitempty"`
}

type LeadResponse struct {
	ID                  uuid.UUID          `json:"id"`
	ContactName         string             `json:"contactName"`
	ContactPhone        string             `json:"contactPhone"`
	ContactEmail        *string            `json:"contactEmail,omitempty"`
	Status              string             `json:"status"`
	QualificationStatus string             `json:"qualificationStatus"`
	AssignedTo          *uuid.UUID         `json:"assignedTo,omitempty"`
	Budget              BudgetResponse     `json:"budget"`
	Requirements        map[string]any     `json:"requirements"`
	Source              string             `json:"source"`
	Score               int                `json:"score"`
	ScoreGrade          string             `json:"scoreGrade"`
	Priority            string             `json:"priority"`
	Confidence          int                `json:"confidence"`
	LastScoreUpdate     *time.Time         `json:"lastScoreUpdate,omitempty"`
	Engagement          EngagementResponse `json:"engagement"`
	FollowUp            FollowUpResponse   `json:"followUp"`
	CreatedAt           time.Time          `json:"createdAt"`
	UpdatedAt           time.Time          `json:"updatedAt"`
}

type LeadListResponse struct {
	Items      []LeadResponse `json:"items"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"pageSize"`
	TotalPages int            `json:"totalPages"`
}

type InteractionResponse struct {
	ID          uuid.UUID  `json:"id"`
	LeadID      uuid.UUID  `json:"leadId"`
	ActorID     uuid.UUID  `json:"actorId"`
	Type        string     `json:"type"`
	Content     string     `json:"content,omitempty"`
	Outcome     string     `json:"outcome,omitempty"`
	Direction   string     `json:"direction"`
	NextAction  string     `json:"nextAction,omitempty"`
	ScheduledAt *time.Time `json:"scheduledAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

type InteractionListResponse struct {
	Items      []InteractionResponse `json:"items"`
	Total      int                   `json:"total"`
	Page       int                   `json:"page"`
	PageSize   int                   `json:"pageSize"`
	TotalPages int                   `json:"totalPages"`
}

type AddInteractionResponse struct {
	Interaction InteractionResponse `json:"interaction"`
	Lead        LeadResponse        `json:"lead"`
}

type ScoreHistoryResponse struct {
	Score      int       `json:"score"`
	Grade      string    `json:"grade"`
	Priority   string    `json:"priority"`
	Confidence int       `json:"confidence"`
	RecordedAt time.Time `json:"recordedAt"`
}

type ScoreBreakdownResponse struct {
	LeadID          uuid.UUID              `json:"leadId"`
	Score           int                    `json:"score"`
	Grade           string                 `json:"grade"`
	Priority        string                 `json:"priority"`
	Confidence      int                    `json:"confidence"`
	Factors         map[string]float64     `json:"factors"`
	LastScoreUpdate *time.Time             `json:"lastScoreUpdate,omitempty"`
	Pending         bool                   `json:"pending"`
	History         []ScoreHistoryResponse `json:"history"`
}

type BulkUpdateResponse struct {
	UpdatedCount int         `json:"updatedCount"`
	LeadIDs      []uuid.UUID `json:"leadIds"`
}
