package models

import "time"

// AidTypes are the kinds of aid a community can request.
var AidTypes = []string{
	"Food",
	"Drinking Water",
	"Medical Care",
	"Rescue",
	"Temporary Shelter",
	"Medicine",
	"Other",
}

type Community struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	Location            string `json:"location"`
	EstimatedPopulation int    `json:"estimated_population"`
	MainContact         string `json:"main_contact"`
}

type RequestStatus string

const (
	RequestStatusPending    RequestStatus = "PENDING"
	RequestStatusInProgress RequestStatus = "IN_PROGRESS"
	RequestStatusFulfilled  RequestStatus = "FULFILLED"
	RequestStatusCancelled  RequestStatus = "CANCELLED"
)

func (s RequestStatus) Valid() bool {
	switch s {
	case RequestStatusPending, RequestStatusInProgress, RequestStatusFulfilled, RequestStatusCancelled:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

type AidRequest struct {
	ID            string        `json:"id"`
	CommunityID   string        `json:"community_id"`
	CommunityName string        `json:"community_name,omitempty"`
	AidType       string        `json:"aid_type"`
	Description   string        `json:"description"`
	Status        RequestStatus `json:"status"`
	Priority      Priority      `json:"priority"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

type Resource struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	Type              string  `json:"type"`
	AvailableQuantity float64 `json:"available_quantity"`
	Unit              string  `json:"unit"`
	StorageLocation   string  `json:"storage_location"`
}

type AllocationStatus string

const (
	AllocationStatusPending   AllocationStatus = "PENDING"
	AllocationStatusDelivered AllocationStatus = "DELIVERED"
)

type Allocation struct {
	ID           string           `json:"id"`
	RequestID    string           `json:"request_id"`
	ResourceID   string           `json:"resource_id"`
	ResourceName string           `json:"resource_name,omitempty"`
	Quantity     float64          `json:"quantity"`
	Unit         string           `json:"unit,omitempty"`
	AllocatedAt  time.Time        `json:"allocated_at"`
	Status       AllocationStatus `json:"status"`
}
