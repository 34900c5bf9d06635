package request

// CreateJob is the body for submitting a job against a domain.
type CreateJob struct {
	Type     string `json:"type" validate:"required"`
	DomainID string `json:"domain_id" validate:"required"`
}
