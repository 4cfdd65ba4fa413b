package dto

// Inquiry interests offered by the public forms.
const (
	InquiryInterestStudy         = "study"
	InquiryInterestHealthcareJob = "healthcare_job"
)

// InquiryRequest is the payload of the public consultation form.
type InquiryRequest struct {
	Name       string `json:"name" validate:"required,min=2,max=128"`
	Email      string `json:"email" validate:"required,email,max=160"`
	Phone      string `json:"phone" validate:"omitempty,min=6,max=32"`
	Interest   string `json:"interest" validate:"required,oneof=study healthcare_job"`
	EntityKind string `json:"entity_kind" validate:"omitempty,oneof=institution program posting"`
	EntityID   string `json:"entity_id" validate:"required_with=EntityKind,omitempty,max=64"`
	Message    string `json:"message" validate:"required,min=10,max=2000"`
	Honeypot   string `json:"website"`
}

// InquiryResponse acknowledges a captured lead.
type InquiryResponse struct {
	ReferenceID string `json:"reference_id"`
	Status      string `json:"status"`
}
