package request

// CreateDomain is the body for registering a hostname.
type CreateDomain struct {
	Hostname string `json:"hostname" validate:"required,min=1,max=253"`
}
