package validators

// AccountDetails fills the account record the first time a profile is created.
type AccountDetails struct {
	Name  string `json:"name" validate:"omitempty,max=100"`
	Email string `json:"email" validate:"omitempty,email"`
	Phone string `json:"phone" validate:"omitempty,min=7,max=20"`
}

type CreateRiderProfileRequest struct {
	AccountDetails
	IsPremium bool `json:"is_premium"`
}

type VehicleRequest struct {
	Type          string `json:"type" validate:"required,min=2,max=30"`
	Model         string `json:"model" validate:"required,max=100"`
	Number        string `json:"number" validate:"required,license_plate"`
	LicenseNumber string `json:"license_number" validate:"required,min=4,max=30"`
}

type CreateDriverProfileRequest struct {
	AccountDetails
	Vehicle        VehicleRequest `json:"vehicle" validate:"required"`
	VerificationID string         `json:"verification_id" validate:"omitempty,object_id"`
}

func ValidateCreateRiderProfileRequest(req *CreateRiderProfileRequest) ValidationErrors {
	return ValidateStruct(req)
}

func ValidateCreateDriverProfileRequest(req *CreateDriverProfileRequest) ValidationErrors {
	return ValidateStruct(req)
}
