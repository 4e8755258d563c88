package handlers

import (
	"ridehub/internal/services"
	"ridehub/internal/utils"
	"ridehub/internal/validators"

	"github.com/gin-gonic/gin"
)

type ProfileHandler struct {
	profileService services.ProfileService
}

func NewProfileHandler(profileService services.ProfileService) *ProfileHandler {
	return &ProfileHandler{
		profileService: profileService,
	}
}

func (h *ProfileHandler) CreateRiderProfile(c *gin.Context) {
	var req validators.CreateRiderProfileRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	if errs := validators.ValidateCreateRiderProfileRequest(&req); len(errs) > 0 {
		utils.ValidationErrorResponse(c, errs.Details())
		return
	}

	account, ok := accountFromRequest(c, req.AccountDetails)
	if !ok {
		return
	}

	rider, err := h.profileService.CreateRiderProfile(c.Request.Context(), account, &req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.CreatedResponse(c, "Rider profile created successfully", rider)
}

func (h *ProfileHandler) GetRiderProfile(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}

	rider, err := h.profileService.GetRiderProfile(c.Request.Context(), userID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Rider profile retrieved successfully", rider)
}

func (h *ProfileHandler) CreateDriverProfile(c *gin.Context) {
	var req validators.CreateDriverProfileRequest
	if !bindJSON(c, &req) {
		return
	}
	if errs := validators.ValidateCreateDriverProfileRequest(&req); len(errs) > 0 {
		utils.ValidationErrorResponse(c, errs.Details())
		return
	}

	account, ok := accountFromRequest(c, req.AccountDetails)
	if !ok {
		return
	}

	driver, err := h.profileService.CreateDriverProfile(c.Request.Context(), account, &req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.CreatedResponse(c, "Driver profile created successfully", driver)
}

func (h *ProfileHandler) GetDriverProfile(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}

	driver, err := h.profileService.GetDriverProfile(c.Request.Context(), userID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Driver profile retrieved successfully", driver)
}

func accountFromRequest(c *gin.Context, details validators.AccountDetails) (services.Account, bool) {
	userID, role, ok := currentUser(c)
	if !ok {
		return services.Account{}, false
	}
	return services.Account{
		UserID:   userID,
		UserType: role,
		Name:     details.Name,
		Email:    details.Email,
		Phone:    details.Phone,
	}, true
}
