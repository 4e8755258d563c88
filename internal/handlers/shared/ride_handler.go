package handlers

import (
	"ridehub/internal/models"
	"ridehub/internal/services"
	"ridehub/internal/utils"
	"ridehub/internal/validators"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RideHandler struct {
	rideService services.RideService
}

func NewRideHandler(rideService services.RideService) *RideHandler {
	return &RideHandler{
		rideService: rideService,
	}
}

// BookRide creates a ride for the calling rider
func (h *RideHandler) BookRide(c *gin.Context) {
	var req validators.BookRideRequest
	if !bindJSON(c, &req) {
		return
	}
	if errs := validators.ValidateBookRideRequest(&req); len(errs) > 0 {
		utils.ValidationErrorResponse(c, errs.Details())
		return
	}

	riderUserID, _, ok := currentUser(c)
	if !ok {
		return
	}

	ride, err := h.rideService.Book(c.Request.Context(), &req, riderUserID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.CreatedResponse(c, "Ride booked successfully", ride)
}

func (h *RideHandler) ListRides(c *gin.Context) {
	rides, err := h.rideService.List(c.Request.Context())
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponseWithMeta(c, "Rides retrieved successfully", rides, &utils.Meta{Count: len(rides)})
}

func (h *RideHandler) GetRide(c *gin.Context) {
	rideID, ok := objectIDParam(c, "id", "ride ID")
	if !ok {
		return
	}

	ride, err := h.rideService.Get(c.Request.Context(), rideID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Ride retrieved successfully", ride)
}

func (h *RideHandler) DeleteRide(c *gin.Context) {
	rideID, ok := objectIDParam(c, "id", "ride ID")
	if !ok {
		return
	}

	if err := h.rideService.Delete(c.Request.Context(), rideID); err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Ride deleted successfully", nil)
}

// ListUserRides lists the rides booked by a rider account
func (h *RideHandler) ListUserRides(c *gin.Context) {
	userID, ok := objectIDParam(c, "id", "user ID")
	if !ok {
		return
	}

	rides, err := h.rideService.ListByUser(c.Request.Context(), userID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponseWithMeta(c, "Rides retrieved successfully", rides, &utils.Meta{Count: len(rides)})
}

// ListDriverRides lists the rides assigned to a driver account
func (h *RideHandler) ListDriverRides(c *gin.Context) {
	driverUserID, ok := objectIDParam(c, "driverUserId", "driver user ID")
	if !ok {
		return
	}

	rides, err := h.rideService.ListByDriver(c.Request.Context(), driverUserID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponseWithMeta(c, "Rides retrieved successfully", rides, &utils.Meta{Count: len(rides)})
}

// ListAvailableRides lists requested rides the calling driver can take
func (h *RideHandler) ListAvailableRides(c *gin.Context) {
	driverUserID, _, ok := currentUser(c)
	if !ok {
		return
	}

	rides, err := h.rideService.ListAvailableForDriver(c.Request.Context(), driverUserID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponseWithMeta(c, "Available rides retrieved successfully", rides, &utils.Meta{Count: len(rides)})
}

func (h *RideHandler) AcceptRide(c *gin.Context) {
	rideID, driverUserID, ok := h.driverAction(c)
	if !ok {
		return
	}

	ride, err := h.rideService.Accept(c.Request.Context(), rideID, driverUserID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Ride accepted successfully", ride)
}

// CancelRide cancels a ride. A driver cancelling an assigned ride is penalized.
func (h *RideHandler) CancelRide(c *gin.Context) {
	rideID, driverUserID, ok := h.driverAction(c)
	if !ok {
		return
	}

	ride, err := h.rideService.Cancel(c.Request.Context(), rideID, driverUserID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Ride cancelled successfully", ride)
}

func (h *RideHandler) CompleteRide(c *gin.Context) {
	rideID, driverUserID, ok := h.driverAction(c)
	if !ok {
		return
	}

	ride, err := h.rideService.Complete(c.Request.Context(), rideID, driverUserID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Ride completed successfully", ride)
}

func (h *RideHandler) IgnoreRide(c *gin.Context) {
	rideID, driverUserID, ok := h.driverAction(c)
	if !ok {
		return
	}

	record, err := h.rideService.Ignore(c.Request.Context(), rideID, driverUserID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.CreatedResponse(c, "Ride ignored successfully", record)
}

// UpdateRideStatus moves an assigned ride to started or reached
func (h *RideHandler) UpdateRideStatus(c *gin.Context) {
	rideID, ok := objectIDParam(c, "id", "ride ID")
	if !ok {
		return
	}

	var req validators.UpdateRideStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	if errs := validators.ValidateUpdateRideStatusRequest(&req); len(errs) > 0 {
		utils.ValidationErrorResponse(c, errs.Details())
		return
	}

	ride, err := h.rideService.UpdateStatus(c.Request.Context(), rideID, models.RideStatus(req.Status))
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Ride status updated successfully", ride)
}

// RequestRide asks a specific driver to take the ride
func (h *RideHandler) RequestRide(c *gin.Context) {
	rideID, ok := objectIDParam(c, "id", "ride ID")
	if !ok {
		return
	}

	var req validators.RequestRideRequest
	if !bindJSON(c, &req) {
		return
	}
	if errs := validators.ValidateRequestRideRequest(&req); len(errs) > 0 {
		utils.ValidationErrorResponse(c, errs.Details())
		return
	}
	driverID, _ := primitive.ObjectIDFromHex(req.DriverID)

	ride, err := h.rideService.RequestRide(c.Request.Context(), rideID, driverID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Ride request sent to driver", ride)
}

// ListIgnoredRides lists the ride requests a driver declined
func (h *RideHandler) ListIgnoredRides(c *gin.Context) {
	driverUserID, ok := objectIDParam(c, "id", "driver user ID")
	if !ok {
		return
	}
	if !ownerOrAdmin(c, driverUserID) {
		return
	}

	records, err := h.rideService.ListIgnoredByDriver(c.Request.Context(), driverUserID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponseWithMeta(c, "Ignored rides retrieved successfully", records, &utils.Meta{Count: len(records)})
}

// CancelAllUserRides cancels every requested ride of a rider account
func (h *RideHandler) CancelAllUserRides(c *gin.Context) {
	userID, ok := objectIDParam(c, "id", "user ID")
	if !ok {
		return
	}
	if !ownerOrAdmin(c, userID) {
		return
	}

	count, err := h.rideService.CancelAllByUser(c.Request.Context(), userID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Requested rides cancelled", gin.H{"cancelled": count})
}

func (h *RideHandler) driverAction(c *gin.Context) (rideID, driverUserID primitive.ObjectID, ok bool) {
	rideID, ok = objectIDParam(c, "id", "ride ID")
	if !ok {
		return
	}

	var req validators.DriverActionRequest
	if !bindOptionalJSON(c, &req) {
		return rideID, driverUserID, false
	}
	if errs := validators.ValidateDriverActionRequest(&req); len(errs) > 0 {
		utils.ValidationErrorResponse(c, errs.Details())
		return rideID, driverUserID, false
	}

	driverUserID, ok = actingDriver(c, req.DriverUserID)
	return
}
