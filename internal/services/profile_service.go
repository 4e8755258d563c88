package services

import (
	"context"
	"errors"

	"ridehub/internal/config"
	"ridehub/internal/models"
	"ridehub/internal/repositories/interfaces"
	"ridehub/internal/utils"
	"ridehub/internal/validators"
	"ridehub/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Account is the caller identity taken from the access token.
type Account struct {
	UserID   primitive.ObjectID
	UserType models.UserType
	Name     string
	Email    string
	Phone    string
}

type ProfileService interface {
	CreateRiderProfile(ctx context.Context, account Account, req *validators.CreateRiderProfileRequest) (*models.Rider, error)
	GetRiderProfile(ctx context.Context, userID primitive.ObjectID) (*models.Rider, error)
	CreateDriverProfile(ctx context.Context, account Account, req *validators.CreateDriverProfileRequest) (*models.Driver, error)
	GetDriverProfile(ctx context.Context, userID primitive.ObjectID) (*models.Driver, error)
}

type profileService struct {
	userRepo   interfaces.UserRepository
	riderRepo  interfaces.RiderRepository
	driverRepo interfaces.DriverRepository
	config     *config.RideConfig
	logger     *logger.Logger
}

func NewProfileService(
	cfg *config.RideConfig,
	userRepo interfaces.UserRepository,
	riderRepo interfaces.RiderRepository,
	driverRepo interfaces.DriverRepository,
	log *logger.Logger,
) ProfileService {
	return &profileService{
		userRepo:   userRepo,
		riderRepo:  riderRepo,
		driverRepo: driverRepo,
		config:     cfg,
		logger:     log.WithField("component", "profile_service"),
	}
}

func (s *profileService) CreateRiderProfile(ctx context.Context, account Account, req *validators.CreateRiderProfileRequest) (*models.Rider, error) {
	if err := s.ensureUser(ctx, account); err != nil {
		return nil, err
	}

	if _, err := s.riderRepo.GetByUserID(ctx, account.UserID); err == nil {
		return nil, utils.NewBusinessError("rider profile already exists")
	} else if !errors.Is(err, utils.ErrDocumentNotFound) {
		return nil, utils.WrapStoreError("get rider", "rider", err)
	}

	rider := &models.Rider{
		UserID:             account.UserID,
		IsPremium:          req.IsPremium,
		FreeRidesRemaining: s.config.WelcomeFreeRides,
	}
	if err := s.riderRepo.Create(ctx, rider); err != nil {
		return nil, utils.WrapStoreError("create rider", "rider", err)
	}

	s.logger.WithUserID(account.UserID).Info("Rider profile created")
	return rider, nil
}

func (s *profileService) GetRiderProfile(ctx context.Context, userID primitive.ObjectID) (*models.Rider, error) {
	rider, err := s.riderRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, utils.WrapStoreError("get rider", "rider", err)
	}
	return rider, nil
}

func (s *profileService) CreateDriverProfile(ctx context.Context, account Account, req *validators.CreateDriverProfileRequest) (*models.Driver, error) {
	if err := s.ensureUser(ctx, account); err != nil {
		return nil, err
	}

	if _, err := s.driverRepo.GetByUserID(ctx, account.UserID); err == nil {
		return nil, utils.NewBusinessError("driver profile already exists")
	} else if !errors.Is(err, utils.ErrDocumentNotFound) {
		return nil, utils.WrapStoreError("get driver", "driver", err)
	}

	driver := &models.Driver{
		UserID: account.UserID,
		Vehicle: models.Vehicle{
			Type:          req.Vehicle.Type,
			Model:         req.Vehicle.Model,
			Number:        req.Vehicle.Number,
			LicenseNumber: req.Vehicle.LicenseNumber,
		},
		VerificationStatus: models.VerificationStatusPending,
		Availability:       models.DriverUnavailable,
	}
	if req.VerificationID != "" {
		id, err := primitive.ObjectIDFromHex(req.VerificationID)
		if err != nil {
			return nil, utils.NewValidationError("verification_id", "invalid id")
		}
		driver.VerificationID = &id
	}

	if err := s.driverRepo.Create(ctx, driver); err != nil {
		return nil, utils.WrapStoreError("create driver", "driver", err)
	}

	s.logger.WithUserID(account.UserID).Info("Driver profile created")
	return driver, nil
}

func (s *profileService) GetDriverProfile(ctx context.Context, userID primitive.ObjectID) (*models.Driver, error) {
	driver, err := s.driverRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, utils.WrapStoreError("get driver", "driver", err)
	}
	return driver, nil
}

// ensureUser mirrors the account so ride reads can expand to it.
func (s *profileService) ensureUser(ctx context.Context, account Account) error {
	user := &models.User{
		ID:       account.UserID,
		Name:     account.Name,
		Email:    account.Email,
		Phone:    account.Phone,
		UserType: account.UserType,
	}
	if err := s.userRepo.Upsert(ctx, user); err != nil {
		return utils.WrapStoreError("record user", "user", err)
	}
	return nil
}
