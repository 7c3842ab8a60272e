package businessflow

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/amirphl/orochi-outreach/app/dto"
	"github.com/amirphl/orochi-outreach/models"
	"github.com/amirphl/orochi-outreach/repository"
)

type ProfileFlow interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*dto.GetProfileResponse, error)
	UpdateProfile(ctx context.Context, req *dto.UpdateProfileRequest) (*dto.GetProfileResponse, error)
}

type ProfileFlowImpl struct {
	profileRepo repository.ProfileRepository
}

func NewProfileFlow(profileRepo repository.ProfileRepository) ProfileFlow {
	return &ProfileFlowImpl{profileRepo: profileRepo}
}

// GetProfile returns the caller's profile, provisioning it on first access
func (f *ProfileFlowImpl) GetProfile(ctx context.Context, userID uuid.UUID) (*dto.GetProfileResponse, error) {
	profile, err := f.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &dto.GetProfileResponse{Message: "Profile retrieved", Profile: mapProfileToDTO(profile)}, nil
}

func (f *ProfileFlowImpl) UpdateProfile(ctx context.Context, req *dto.UpdateProfileRequest) (*dto.GetProfileResponse, error) {
	if req.Email == nil && req.FullName == nil {
		return nil, NewBusinessError("PROFILE_UPDATE_REQUIRED", "At least one field must be provided for update", ErrProfileUpdateRequired)
	}

	profile, err := f.load(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if req.Email != nil {
		profile.Email = strings.TrimSpace(*req.Email)
	}
	if req.FullName != nil {
		profile.FullName = strings.TrimSpace(*req.FullName)
	}
	if err := f.profileRepo.Update(ctx, profile); err != nil {
		return nil, NewBusinessError("PROFILE_UPDATE_FAILED", "Failed to update profile", err)
	}

	return &dto.GetProfileResponse{Message: "Profile updated", Profile: mapProfileToDTO(profile)}, nil
}

func (f *ProfileFlowImpl) load(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	if err := ensureProfile(ctx, f.profileRepo, userID); err != nil {
		return nil, NewBusinessError("PROFILE_FETCH_FAILED", "Failed to fetch profile", err)
	}
	profile, err := f.profileRepo.ByUserID(ctx, userID)
	if err != nil {
		return nil, NewBusinessError("PROFILE_FETCH_FAILED", "Failed to fetch profile", err)
	}
	if profile == nil {
		return nil, NewBusinessError("PROFILE_FETCH_FAILED", "Failed to fetch profile", ErrProfileNotFound)
	}
	return profile, nil
}

func mapProfileToDTO(p *models.Profile) dto.ProfileDTO {
	return dto.ProfileDTO{
		ID:        p.ID.String(),
		Email:     p.Email,
		FullName:  p.FullName,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}
