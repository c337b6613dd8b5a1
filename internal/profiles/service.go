package profiles

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/richxcame/schoolrun/pkg/common"
	"github.com/richxcame/schoolrun/pkg/i18n"
	"github.com/richxcame/schoolrun/pkg/logger"
	"github.com/richxcame/schoolrun/pkg/models"
	"github.com/richxcame/schoolrun/pkg/validation"
	"go.uber.org/zap"
)

// Service manages personal information, children and vehicles
type Service struct {
	repo RepositoryInterface
	now  func() time.Time
}

// NewService creates a new profiles service
func NewService(repo RepositoryInterface) *Service {
	return &Service{repo: repo, now: time.Now}
}

// WithNow overrides the clock
func (s *Service) WithNow(now func() time.Time) *Service {
	s.now = now
	return s
}

// GetProfile returns the caller's profile
func (s *Service) GetProfile(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	p, err := s.repo.GetProfile(ctx, userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NewNotFoundError("profile not found", err)
	}
	if err != nil {
		return nil, common.NewInternalError("failed to get profile", err)
	}
	return p, nil
}

// UpdateProfile validates and stores the caller's personal information
func (s *Service) UpdateProfile(ctx context.Context, actor models.Actor, req *UpdateProfileRequest) (*Profile, error) {
	info := req.PersonalInfo
	info.FirstName = strings.TrimSpace(info.FirstName)
	info.LastName = strings.TrimSpace(info.LastName)
	if verr := validation.ValidatePersonalInfo(info); verr != nil {
		return nil, invalid(verr)
	}

	lang := req.Language
	if lang == "" {
		lang = i18n.DefaultLang
	}
	if !i18n.Supported(lang) {
		return nil, common.NewValidationError("unsupported language")
	}

	now := s.now()
	p := &Profile{
		UserID:       actor.UserID,
		Role:         actor.Role,
		PersonalInfo: info,
		Language:     lang,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.UpsertProfile(ctx, p); err != nil {
		return nil, common.NewInternalError("failed to save profile", err)
	}

	logger.WithContext(ctx).Info("profile updated", zap.String("user_id", actor.UserID.String()))
	return p, nil
}

// Language returns the user's preferred language, falling back to the default
func (s *Service) Language(ctx context.Context, userID uuid.UUID) string {
	lang, err := s.repo.GetLanguage(ctx, userID)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			logger.WithContext(ctx).Warn("failed to read language preference",
				zap.String("user_id", userID.String()),
				zap.Error(err),
			)
		}
		return i18n.DefaultLang
	}
	if !i18n.Supported(lang) {
		return i18n.DefaultLang
	}
	return lang
}

// ========================================
// CHILDREN
// ========================================

// AddChild registers a child for the calling parent
func (s *Service) AddChild(ctx context.Context, actor models.Actor, info validation.ChildInfo) (*Child, error) {
	if !actor.IsParent() {
		return nil, common.NewForbiddenError("only parents can register children")
	}

	now := s.now()
	if verr := validation.ValidateChildInfo(info, now); verr != nil {
		return nil, invalid(verr)
	}

	child := &Child{
		ID:        uuid.New(),
		ParentID:  actor.UserID,
		ChildInfo: info,
		CreatedAt: now,
	}
	if err := s.repo.CreateChild(ctx, child); err != nil {
		return nil, common.NewInternalError("failed to register child", err)
	}

	logger.WithContext(ctx).Info("child registered",
		zap.String("parent_id", actor.UserID.String()),
		zap.String("child_id", child.ID.String()),
	)
	return child, nil
}

// ListChildren returns the calling parent's children
func (s *Service) ListChildren(ctx context.Context, actor models.Actor) ([]Child, error) {
	if !actor.IsParent() {
		return nil, common.NewForbiddenError("only parents have children registered")
	}
	children, err := s.repo.ListChildren(ctx, actor.UserID)
	if err != nil {
		return nil, common.NewInternalError("failed to list children", err)
	}
	return children, nil
}

// ChildBelongsTo reports whether the child is registered to the parent
func (s *Service) ChildBelongsTo(ctx context.Context, parentID, childID uuid.UUID) (bool, error) {
	return s.repo.ChildBelongsTo(ctx, parentID, childID)
}

// ========================================
// VEHICLES
// ========================================

// GetVehicle returns the calling driver's vehicle
func (s *Service) GetVehicle(ctx context.Context, actor models.Actor) (*Vehicle, error) {
	if !actor.IsDriver() {
		return nil, common.NewForbiddenError("only drivers have vehicles")
	}
	v, err := s.repo.GetVehicle(ctx, actor.UserID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NewNotFoundError("vehicle not found", err)
	}
	if err != nil {
		return nil, common.NewInternalError("failed to get vehicle", err)
	}
	return v, nil
}

// SetVehicle validates and stores the calling driver's vehicle
func (s *Service) SetVehicle(ctx context.Context, actor models.Actor, info validation.VehicleInfo) (*Vehicle, error) {
	if !actor.IsDriver() {
		return nil, common.NewForbiddenError("only drivers can register vehicles")
	}

	info, verr := validation.ValidateVehicleInfo(info)
	if verr != nil {
		return nil, invalid(verr)
	}

	v := &Vehicle{DriverID: actor.UserID, VehicleInfo: info, UpdatedAt: s.now()}
	if err := s.repo.UpsertVehicle(ctx, v); err != nil {
		return nil, common.NewInternalError("failed to save vehicle", err)
	}
	return v, nil
}

func invalid(verr *validation.ValidationError) error {
	return common.NewValidationError(verr.Error()).WithCause(verr)
}
