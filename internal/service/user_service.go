package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/mentor-portal-api/internal/models"
	appErrors "github.com/noah-isme/mentor-portal-api/pkg/errors"
)

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	ListStudentsByMentor(ctx context.Context, mentorID string) ([]models.StudentRef, error)
	ListApprovedMentors(ctx context.Context) ([]models.StudentRef, error)
	Stats(ctx context.Context) (*models.UserStats, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	UpdateStatus(ctx context.Context, id string, status models.UserStatus) error
	UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error
	RevokeUserRefreshTokens(ctx context.Context, userID string) error
	Delete(ctx context.Context, id string) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// UpdateUserRequest is the admin edit of a user. MentorID nil leaves the
// assignment untouched, an empty string clears it.
type UpdateUserRequest struct {
	DisplayName string  `json:"display_name" validate:"required,max=120"`
	Address     string  `json:"address" validate:"omitempty,max=255"`
	PhoneNumber string  `json:"phone_number" validate:"omitempty,max=32"`
	MentorID    *string `json:"mentor_id"`
}

// UpdateProfileRequest is a user's edit of their own profile.
type UpdateProfileRequest struct {
	DisplayName string `json:"display_name" validate:"required,max=120"`
	Address     string `json:"address" validate:"omitempty,max=255"`
	PhoneNumber string `json:"phone_number" validate:"omitempty,max=32"`
}

// UserService handles the user directory and its administration.
type UserService struct {
	repo      userRepository
	validator *validator.Validate
	logger    *zap.Logger
	cache     *CacheService
}

// NewUserService creates an instance of UserService. cache may be nil.
func NewUserService(repo userRepository, validate *validator.Validate, logger *zap.Logger, cache *CacheService) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{repo: repo, validator: validate, logger: logger, cache: cache}
}

// List returns paginated users and pagination metadata.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	return users, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Get returns a user by ID.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

// ListStudentsByMentor returns the students assigned to mentorID.
func (s *UserService) ListStudentsByMentor(ctx context.Context, mentorID string) ([]models.StudentRef, error) {
	students, err := s.repo.ListStudentsByMentor(ctx, mentorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	if students == nil {
		students = []models.StudentRef{}
	}
	return students, nil
}

// ListMentors returns approved mentors available for assignment.
func (s *UserService) ListMentors(ctx context.Context) ([]models.StudentRef, error) {
	mentors, err := s.repo.ListApprovedMentors(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list mentors")
	}
	if mentors == nil {
		mentors = []models.StudentRef{}
	}
	return mentors, nil
}

// Stats counts students, mentors and pending accounts.
func (s *UserService) Stats(ctx context.Context) (*models.UserStats, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user stats")
	}
	return stats, nil
}

// Update edits a user's profile and, for students, their mentor.
func (s *UserService) Update(ctx context.Context, id string, req UpdateUserRequest, actorID string, meta models.LoginRequest) (*models.User, error) {
	req.DisplayName = strings.TrimSpace(req.DisplayName)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid update payload")
	}

	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	oldPayload, _ := json.Marshal(map[string]interface{}{"display_name": user.DisplayName, "mentor_id": user.MentorID})
	previousMentor := user.MentorID

	user.DisplayName = req.DisplayName
	user.Address = strings.TrimSpace(req.Address)
	user.PhoneNumber = strings.TrimSpace(req.PhoneNumber)

	if req.MentorID != nil {
		mentorID := strings.TrimSpace(*req.MentorID)
		switch {
		case mentorID == "":
			user.MentorID = nil
		case user.Role != models.RoleStudent:
			return nil, appErrors.Clone(appErrors.ErrValidation, "only students can be assigned a mentor")
		default:
			if err := s.ensureApprovedMentor(ctx, mentorID); err != nil {
				return nil, err
			}
			user.MentorID = &mentorID
		}
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update user")
	}

	if !sameMentor(previousMentor, user.MentorID) {
		s.invalidateMentor(ctx, previousMentor)
		s.invalidateMentor(ctx, user.MentorID)
	}

	newPayload, _ := json.Marshal(map[string]interface{}{"display_name": user.DisplayName, "mentor_id": user.MentorID})
	s.audit(ctx, &models.AuditLog{
		UserID:     &actorID,
		Action:     models.AuditActionUserUpdate,
		Resource:   models.AuditResourceUser,
		ResourceID: &user.ID,
		OldValues:  oldPayload,
		NewValues:  newPayload,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	})

	return user, nil
}

// Approve moves a pending account to approved.
func (s *UserService) Approve(ctx context.Context, id string, actorID string, meta models.LoginRequest) (*models.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Status == models.StatusApproved {
		return user, nil
	}

	if err := s.repo.UpdateStatus(ctx, id, models.StatusApproved); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve user")
	}
	user.Status = models.StatusApproved

	s.audit(ctx, &models.AuditLog{
		UserID:     &actorID,
		Action:     models.AuditActionUserApprove,
		Resource:   models.AuditResourceUser,
		ResourceID: &user.ID,
		OldValues:  []byte(`{"status":"pending_approval"}`),
		NewValues:  []byte(`{"status":"approved"}`),
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	})

	return user, nil
}

// Delete removes a user permanently.
func (s *UserService) Delete(ctx context.Context, id string, actorID string, meta models.LoginRequest) error {
	if id == actorID {
		return appErrors.Clone(appErrors.ErrForbidden, "administrators cannot delete their own account")
	}
	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete user")
	}

	switch user.Role {
	case models.RoleStudent:
		s.invalidateMentor(ctx, user.MentorID)
	case models.RoleMentor:
		s.invalidateMentor(ctx, &user.ID)
	}

	oldPayload, _ := json.Marshal(map[string]interface{}{"email": user.Email, "role": user.Role})
	s.audit(ctx, &models.AuditLog{
		UserID:     &actorID,
		Action:     models.AuditActionUserDelete,
		Resource:   models.AuditResourceUser,
		ResourceID: &user.ID,
		OldValues:  oldPayload,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	})

	return nil
}

// ResetPassword sets a new password for a user and signs them out everywhere.
func (s *UserService) ResetPassword(ctx context.Context, id string, req models.AdminResetPasswordRequest, actorID string, meta models.LoginRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reset password payload")
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	if err := s.repo.UpdatePassword(ctx, id, string(hash), time.Now().UTC()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update password")
	}
	if err := s.repo.RevokeUserRefreshTokens(ctx, id); err != nil {
		s.logger.Warn("failed to revoke refresh tokens after password reset", zap.String("user_id", id), zap.Error(err))
	}

	s.audit(ctx, &models.AuditLog{
		UserID:     &actorID,
		Action:     models.AuditActionPasswordReset,
		Resource:   models.AuditResourceUser,
		ResourceID: &id,
		NewValues:  []byte(`{"status":"reset"}`),
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	})
	return nil
}

// UpdateProfile lets a user edit their own contact details.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, req UpdateProfileRequest, meta models.LoginRequest) (*models.User, error) {
	req.DisplayName = strings.TrimSpace(req.DisplayName)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid profile payload")
	}
	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	user.DisplayName = req.DisplayName
	user.Address = strings.TrimSpace(req.Address)
	user.PhoneNumber = strings.TrimSpace(req.PhoneNumber)
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update profile")
	}
	if user.Role == models.RoleStudent {
		s.invalidateMentor(ctx, user.MentorID)
	}

	s.audit(ctx, &models.AuditLog{
		UserID:     &userID,
		Action:     models.AuditActionProfileUpdate,
		Resource:   models.AuditResourceUser,
		ResourceID: &userID,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	})
	return user, nil
}

// EnsureAdmin creates an approved administrator when no user holds email.
func (s *UserService) EnsureAdmin(ctx context.Context, email, password, displayName string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil
	}
	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up admin")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	if displayName == "" {
		displayName = "Administrator"
	}
	admin := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		DisplayName:  displayName,
		Role:         models.RoleAdmin,
		Status:       models.StatusApproved,
	}
	if err := s.repo.Create(ctx, admin); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create admin")
	}
	s.logger.Info("bootstrap administrator created", zap.String("email", email))
	return nil
}

func (s *UserService) ensureApprovedMentor(ctx context.Context, mentorID string) error {
	mentor, err := s.repo.FindByID(ctx, mentorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrValidation, "mentor not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load mentor")
	}
	if mentor.Role != models.RoleMentor || mentor.Status != models.StatusApproved {
		return appErrors.Clone(appErrors.ErrValidation, "assigned user must be an approved mentor")
	}
	return nil
}

func (s *UserService) invalidateMentor(ctx context.Context, mentorID *string) {
	if mentorID == nil || *mentorID == "" || !s.cache.Enabled() {
		return
	}
	_ = s.cache.Invalidate(ctx, overviewCachePattern(*mentorID))
}

func (s *UserService) audit(ctx context.Context, log *models.AuditLog) {
	if err := s.repo.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to record audit log", zap.String("action", log.Action), zap.Error(err))
	}
}

func sameMentor(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
