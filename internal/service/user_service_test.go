package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/mentor-portal-api/internal/models"
	appErrors "github.com/noah-isme/mentor-portal-api/pkg/errors"
)

type mockUserRepo struct {
	users       map[string]*models.User
	listErr     error
	findByIDErr error
	updateErr   error
	revoked     []string
	auditLogs   []*models.AuditLog
}

func newMockUserRepo(users ...models.User) *mockUserRepo {
	repo := &mockUserRepo{users: make(map[string]*models.User)}
	for i := range users {
		u := users[i]
		repo.users[u.ID] = &u
	}
	return repo
}

func (m *mockUserRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	var users []models.User
	for _, u := range m.users {
		if filter.Role != nil && u.Role != *filter.Role {
			continue
		}
		users = append(users, *u)
	}
	return users, len(users), nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if m.findByIDErr != nil {
		return nil, m.findByIDErr
	}
	if user, ok := m.users[id]; ok {
		copy := *user
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			copy := *u
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) ListStudentsByMentor(ctx context.Context, mentorID string) ([]models.StudentRef, error) {
	var refs []models.StudentRef
	for _, u := range m.users {
		if u.AssignedTo(mentorID) {
			refs = append(refs, models.StudentRef{ID: u.ID, DisplayName: u.DisplayName, Email: u.Email})
		}
	}
	return refs, nil
}

func (m *mockUserRepo) ListApprovedMentors(ctx context.Context) ([]models.StudentRef, error) {
	var refs []models.StudentRef
	for _, u := range m.users {
		if u.Role == models.RoleMentor && u.Status == models.StatusApproved {
			refs = append(refs, models.StudentRef{ID: u.ID, DisplayName: u.DisplayName, Email: u.Email})
		}
	}
	return refs, nil
}

func (m *mockUserRepo) Stats(ctx context.Context) (*models.UserStats, error) {
	stats := &models.UserStats{}
	for _, u := range m.users {
		switch u.Role {
		case models.RoleStudent:
			stats.Students++
		case models.RoleMentor:
			stats.Mentors++
		}
		if u.Status == models.StatusPendingApproval {
			stats.Pending++
		}
	}
	return stats, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	copy := *user
	m.users[user.ID] = &copy
	return nil
}

func (m *mockUserRepo) Update(ctx context.Context, user *models.User) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	copy := *user
	m.users[user.ID] = &copy
	return nil
}

func (m *mockUserRepo) UpdateStatus(ctx context.Context, id string, status models.UserStatus) error {
	user, ok := m.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	user.Status = status
	return nil
}

func (m *mockUserRepo) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	user, ok := m.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	user.PasswordHash = passwordHash
	return nil
}

func (m *mockUserRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	m.revoked = append(m.revoked, userID)
	return nil
}

func (m *mockUserRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.users[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.users, id)
	return nil
}

func (m *mockUserRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

func strRef(v string) *string { return &v }

func portalUsers() []models.User {
	return []models.User{
		{ID: "admin-1", Email: "admin@example.com", DisplayName: "Admin", Role: models.RoleAdmin, Status: models.StatusApproved},
		{ID: "mentor-1", Email: "mentor@example.com", DisplayName: "Mentor", Role: models.RoleMentor, Status: models.StatusApproved},
		{ID: "mentor-2", Email: "pending@example.com", DisplayName: "Pending Mentor", Role: models.RoleMentor, Status: models.StatusPendingApproval},
		{ID: "student-1", Email: "s1@example.com", DisplayName: "Student One", Role: models.RoleStudent, Status: models.StatusApproved, MentorID: strRef("mentor-1")},
		{ID: "student-2", Email: "s2@example.com", DisplayName: "Student Two", Role: models.RoleStudent, Status: models.StatusPendingApproval},
	}
}

func newTestUserService(repo *mockUserRepo) *UserService {
	return NewUserService(repo, validator.New(), zap.NewNop(), nil)
}

func TestUserServiceList(t *testing.T) {
	repo := newMockUserRepo(portalUsers()...)
	svc := newTestUserService(repo)

	role := models.RoleStudent
	users, pagination, err := svc.List(context.Background(), models.UserFilter{Role: &role, Page: 0, PageSize: 500})
	require.NoError(t, err)
	assert.Len(t, users, 2)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)
	assert.Equal(t, 2, pagination.TotalCount)
}

func TestUserServiceListError(t *testing.T) {
	repo := newMockUserRepo()
	repo.listErr = errors.New("boom")
	svc := newTestUserService(repo)

	_, _, err := svc.List(context.Background(), models.UserFilter{})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErr.Code)
}

func TestUserServiceGetNotFound(t *testing.T) {
	svc := newTestUserService(newMockUserRepo())

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestUserServiceUpdateAssignsMentor(t *testing.T) {
	repo := newMockUserRepo(portalUsers()...)
	svc := newTestUserService(repo)

	user, err := svc.Update(context.Background(), "student-2", UpdateUserRequest{
		DisplayName: "  Student Two  ",
		MentorID:    strRef("mentor-1"),
	}, "admin-1", models.LoginRequest{IP: "127.0.0.1"})
	require.NoError(t, err)
	require.NotNil(t, user.MentorID)
	assert.Equal(t, "mentor-1", *user.MentorID)
	assert.Equal(t, "Student Two", user.DisplayName)
	assert.True(t, repo.users["student-2"].AssignedTo("mentor-1"))
	require.Len(t, repo.auditLogs, 1)
	assert.Equal(t, models.AuditActionUserUpdate, repo.auditLogs[0].Action)
}

func TestUserServiceUpdateClearsMentor(t *testing.T) {
	repo := newMockUserRepo(portalUsers()...)
	svc := newTestUserService(repo)

	user, err := svc.Update(context.Background(), "student-1", UpdateUserRequest{
		DisplayName: "Student One",
		MentorID:    strRef(""),
	}, "admin-1", models.LoginRequest{})
	require.NoError(t, err)
	assert.Nil(t, user.MentorID)
}

func TestUserServiceUpdateKeepsMentorWhenOmitted(t *testing.T) {
	repo := newMockUserRepo(portalUsers()...)
	svc := newTestUserService(repo)

	user, err := svc.Update(context.Background(), "student-1", UpdateUserRequest{DisplayName: "Renamed"}, "admin-1", models.LoginRequest{})
	require.NoError(t, err)
	require.NotNil(t, user.MentorID)
	assert.Equal(t, "mentor-1", *user.MentorID)
}

func TestUserServiceUpdateRejectsInvalidAssignments(t *testing.T) {
	cases := []struct {
		name   string
		target string
		mentor string
	}{
		{name: "mentor cannot be assigned", target: "mentor-1", mentor: "mentor-1"},
		{name: "pending mentor", target: "student-2", mentor: "mentor-2"},
		{name: "student as mentor", target: "student-2", mentor: "student-1"},
		{name: "unknown mentor", target: "student-2", mentor: "ghost"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := newMockUserRepo(portalUsers()...)
			svc := newTestUserService(repo)

			_, err := svc.Update(context.Background(), tc.target, UpdateUserRequest{
				DisplayName: "Name",
				MentorID:    strRef(tc.mentor),
			}, "admin-1", models.LoginRequest{})
			require.Error(t, err)
			assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
			assert.Empty(t, repo.auditLogs)
		})
	}
}

func TestUserServiceUpdateValidation(t *testing.T) {
	svc := newTestUserService(newMockUserRepo(portalUsers()...))

	_, err := svc.Update(context.Background(), "student-1", UpdateUserRequest{DisplayName: "   "}, "admin-1", models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUserServiceApprove(t *testing.T) {
	repo := newMockUserRepo(portalUsers()...)
	svc := newTestUserService(repo)

	user, err := svc.Approve(context.Background(), "mentor-2", "admin-1", models.LoginRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, user.Status)
	assert.Equal(t, models.StatusApproved, repo.users["mentor-2"].Status)
	require.Len(t, repo.auditLogs, 1)
	assert.Equal(t, models.AuditActionUserApprove, repo.auditLogs[0].Action)

	// approving twice is a no-op
	_, err = svc.Approve(context.Background(), "mentor-2", "admin-1", models.LoginRequest{})
	require.NoError(t, err)
	assert.Len(t, repo.auditLogs, 1)
}

func TestUserServiceDelete(t *testing.T) {
	repo := newMockUserRepo(portalUsers()...)
	svc := newTestUserService(repo)

	require.NoError(t, svc.Delete(context.Background(), "student-1", "admin-1", models.LoginRequest{}))
	_, ok := repo.users["student-1"]
	assert.False(t, ok)

	err := svc.Delete(context.Background(), "admin-1", "admin-1", models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	err = svc.Delete(context.Background(), "ghost", "admin-1", models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestUserServiceResetPassword(t *testing.T) {
	repo := newMockUserRepo(portalUsers()...)
	svc := newTestUserService(repo)

	err := svc.ResetPassword(context.Background(), "student-1", models.AdminResetPasswordRequest{NewPassword: "new-secret-1"}, "admin-1", models.LoginRequest{})
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.users["student-1"].PasswordHash), []byte("new-secret-1")))
	assert.Equal(t, []string{"student-1"}, repo.revoked)

	err = svc.ResetPassword(context.Background(), "student-1", models.AdminResetPasswordRequest{NewPassword: "short"}, "admin-1", models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUserServiceDirectoryQueries(t *testing.T) {
	repo := newMockUserRepo(portalUsers()...)
	svc := newTestUserService(repo)

	students, err := svc.ListStudentsByMentor(context.Background(), "mentor-1")
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, "student-1", students[0].ID)

	none, err := svc.ListStudentsByMentor(context.Background(), "mentor-2")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	mentors, err := svc.ListMentors(context.Background())
	require.NoError(t, err)
	require.Len(t, mentors, 1)
	assert.Equal(t, "mentor-1", mentors[0].ID)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.UserStats{Students: 2, Mentors: 2, Pending: 2}, *stats)
}

func TestUserServiceUpdateProfile(t *testing.T) {
	repo := newMockUserRepo(portalUsers()...)
	svc := newTestUserService(repo)

	user, err := svc.UpdateProfile(context.Background(), "student-1", UpdateProfileRequest{
		DisplayName: "Student Uno",
		Address:     " Jl. Merdeka 1 ",
		PhoneNumber: "0812",
	}, models.LoginRequest{})
	require.NoError(t, err)
	assert.Equal(t, "Jl. Merdeka 1", user.Address)
	require.NotNil(t, user.MentorID)
	assert.Equal(t, "mentor-1", *user.MentorID)
	assert.Equal(t, models.AuditActionProfileUpdate, repo.auditLogs[0].Action)
}

func TestUserServiceEnsureAdmin(t *testing.T) {
	repo := newMockUserRepo()
	svc := newTestUserService(repo)

	require.NoError(t, svc.EnsureAdmin(context.Background(), " Root@Example.com ", "bootstrap-pass", ""))
	require.Len(t, repo.users, 1)
	for _, u := range repo.users {
		assert.Equal(t, "root@example.com", u.Email)
		assert.Equal(t, models.RoleAdmin, u.Role)
		assert.Equal(t, models.StatusApproved, u.Status)
		assert.Equal(t, "Administrator", u.DisplayName)
	}

	require.NoError(t, svc.EnsureAdmin(context.Background(), "root@example.com", "other", "Root"))
	assert.Len(t, repo.users, 1)

	require.NoError(t, svc.EnsureAdmin(context.Background(), "", "", ""))
	assert.Len(t, repo.users, 1)
}
