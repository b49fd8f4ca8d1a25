package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yukikurage/relief-management-api/internal/access"
	"github.com/yukikurage/relief-management-api/internal/constants"
	apierrors "github.com/yukikurage/relief-management-api/internal/errors"
	"github.com/yukikurage/relief-management-api/internal/models"
	"github.com/yukikurage/relief-management-api/internal/repository"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrUsernameTaken      = apierrors.New(apierrors.KindConflict, "username already exists")
	ErrInvalidCredentials = apierrors.New(apierrors.KindUnauthenticated, "invalid username or password").WithCode(apierrors.ErrCodeInvalidCredentials)
	ErrPasswordTooShort   = apierrors.Validation("password", fmt.Sprintf("password must be at least %d characters", constants.MinPasswordLength))
	ErrUsernameRequired   = apierrors.Validation("username", "username is required")
	ErrUserNotFound       = apierrors.New(apierrors.KindNotFound, "user not found")
)

// AuthService handles authentication related business logic.
type AuthService struct {
	userRepo       repository.UserRepository
	assignmentRepo repository.AreaAssignmentRepository
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repository.UserRepository, assignmentRepo repository.AreaAssignmentRepository) *AuthService {
	return &AuthService{
		userRepo:       userRepo,
		assignmentRepo: assignmentRepo,
	}
}

// SignupInput represents the required information to create a new user.
type SignupInput struct {
	Username string
	Email    string
	Password string
}

// Signup creates a public identity.
func (s *AuthService) Signup(input SignupInput) (*models.User, error) {
	return s.createUser(input, models.RolePublic)
}

// CreateSuperAdmin creates a super admin identity. It is only reachable from the command line.
func (s *AuthService) CreateSuperAdmin(input SignupInput) (*models.User, error) {
	return s.createUser(input, models.RoleSuperAdmin)
}

func (s *AuthService) createUser(input SignupInput, role models.Role) (*models.User, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" {
		return nil, ErrUsernameRequired
	}

	if err := ensureUsernameFree(s.userRepo, username); err != nil {
		return nil, err
	}

	hash, err := hashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     username,
		Email:        strings.TrimSpace(input.Email),
		PasswordHash: hash,
		Role:         role,
	}

	if err := s.userRepo.Create(user); err != nil {
		return nil, apierrors.Store("failed to create user", err)
	}

	return user, nil
}

func ensureUsernameFree(userRepo repository.UserRepository, username string) error {
	if _, err := userRepo.FindByUsername(username); err == nil {
		return ErrUsernameTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return apierrors.Store("failed to check username", err)
	}
	return nil
}

// hashPassword enforces the minimum length and returns a bcrypt hash.
func hashPassword(password string) (string, error) {
	if len(password) < constants.MinPasswordLength {
		return "", ErrPasswordTooShort
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", apierrors.Wrap(apierrors.KindInternal, "failed to hash password", err)
	}
	return string(hashed), nil
}

// LoginInput holds the credentials for authentication.
type LoginInput struct {
	Username string
	Password string
}

// Login verifies credentials and returns the authenticated user.
func (s *AuthService) Login(input LoginInput) (*models.User, error) {
	user, err := s.userRepo.FindByUsername(strings.TrimSpace(input.Username))
	if err != nil {
		return nil, lookupError(err, ErrInvalidCredentials, "find user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// GetUser retrieves a user by ID.
func (s *AuthService) GetUser(id uint64) (*models.User, error) {
	user, err := s.userRepo.FindByID(id)
	if err != nil {
		return nil, lookupError(err, ErrUserNotFound, "find user")
	}
	return user, nil
}

// ResolveIdentity loads the identity of a signed-in user. An area admin
// without an active assignment resolves to an orphaned identity.
func (s *AuthService) ResolveIdentity(userID uint64) (*access.Identity, error) {
	user, err := s.GetUser(userID)
	if err != nil {
		return nil, err
	}

	id := &access.Identity{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
	}

	if user.Role != models.RoleAreaAdmin {
		return id, nil
	}

	assignment, err := s.assignmentRepo.FindActiveByUserID(user.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return id, nil
		}
		return nil, apierrors.Store("failed to load area assignment", err)
	}

	areaID := assignment.AreaID
	id.AreaID = &areaID
	id.AssignmentID = assignment.ID
	return id, nil
}
