package service

import (
	"context"
	"strings"
	"sync"

	"yatube/internal/cache"
	"yatube/internal/models"
	"yatube/internal/repository"
	"yatube/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

type UserService struct {
	userRepo repository.UserRepository
	store    cache.Store
	cost     int

	// dummyHash is compared against for unknown usernames so they take as long
	// to reject as a wrong password. Built lazily at the service's cost.
	dummyOnce sync.Once
	dummyHash []byte
}

type SignupInput struct {
	Username  string
	Password  string
	FirstName string
	LastName  string
}

func NewUserService(userRepo repository.UserRepository, store cache.Store) *UserService {
	return &UserService{userRepo: userRepo, store: store, cost: bcrypt.DefaultCost}
}

// WithBcryptCost overrides the hashing cost; tests use bcrypt.MinCost.
// Call it before the service is used.
func (s *UserService) WithBcryptCost(cost int) *UserService {
	s.cost = cost
	return s
}

// Signup validates the form and creates the account.
func (s *UserService) Signup(ctx context.Context, in SignupInput) (*models.User, error) {
	username := strings.TrimSpace(in.Username)
	if err := validation.ValidateUsername(username); err != nil {
		return nil, models.NewFieldValidationError("username", err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewFieldValidationError("password", err.Error())
	}
	if strings.EqualFold(in.Password, username) {
		return nil, models.NewFieldValidationError("password", "The password is too similar to the username.")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Username:  username,
		Password:  string(hashed),
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate checks credentials. Any mismatch is reported the same way.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if models.IsNotFound(err) {
			_ = bcrypt.CompareHashAndPassword(s.dummy(), []byte(password))
			return nil, models.NewUnauthorizedError("Please enter a correct username and password.")
		}
		return nil, err
	}
	if cmpErr := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); cmpErr != nil {
		return nil, models.NewUnauthorizedError("Please enter a correct username and password.")
	}
	return user, nil
}

func (s *UserService) dummy() []byte {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("yatube-dummy-password"), s.cost)
	})
	return s.dummyHash
}

func (s *UserService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

func (s *UserService) ListUsers(ctx context.Context, limit, offset int) ([]models.User, error) {
	return s.userRepo.List(ctx, limit, offset)
}

// DeleteUser removes the account with everything it owns.
func (s *UserService) DeleteUser(ctx context.Context, username string) error {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	if err := s.userRepo.Delete(ctx, user.ID); err != nil {
		return err
	}
	invalidateIndex(ctx, s.store)
	return nil
}
