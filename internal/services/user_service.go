package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"vitalsense/internal/database"
	"vitalsense/internal/models"
	"vitalsense/pkg/auth"
)

// Sentinel errors for the auth and profile flows
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// UserService manages accounts and health profiles in MongoDB
type UserService struct {
	mongoDB *database.MongoDB
}

// NewUserService creates a new user service
func NewUserService(mongoDB *database.MongoDB) *UserService {
	return &UserService{mongoDB: mongoDB}
}

func (s *UserService) collection() *mongo.Collection {
	return s.mongoDB.Collection(database.CollectionUsers)
}

// Register creates a new account with a hashed password
func (s *UserService) Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, errors.New("valid email is required")
	}
	if err := auth.ValidatePassword(req.Password); err != nil {
		return nil, err
	}

	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		// Fall back to the mailbox name so nudges still read personally
		displayName = strings.SplitN(email, "@", 2)[0]
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &models.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: hash,
		DisplayName:  displayName,
		Conditions:   []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if _, err := s.collection().InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// Authenticate verifies credentials and returns the account
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var user models.User
	err := s.collection().FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	ok, err := auth.VerifyPassword(user.PasswordHash, password)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	return &user, nil
}

// GetByID returns an account by its ID
func (s *UserService) GetByID(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	err := s.collection().FindOne(ctx, bson.M{"_id": userID}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	return &user, nil
}

// GetProfile returns the read-only health profile view the insight engine
// consumes
func (s *UserService) GetProfile(ctx context.Context, userID string) (*models.UserHealthProfile, error) {
	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.Profile(), nil
}

// UpdateProfile updates display name and/or condition list
func (s *UserService) UpdateProfile(ctx context.Context, userID string, req *models.UpdateProfileRequest) (*models.User, error) {
	update := bson.M{"updatedAt": time.Now()}

	if req.DisplayName != nil {
		name := strings.TrimSpace(*req.DisplayName)
		if name == "" {
			return nil, errors.New("display name cannot be empty")
		}
		update["displayName"] = name
	}

	if req.Conditions != nil {
		if err := models.ValidateConditions(*req.Conditions); err != nil {
			return nil, err
		}
		update["conditions"] = *req.Conditions
	}

	result := s.collection().FindOneAndUpdate(ctx,
		bson.M{"_id": userID},
		bson.M{"$set": update},
	)
	if err := result.Err(); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	return s.GetByID(ctx, userID)
}
