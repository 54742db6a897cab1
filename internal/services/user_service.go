package services

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"ChatWave/server/internal/models"
	"ChatWave/server/internal/storage"
	"ChatWave/server/internal/utils"

	"github.com/golang-jwt/jwt/v4"
)

type UserService struct {
	store     storage.Store
	jwtSecret []byte
	tokenTTL  time.Duration
}

func NewUserService(store storage.Store, jwtSecret []byte, tokenTTL time.Duration) *UserService {
	return &UserService{
		store:     store,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
	}
}

// Register creates an account with a bcrypt password hash and returns it
// together with a signed token, so the client is logged in immediately.
func (us *UserService) Register(ctx context.Context, username, email, password string) (*models.User, string, error) {
	exists, err := us.store.UserExists(ctx, username, email)
	if err != nil {
		log.Printf("Error checking user existence: %v", err)
		return nil, "", err
	}
	if exists {
		return nil, "", models.ErrUserExists
	}

	hashed, err := utils.HashPassword(password)
	if err != nil {
		log.Printf("Failed to hash password: %v", err)
		return nil, "", err
	}

	user := &models.User{
		Username:     username,
		Email:        strings.ToLower(email),
		PasswordHash: hashed,
	}

	id, err := us.store.CreateUser(ctx, user)
	if err != nil {
		log.Printf("Error creating user: %v", err)
		return nil, "", err
	}
	user.ID = id

	token, err := us.issueToken(user)
	if err != nil {
		return nil, "", err
	}

	log.Printf("User registered: %s (ID: %d)", user.Username, user.ID)
	return user, token, nil
}

// Login verifies the credentials and returns the user with a signed token.
// Unknown email and wrong password both map to ErrInvalidCredentials so the
// response does not leak which accounts exist.
func (us *UserService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	user, err := us.store.GetUserByEmail(ctx, strings.ToLower(email))
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			return nil, "", models.ErrInvalidCredentials
		}
		log.Printf("Error fetching user by email: %v", err)
		return nil, "", err
	}

	if err := utils.CheckPasswordHash(password, user.PasswordHash); err != nil {
		log.Printf("Password verification failed for user %d", user.ID)
		return nil, "", models.ErrInvalidCredentials
	}

	token, err := us.issueToken(user)
	if err != nil {
		return nil, "", err
	}

	return user, token, nil
}

func (us *UserService) GetByID(ctx context.Context, id int) (*models.User, error) {
	return us.store.GetUserByID(ctx, id)
}

// Search finds users by a username or email fragment, excluding the caller.
func (us *UserService) Search(ctx context.Context, query string, callerID int) ([]models.User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.User{}, nil
	}
	return us.store.SearchUsers(ctx, query, callerID)
}

func (us *UserService) issueToken(user *models.User) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  user.ID,
		"username": user.Username,
		"exp":      time.Now().Add(us.tokenTTL).Unix(),
	})

	signed, err := token.SignedString(us.jwtSecret)
	if err != nil {
		log.Printf("Error creating token for user %d: %v", user.ID, err)
		return "", err
	}
	return signed, nil
}
