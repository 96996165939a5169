package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"gymflow/gym-backend/internal/domain"
	"gymflow/gym-backend/internal/service"

	"github.com/gin-gonic/gin"
)

// AuthHandler holds the authentication service dependency.
type AuthHandler struct {
	authService service.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// --- Request/Response Structs ---

type RegisterRequest struct {
	Name     string      `json:"name" binding:"required"`
	Email    string      `json:"email" binding:"required,email"`
	Password string      `json:"password" binding:"required,min=8"`
	Role     domain.Role `json:"role" binding:"required,oneof=trainer client"`
}

// UserResponse excludes sensitive info like password hash
type UserResponse struct {
	ID                string      `json:"id"`
	Name              string      `json:"name"`
	Email             string      `json:"email"`
	Role              domain.Role `json:"role"`
	IsApproved        bool        `json:"isApproved"`
	AssignedTrainerID *string     `json:"assignedTrainer,omitempty"`
	CreatedAt         time.Time   `json:"createdAt"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// --- Handler Methods ---

// Register creates a new user account. Trainers start unapproved.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	user, err := h.authService.Register(c.Request.Context(), req.Name, req.Email, req.Password, req.Role)
	if err != nil {
		if errors.Is(err, service.ErrHashingFailed) {
			abortWithError(c, http.StatusInternalServerError, "Could not process registration")
			return
		}
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, MapUserToResponse(user))
}

// Login authenticates a user and returns a JWT token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	token, user, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrTokenGeneration) {
			abortWithError(c, http.StatusInternalServerError, "Could not process login")
			return
		}
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Token: token,
		User:  MapUserToResponse(user),
	})
}

// ApproveTrainer flips a trainer's approval flag. Admin only (enforced in routing).
func (h *AuthHandler) ApproveTrainer(c *gin.Context) {
	trainerID, ok := parsePathObjectID(c, "trainerId")
	if !ok {
		return
	}

	if err := h.authService.ApproveTrainer(c.Request.Context(), trainerID); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Trainer approved."})
}

// MapUserToResponse converts a domain User to a UserResponse DTO.
// Crucially excludes PasswordHash and converts ObjectIDs to strings.
func MapUserToResponse(user *domain.User) UserResponse {
	if user == nil {
		return UserResponse{}
	}

	resp := UserResponse{
		ID:         user.ID.Hex(),
		Name:       user.Name,
		Email:      user.Email,
		Role:       user.Role,
		IsApproved: user.IsApproved,
		CreatedAt:  user.CreatedAt,
	}
	if user.AssignedTrainerID != nil {
		hex := user.AssignedTrainerID.Hex()
		resp.AssignedTrainerID = &hex
	}
	return resp
}
