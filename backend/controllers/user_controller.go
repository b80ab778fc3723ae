package controllers

import (
	"errors"
	"strings"

	"bakustack/backend/gateway"
	"bakustack/backend/middleware"
	"bakustack/backend/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type UserController struct {
	Store *gateway.Gateway
	Log   *zap.Logger
}

func NewUserController(store *gateway.Gateway, log *zap.Logger) *UserController {
	return &UserController{Store: store, Log: log}
}

type UpdateProfileRequest struct {
	FullName  *string `json:"full_name" example:"Leyla Aliyeva"`
	AvatarURL *string `json:"avatar_url" example:"https://cdn.example.com/a.png"`
	Bio       *string `json:"bio"`
}

// GetProfile godoc
// @Summary Get user profile
// @Description Returns the signed-in user's profile
// @Tags users
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Failure 401 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /user/profile [get]
func (uc *UserController) GetProfile(c *fiber.Ctx) error {
	return utils.Success(c, fiber.StatusOK, middleware.CurrentProfile(c))
}

// UpdateProfile godoc
// @Summary Update user profile
// @Description Updates display name, avatar and bio; absent fields stay as they are
// @Tags users
// @Accept json
// @Produce json
// @Param input body UpdateProfileRequest true "Profile update data"
// @Success 200 {object} utils.SuccessResponse
// @Failure 400 {object} utils.ErrorResponse
// @Failure 401 {object} utils.ErrorResponse
// @Failure 422 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /user/profile [put]
func (uc *UserController) UpdateProfile(c *fiber.Ctx) error {
	profile := middleware.CurrentProfile(c)

	var input UpdateProfileRequest
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	// Имя не может быть пустым
	if input.FullName != nil && strings.TrimSpace(*input.FullName) == "" {
		return utils.ValidationError(c, map[string]string{"full_name": "Full name cannot be empty"})
	}

	updated, err := uc.Store.UpdateProfile(c.UserContext(), profile.ID, gateway.ProfileUpdate{
		FullName:  input.FullName,
		AvatarURL: input.AvatarURL,
		Bio:       input.Bio,
	})
	if err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			return utils.NotFound(c, "User not found")
		}
		uc.Log.Warn("profile update failed", zap.String("profile_id", profile.ID.String()), zap.Error(err))
		return utils.WriteFailed(c, "Could not update profile")
	}
	return utils.Success(c, fiber.StatusOK, updated)
}
