package controllers

import (
	"errors"

	"bakustack/backend/session"
	"bakustack/backend/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type AuthController struct {
	Session *session.Accessor
	Log     *zap.Logger
}

func NewAuthController(acc *session.Accessor, log *zap.Logger) *AuthController {
	return &AuthController{Session: acc, Log: log}
}

type SignInRequest struct {
	Email    string `json:"email" example:"student@example.com" format:"email"`
	Password string `json:"password" example:"secret1" minLength:"6"`
}

// [+] SignUp godoc
// @Summary Register a new student
// @Description Creates the profile and signs it in
// @Tags auth
// @Accept json
// @Produce json
// @Param input body session.SignUpInput true "Sign-up data"
// @Success 201 {object} utils.SuccessResponse
// @Failure 400 {object} utils.ErrorResponse
// @Failure 409 {object} utils.ErrorResponse
// @Failure 422 {object} utils.ErrorResponse
// @Router /auth/signup [post]
func (ac *AuthController) SignUp(c *fiber.Ctx) error {
	var input session.SignUpInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	result, err := ac.Session.SignUp(c.UserContext(), input)
	if err != nil {
		return ac.sessionError(c, err)
	}
	return utils.Created(c, result)
}

// [+] SignIn godoc
// @Summary Sign in
// @Tags auth
// @Accept json
// @Produce json
// @Param input body SignInRequest true "Credentials"
// @Success 200 {object} utils.SuccessResponse
// @Failure 401 {object} utils.ErrorResponse
// @Failure 422 {object} utils.ErrorResponse
// @Router /auth/signin [post]
func (ac *AuthController) SignIn(c *fiber.Ctx) error {
	var input SignInRequest
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	result, err := ac.Session.SignIn(c.UserContext(), input.Email, input.Password)
	if err != nil {
		return ac.sessionError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, result)
}

// SignOut godoc
// @Summary Sign out
// @Description Revokes the bearer token
// @Tags auth
// @Success 204
// @Failure 401 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /auth/signout [post]
func (ac *AuthController) SignOut(c *fiber.Ctx) error {
	if err := ac.Session.SignOut(c.UserContext(), utils.ExtractToken(c)); err != nil {
		return ac.sessionError(c, err)
	}
	return utils.NoContent(c)
}

func (ac *AuthController) sessionError(c *fiber.Ctx, err error) error {
	var verr *session.ValidationError
	switch {
	case errors.As(err, &verr):
		return utils.ValidationError(c, verr.Fields)
	case errors.Is(err, session.ErrEmailTaken):
		return utils.Conflict(c, "Email is already registered")
	case errors.Is(err, session.ErrInvalidCredentials):
		return utils.Unauthorized(c, "Invalid email or password")
	case errors.Is(err, session.ErrAnonymous):
		return utils.Unauthorized(c, "Unauthorized")
	}
	ac.Log.Error("session operation failed", zap.Error(err))
	return utils.InternalServerError(c, "Could not complete the request")
}
