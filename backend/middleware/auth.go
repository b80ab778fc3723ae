package middleware

import (
	"errors"

	"bakustack/backend/models"
	"bakustack/backend/session"
	"bakustack/backend/utils"

	"github.com/gofiber/fiber/v2"
)

const profileLocal = "profile"

// SessionMiddleware puts the bearer token, if any, on the request context so
// flows can ask the accessor who is viewing. It never rejects a request.
func SessionMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token := utils.ExtractToken(c); token != "" {
			c.SetUserContext(session.WithToken(c.UserContext(), token))
		}
		return c.Next()
	}
}

// AuthMiddleware requires a signed-in viewer and caches the profile for the
// rest of the request.
func AuthMiddleware(acc *session.Accessor) fiber.Handler {
	return func(c *fiber.Ctx) error {
		profile, err := acc.Current(c.UserContext())
		if err != nil {
			if errors.Is(err, session.ErrAnonymous) {
				return utils.Unauthorized(c, "Unauthorized")
			}
			return utils.LoadFailed(c, "Could not verify session")
		}

		c.SetUserContext(session.WithProfile(c.UserContext(), profile))
		c.Locals(profileLocal, profile)
		return c.Next()
	}
}

// InstructorMiddleware runs after AuthMiddleware.
func InstructorMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		profile := CurrentProfile(c)
		if profile == nil {
			return utils.Unauthorized(c, "Unauthorized")
		}
		if !profile.IsInstructor() {
			return utils.Forbidden(c, "Forbidden - Instructor access required")
		}
		return c.Next()
	}
}

// CurrentProfile returns the profile resolved by AuthMiddleware, or nil.
func CurrentProfile(c *fiber.Ctx) *models.Profile {
	profile, _ := c.Locals(profileLocal).(*models.Profile)
	return profile
}
