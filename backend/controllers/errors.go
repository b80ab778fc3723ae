package controllers

import (
	"errors"

	"bakustack/backend/flows"
	"bakustack/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// flowError maps a flow action error onto the JSON error envelope. state, if
// given, is attached as details so the client can redraw without reloading.
func flowError(c *fiber.Ctx, err error, state ...interface{}) error {
	var authErr *flows.AuthRequiredError
	var writeErr *flows.WriteError

	switch {
	case errors.As(err, &authErr):
		return utils.AuthRequired(c, authErr.Redirect)
	case errors.As(err, &writeErr):
		return utils.WriteFailed(c, "Could not save your change, please try again", state...)
	case errors.Is(err, flows.ErrInFlight):
		return utils.Conflict(c, "Action already in progress", state...)
	case errors.Is(err, flows.ErrActionUnavailable), errors.Is(err, flows.ErrNoLessonSelected):
		return utils.Conflict(c, err.Error(), state...)
	case errors.Is(err, flows.ErrLessonLocked), errors.Is(err, flows.ErrNotEnrolled):
		return utils.Forbidden(c, err.Error(), state...)
	case errors.Is(err, flows.ErrLessonNotFound):
		return utils.NotFound(c, "Lesson not found")
	case errors.Is(err, flows.ErrEmptySubmission):
		return utils.ValidationError(c, map[string]string{"content": "Submission content is required"})
	default:
		return utils.InternalServerError(c, "Unexpected error")
	}
}

// loadStatusError answers the terminal load states. It returns handled=false
// when the flow loaded normally.
func loadStatusError(c *fiber.Ctx, status flows.Status, what string) (bool, error) {
	switch status {
	case flows.StatusNotFound:
		return true, utils.NotFound(c, what+" not found")
	case flows.StatusLoadFailed:
		return true, utils.LoadFailed(c, "Could not load "+what)
	}
	return false, nil
}

func paramUUID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	return uuid.Parse(c.Params(name))
}
