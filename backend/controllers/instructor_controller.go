package controllers

import (
	"errors"

	"bakustack/backend/gateway"
	"bakustack/backend/middleware"
	"bakustack/backend/models"
	"bakustack/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type InstructorController struct {
	Store *gateway.Gateway
	Log   *zap.Logger
}

func NewInstructorController(store *gateway.Gateway, log *zap.Logger) *InstructorController {
	return &InstructorController{Store: store, Log: log}
}

type GradeRequest struct {
	Status   models.SubmissionStatus `json:"status" enums:"approved,rejected"`
	Feedback string                  `json:"feedback"`
	Grade    *int                    `json:"grade" minimum:"0" maximum:"100"`
}

// GetCourses godoc
// @Summary Instructor's courses
// @Tags instructor
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Failure 403 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /instructor/courses [get]
func (ic *InstructorController) GetCourses(c *fiber.Ctx) error {
	profile := middleware.CurrentProfile(c)
	courses, err := ic.Store.CoursesByInstructor(c.UserContext(), profile.ID)
	if err != nil {
		ic.Log.Warn("instructor courses load failed", zap.Error(err))
		return utils.LoadFailed(c, "Could not load courses")
	}
	return utils.Success(c, fiber.StatusOK, courses, fiber.Map{"total": len(courses)})
}

// GetLessonSubmissions godoc
// @Summary Homework submitted for a lesson
// @Tags instructor
// @Produce json
// @Param lessonId path string true "Lesson id"
// @Success 200 {object} utils.SuccessResponse
// @Failure 403 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /instructor/lessons/{lessonId}/submissions [get]
func (ic *InstructorController) GetLessonSubmissions(c *fiber.Ctx) error {
	lessonID, err := paramUUID(c, "lessonId")
	if err != nil {
		return utils.BadRequest(c, "Invalid lesson ID")
	}
	if done, err := ic.requireOwner(c, lessonID); done {
		return err
	}

	submissions, err := ic.Store.LessonSubmissions(c.UserContext(), lessonID)
	if err != nil {
		ic.Log.Warn("submissions load failed", zap.Error(err))
		return utils.LoadFailed(c, "Could not load submissions")
	}
	return utils.Success(c, fiber.StatusOK, submissions, fiber.Map{"total": len(submissions)})
}

// GradeSubmission godoc
// @Summary Review a submission
// @Tags instructor
// @Accept json
// @Produce json
// @Param id path string true "Submission id"
// @Param input body GradeRequest true "Review"
// @Success 200 {object} utils.SuccessResponse
// @Failure 403 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Failure 422 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /instructor/submissions/{id}/grade [put]
func (ic *InstructorController) GradeSubmission(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return utils.BadRequest(c, "Invalid submission ID")
	}
	var input GradeRequest
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	submission, err := ic.Store.SubmissionByID(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			return utils.NotFound(c, "Submission not found")
		}
		return utils.LoadFailed(c, "Could not load submission")
	}
	if done, err := ic.requireOwner(c, submission.LessonID); done {
		return err
	}

	graded, err := ic.Store.GradeSubmission(c.UserContext(), id, input.Feedback, input.Status, input.Grade)
	switch {
	case errors.Is(err, gateway.ErrInvalidStatus):
		return utils.ValidationError(c, map[string]string{"status": err.Error()})
	case errors.Is(err, gateway.ErrInvalidGrade):
		return utils.ValidationError(c, map[string]string{"grade": err.Error()})
	case errors.Is(err, gateway.ErrNotFound):
		return utils.NotFound(c, "Submission not found")
	case err != nil:
		ic.Log.Warn("grading failed", zap.String("submission_id", id.String()), zap.Error(err))
		return utils.WriteFailed(c, "Could not save the review")
	}
	return utils.Success(c, fiber.StatusOK, graded)
}

// requireOwner checks that the lesson belongs to one of the caller's courses.
func (ic *InstructorController) requireOwner(c *fiber.Ctx, lessonID uuid.UUID) (bool, error) {
	course, err := ic.Store.LessonCourse(c.UserContext(), lessonID)
	if err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			return true, utils.NotFound(c, "Lesson not found")
		}
		return true, utils.LoadFailed(c, "Could not load lesson")
	}
	if course.InstructorID != middleware.CurrentProfile(c).ID {
		return true, utils.Forbidden(c, "Lesson belongs to another instructor")
	}
	return false, nil
}
