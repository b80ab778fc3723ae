package controllers

import (
	"errors"

	"bakustack/backend/flows"
	"bakustack/backend/gateway"
	"bakustack/backend/middleware"
	"bakustack/backend/models"
	"bakustack/backend/session"
	"bakustack/backend/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type ProgressController struct {
	Store   *gateway.Gateway
	Session *session.Accessor
	Log     *zap.Logger
}

func NewProgressController(store *gateway.Gateway, acc *session.Accessor, log *zap.Logger) *ProgressController {
	return &ProgressController{Store: store, Session: acc, Log: log}
}

// GetDashboard godoc
// @Summary Student dashboard
// @Description Enrollments with status and stored progress; anonymous viewers get 401 with a login redirect
// @Tags progress
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Failure 401 {object} utils.ErrorResponse
// @Failure 503 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /dashboard [get]
func (pc *ProgressController) GetDashboard(c *fiber.Ctx) error {
	state, err := flows.NewDashboard(pc.Store, pc.Session, flows.Options{Log: pc.Log}).Load(c.UserContext())
	if err != nil {
		return flowError(c, err)
	}
	if handled, err := loadStatusError(c, state.Status, "dashboard"); handled {
		return err
	}
	return utils.Success(c, fiber.StatusOK, state)
}

// GetCourseProgress godoc
// @Summary Progress in one course
// @Description Lesson progress rows and the percentage derived from them
// @Tags progress
// @Produce json
// @Param slug path string true "Course slug"
// @Success 200 {object} utils.SuccessResponse
// @Failure 401 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /courses/{slug}/progress [get]
func (pc *ProgressController) GetCourseProgress(c *fiber.Ctx) error {
	profile := middleware.CurrentProfile(c)

	course, err := pc.Store.CourseBySlug(c.UserContext(), c.Params("slug"))
	if err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			return utils.NotFound(c, "Course not found")
		}
		pc.Log.Warn("course progress: course load failed", zap.Error(err))
		return utils.LoadFailed(c, "Could not load course")
	}

	rows, err := pc.Store.CourseProgress(c.UserContext(), profile.ID, course.ID)
	if err != nil {
		pc.Log.Warn("course progress load failed", zap.Error(err))
		return utils.LoadFailed(c, "Could not load progress")
	}

	completed := 0
	for _, row := range rows {
		if row.Completed {
			completed++
		}
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"course_id":         course.ID,
		"lessons":           rows,
		"completed_lessons": completed,
		"total_lessons":     course.LessonCount(),
		"progress":          models.ProgressPercent(completed, course.LessonCount()),
	})
}
