package controllers

import (
	"bakustack/backend/flows"
	"bakustack/backend/gateway"
	"bakustack/backend/inflight"
	"bakustack/backend/session"
	"bakustack/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CoursesController drives the course page and the lesson player. Each
// request gets its own flow instance, disposed when the handler returns.
type CoursesController struct {
	Store   *gateway.Gateway
	Session *session.Accessor
	Guard   inflight.Guard
	Log     *zap.Logger
}

func NewCoursesController(store *gateway.Gateway, acc *session.Accessor, guard inflight.Guard, log *zap.Logger) *CoursesController {
	return &CoursesController{Store: store, Session: acc, Guard: guard, Log: log}
}

type SubmissionRequest struct {
	Content string `json:"content" example:"https://github.com/me/homework"`
}

func (cc *CoursesController) options() flows.Options {
	return flows.Options{Guard: cc.Guard, Log: cc.Log}
}

// GetCourseDetails godoc
// @Summary Course page
// @Description Course outline plus the viewer's enrollment state
// @Tags courses
// @Produce json
// @Param slug path string true "Course slug"
// @Success 200 {object} utils.SuccessResponse
// @Failure 404 {object} utils.ErrorResponse
// @Failure 503 {object} utils.ErrorResponse
// @Router /courses/{slug} [get]
func (cc *CoursesController) GetCourseDetails(c *fiber.Ctx) error {
	detail := flows.NewCourseDetail(cc.Store, cc.Session, cc.options())
	defer detail.Dispose()

	state := detail.Load(c.UserContext(), c.Params("slug"))
	if handled, err := loadStatusError(c, state.Status, "Course"); handled {
		return err
	}
	return utils.Success(c, fiber.StatusOK, state)
}

// Enroll godoc
// @Summary Enroll in a course
// @Description Anonymous viewers get 401 with a login redirect
// @Tags courses
// @Produce json
// @Param slug path string true "Course slug"
// @Success 200 {object} utils.SuccessResponse
// @Failure 401 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Failure 409 {object} utils.ErrorResponse
// @Failure 503 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /courses/{slug}/enroll [post]
func (cc *CoursesController) Enroll(c *fiber.Ctx) error {
	detail := flows.NewCourseDetail(cc.Store, cc.Session, cc.options())
	defer detail.Dispose()

	state := detail.Load(c.UserContext(), c.Params("slug"))
	if handled, err := loadStatusError(c, state.Status, "Course"); handled {
		return err
	}

	state, err := detail.Enroll(c.UserContext())
	if err != nil {
		return flowError(c, err, state)
	}
	return utils.Success(c, fiber.StatusOK, state)
}

// Learn godoc
// @Summary Lesson player
// @Description Loads the player; ?lesson= selects a lesson, locked ones answer 403
// @Tags lessons
// @Produce json
// @Param slug path string true "Course slug"
// @Param lesson query string false "Lesson id"
// @Success 200 {object} utils.SuccessResponse
// @Failure 400 {object} utils.ErrorResponse
// @Failure 403 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Failure 503 {object} utils.ErrorResponse
// @Router /courses/{slug}/learn [get]
func (cc *CoursesController) Learn(c *fiber.Ctx) error {
	player := flows.NewPlayback(cc.Store, cc.Session, cc.options())
	defer player.Dispose()

	state := player.Load(c.UserContext(), c.Params("slug"))
	if handled, err := loadStatusError(c, state.Status, "Course"); handled {
		return err
	}

	if raw := c.Query("lesson"); raw != "" {
		lessonID, err := uuid.Parse(raw)
		if err != nil {
			return utils.BadRequest(c, "Invalid lesson ID")
		}
		if state, err = player.Select(lessonID); err != nil {
			return flowError(c, err, state)
		}
	}
	return utils.Success(c, fiber.StatusOK, state)
}

// CompleteLesson godoc
// @Summary Mark a lesson completed
// @Description Idempotent; repeating it for a completed lesson is a no-op
// @Tags lessons
// @Produce json
// @Param slug path string true "Course slug"
// @Param lessonId path string true "Lesson id"
// @Success 200 {object} utils.SuccessResponse
// @Failure 403 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Failure 409 {object} utils.ErrorResponse
// @Failure 503 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /courses/{slug}/lessons/{lessonId}/complete [post]
func (cc *CoursesController) CompleteLesson(c *fiber.Ctx) error {
	player, state, err := cc.playerAt(c)
	if player == nil {
		return err
	}
	defer player.Dispose()

	state, err = player.MarkComplete(c.UserContext())
	if err != nil {
		return flowError(c, err, state)
	}
	return utils.Success(c, fiber.StatusOK, state)
}

// SubmitHomework godoc
// @Summary Submit homework for a lesson
// @Description Replaces an earlier submission and puts it back into review
// @Tags lessons
// @Accept json
// @Produce json
// @Param slug path string true "Course slug"
// @Param lessonId path string true "Lesson id"
// @Param input body SubmissionRequest true "Homework"
// @Success 200 {object} utils.SuccessResponse
// @Failure 403 {object} utils.ErrorResponse
// @Failure 422 {object} utils.ErrorResponse
// @Failure 503 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /courses/{slug}/lessons/{lessonId}/submission [post]
func (cc *CoursesController) SubmitHomework(c *fiber.Ctx) error {
	var input SubmissionRequest
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	player, _, err := cc.playerAt(c)
	if player == nil {
		return err
	}
	defer player.Dispose()

	submission, err := player.SubmitHomework(c.UserContext(), input.Content)
	if err != nil {
		return flowError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, submission)
}

// playerAt loads the player and selects the lesson from the path. On failure
// the returned player is nil and err is the already written response.
func (cc *CoursesController) playerAt(c *fiber.Ctx) (*flows.Playback, flows.PlaybackState, error) {
	lessonID, err := paramUUID(c, "lessonId")
	if err != nil {
		return nil, flows.PlaybackState{}, utils.BadRequest(c, "Invalid lesson ID")
	}

	player := flows.NewPlayback(cc.Store, cc.Session, cc.options())
	state := player.Load(c.UserContext(), c.Params("slug"))
	if handled, err := loadStatusError(c, state.Status, "Course"); handled {
		player.Dispose()
		return nil, state, err
	}
	if state, err = player.Select(lessonID); err != nil {
		player.Dispose()
		return nil, state, flowError(c, err, state)
	}
	return player, state, nil
}
