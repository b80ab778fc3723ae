package controllers

import (
	"strings"

	"bakustack/backend/flows"
	"bakustack/backend/gateway"
	"bakustack/backend/models"
	"bakustack/backend/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type OverviewController struct {
	Store *gateway.Gateway
	Log   *zap.Logger
}

func NewOverviewController(store *gateway.Gateway, log *zap.Logger) *OverviewController {
	return &OverviewController{Store: store, Log: log}
}

// SearchCourses godoc
// @Summary Course catalog
// @Description Lists published courses, optionally filtered by text and difficulty
// @Tags courses
// @Produce json
// @Param search query string false "Text in title or description"
// @Param difficulty query string false "beginner, intermediate or advanced"
// @Success 200 {object} utils.SuccessResponse
// @Failure 422 {object} utils.ErrorResponse
// @Failure 503 {object} utils.ErrorResponse
// @Router /courses [get]
func (oc *OverviewController) SearchCourses(c *fiber.Ctx) error {
	difficulty := models.Difficulty(strings.ToLower(strings.TrimSpace(c.Query("difficulty"))))
	switch difficulty {
	case "", models.DifficultyBeginner, models.DifficultyIntermediate, models.DifficultyAdvanced:
	default:
		return utils.ValidationError(c, map[string]string{"difficulty": "Must be beginner, intermediate or advanced"})
	}

	state := flows.NewCatalog(oc.Store, flows.Options{Log: oc.Log}).Load(c.UserContext(), flows.CatalogQuery{
		Search:     c.Query("search"),
		Difficulty: difficulty,
	})
	if handled, err := loadStatusError(c, state.Status, "courses"); handled {
		return err
	}
	return utils.Success(c, fiber.StatusOK, state.Courses, fiber.Map{"total": len(state.Courses)})
}
