package flows

import (
	"context"
	"strings"

	"bakustack/backend/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CatalogStore interface {
	PublishedCourses(ctx context.Context) ([]models.Course, error)
}

// CourseCard is the summary shown in the catalog grid.
type CourseCard struct {
	ID           uuid.UUID         `json:"id"`
	Slug         string            `json:"slug"`
	Title        string            `json:"title"`
	Description  string            `json:"description,omitempty"`
	Price        float64           `json:"price"`
	Difficulty   models.Difficulty `json:"difficulty,omitempty"`
	ThumbnailURL string            `json:"thumbnail_url,omitempty"`
	Instructor   string            `json:"instructor,omitempty"`
	ModuleCount  int               `json:"module_count"`
	LessonCount  int               `json:"lesson_count"`
}

type CatalogQuery struct {
	Search     string
	Difficulty models.Difficulty
}

type CatalogState struct {
	Status  Status       `json:"status"`
	Courses []CourseCard `json:"courses"`
	Notice  string       `json:"notice,omitempty"`
}

type Catalog struct {
	store CatalogStore
	log   *zap.Logger
}

func NewCatalog(store CatalogStore, opts Options) *Catalog {
	return &Catalog{store: store, log: opts.logger("catalog")}
}

// Load lists published courses matching q. A failed read yields the
// load-failed state; there is no retry.
func (f *Catalog) Load(ctx context.Context, q CatalogQuery) CatalogState {
	courses, err := f.store.PublishedCourses(ctx)
	if err != nil {
		f.log.Warn("catalog load failed", zap.Error(err))
		return CatalogState{
			Status:  StatusLoadFailed,
			Courses: []CourseCard{},
			Notice:  "courses could not be loaded",
		}
	}

	search := strings.ToLower(strings.TrimSpace(q.Search))
	cards := make([]CourseCard, 0, len(courses))
	for i := range courses {
		c := &courses[i]
		if q.Difficulty != "" && c.Difficulty != q.Difficulty {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(c.Title), search) &&
			!strings.Contains(strings.ToLower(c.Description), search) {
			continue
		}
		cards = append(cards, CourseCard{
			ID:           c.ID,
			Slug:         c.Slug,
			Title:        c.Title,
			Description:  c.Description,
			Price:        c.Price,
			Difficulty:   c.Difficulty,
			ThumbnailURL: c.ThumbnailURL,
			Instructor:   instructorName(c),
			ModuleCount:  len(c.Modules),
			LessonCount:  c.LessonCount(),
		})
	}
	return CatalogState{Status: StatusLoaded, Courses: cards}
}
