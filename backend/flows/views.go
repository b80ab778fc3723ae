package flows

import (
	"bakustack/backend/models"
	"bakustack/backend/utils"

	"github.com/google/uuid"
)

// Status names the state a flow instance is in.
type Status string

const (
	StatusLoading    Status = "loading"
	StatusLoaded     Status = "loaded"
	StatusNotFound   Status = "not-found"
	StatusLoadFailed Status = "load-failed"

	StatusUnauthenticated Status = "loaded-unauthenticated"
	StatusUnenrolled      Status = "loaded-unenrolled"
	StatusEnrolled        Status = "loaded-enrolled"
)

type CourseView struct {
	ID           uuid.UUID         `json:"id"`
	Slug         string            `json:"slug"`
	Title        string            `json:"title"`
	Description  string            `json:"description,omitempty"`
	Price        float64           `json:"price"`
	Difficulty   models.Difficulty `json:"difficulty,omitempty"`
	ThumbnailURL string            `json:"thumbnail_url,omitempty"`
	Instructor   string            `json:"instructor,omitempty"`
	LessonCount  int               `json:"lesson_count"`
	Modules      []ModuleView      `json:"modules"`
}

type ModuleView struct {
	ID         uuid.UUID    `json:"id"`
	Title      string       `json:"title"`
	OrderIndex int          `json:"order_index"`
	Lessons    []LessonView `json:"lessons"`
}

type LessonView struct {
	ID         uuid.UUID `json:"id"`
	Title      string    `json:"title"`
	Duration   int       `json:"duration"`
	OrderIndex int       `json:"order_index"`
	IsFree     bool      `json:"is_free"`
	Locked     bool      `json:"locked"`
	Completed  bool      `json:"completed"`
	HasVideo   bool      `json:"has_video"`
}

// lessonLocked is the access rule: enrolled viewers see everything, others
// only free lessons.
func lessonLocked(lesson *models.Lesson, enrolled bool) bool {
	return !enrolled && !lesson.IsFree
}

func instructorName(course *models.Course) string {
	if course.Instructor == nil {
		return ""
	}
	return course.Instructor.FullName
}

// newCourseView expects course.SortOutline to have run.
func newCourseView(course *models.Course, enrolled bool, completed map[uuid.UUID]struct{}) *CourseView {
	view := &CourseView{
		ID:           course.ID,
		Slug:         course.Slug,
		Title:        course.Title,
		Description:  course.Description,
		Price:        course.Price,
		Difficulty:   course.Difficulty,
		ThumbnailURL: course.ThumbnailURL,
		Instructor:   instructorName(course),
		LessonCount:  course.LessonCount(),
		Modules:      make([]ModuleView, 0, len(course.Modules)),
	}
	for i := range course.Modules {
		m := &course.Modules[i]
		mv := ModuleView{
			ID:         m.ID,
			Title:      m.Title,
			OrderIndex: m.OrderIndex,
			Lessons:    make([]LessonView, 0, len(m.Lessons)),
		}
		for j := range m.Lessons {
			l := &m.Lessons[j]
			_, done := completed[l.ID]
			mv.Lessons = append(mv.Lessons, LessonView{
				ID:         l.ID,
				Title:      l.Title,
				Duration:   l.Duration,
				OrderIndex: l.OrderIndex,
				IsFree:     l.IsFree,
				Locked:     lessonLocked(l, enrolled),
				Completed:  done,
				HasVideo:   utils.EmbedVideo(l.VideoURL).Available(),
			})
		}
		view.Modules = append(view.Modules, mv)
	}
	return view
}
