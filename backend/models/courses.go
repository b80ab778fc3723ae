package models

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

type Course struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Slug         string     `gorm:"uniqueIndex;not null" json:"slug"`
	Title        string     `gorm:"not null" json:"title"`
	Description  string     `json:"description,omitempty"`
	Price        float64    `json:"price"`
	IsPublished  bool       `gorm:"not null;default:false;index" json:"is_published"`
	ThumbnailURL string     `json:"thumbnail_url,omitempty"`
	Difficulty   Difficulty `gorm:"type:varchar(20)" json:"difficulty,omitempty"`
	InstructorID uuid.UUID  `gorm:"type:uuid;index" json:"instructor_id"`
	Instructor   *Profile   `gorm:"foreignKey:InstructorID" json:"instructor,omitempty"`
	Modules      []Module   `gorm:"foreignKey:CourseID" json:"modules,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type Module struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID    uuid.UUID `gorm:"type:uuid;index;not null" json:"course_id"`
	Title       string    `gorm:"not null" json:"title"`
	Description string    `json:"description,omitempty"`
	OrderIndex  int       `gorm:"not null;default:0" json:"order_index"`
	Lessons     []Lesson  `gorm:"foreignKey:ModuleID" json:"lessons,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Lesson struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ModuleID   uuid.UUID `gorm:"type:uuid;index;not null" json:"module_id"`
	Title      string    `gorm:"not null" json:"title"`
	VideoURL   string    `json:"video_url,omitempty"`
	Content    string    `json:"content,omitempty"`
	Duration   int       `json:"duration"` // minutes
	OrderIndex int       `gorm:"not null;default:0" json:"order_index"`
	IsFree     bool      `gorm:"not null;default:false" json:"is_free"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (c *Course) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

func (m *Module) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

func (l *Lesson) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// SortOutline orders modules and their lessons by order_index. The store does
// not guarantee nested ordering, so callers run this after every load.
func (c *Course) SortOutline() {
	sort.SliceStable(c.Modules, func(i, j int) bool {
		return c.Modules[i].OrderIndex < c.Modules[j].OrderIndex
	})
	for i := range c.Modules {
		lessons := c.Modules[i].Lessons
		sort.SliceStable(lessons, func(a, b int) bool {
			return lessons[a].OrderIndex < lessons[b].OrderIndex
		})
	}
}

// LessonCount returns the number of lessons across all modules.
func (c *Course) LessonCount() int {
	n := 0
	for _, m := range c.Modules {
		n += len(m.Lessons)
	}
	return n
}

// FindLesson looks a lesson up by id and reports the module that owns it.
func (c *Course) FindLesson(id uuid.UUID) (*Module, *Lesson) {
	for i := range c.Modules {
		for j := range c.Modules[i].Lessons {
			if c.Modules[i].Lessons[j].ID == id {
				return &c.Modules[i], &c.Modules[i].Lessons[j]
			}
		}
	}
	return nil, nil
}

// FirstLesson returns the first lesson in outline order, skipping empty modules.
func (c *Course) FirstLesson() (*Module, *Lesson) {
	for i := range c.Modules {
		if len(c.Modules[i].Lessons) > 0 {
			return &c.Modules[i], &c.Modules[i].Lessons[0]
		}
	}
	return nil, nil
}
