package flows

import (
	"context"
	"sync"
	"time"

	"bakustack/backend/gateway"
	"bakustack/backend/models"
	"bakustack/backend/session"

	"github.com/google/uuid"
)

type pair struct{ student, target uuid.UUID }

// fakeStore is an in-memory stand-in for the gateway with the same
// uniqueness rules and error sentinels.
type fakeStore struct {
	mu          sync.Mutex
	courses     map[string]*models.Course
	enrollments map[pair]*models.Enrollment
	progress    map[pair]*models.LessonProgress
	submissions map[pair]*models.Submission
	calls       map[string]int

	courseErr    error
	enrolledErr  error
	enrollErr    error
	completeErr  error
	enrollmentsE error

	// enrollStarted is signalled and enrollGate awaited inside Enroll.
	enrollStarted chan struct{}
	enrollGate    chan struct{}
}

func newFakeStore(courses ...*models.Course) *fakeStore {
	s := &fakeStore{
		courses:     map[string]*models.Course{},
		enrollments: map[pair]*models.Enrollment{},
		progress:    map[pair]*models.LessonProgress{},
		submissions: map[pair]*models.Submission{},
		calls:       map[string]int{},
	}
	for _, c := range courses {
		s.courses[c.Slug] = c
	}
	return s
}

func (s *fakeStore) count(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

func (s *fakeStore) CourseBySlug(_ context.Context, slug string) (*models.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["CourseBySlug"]++
	if s.courseErr != nil {
		return nil, s.courseErr
	}
	c, ok := s.courses[slug]
	if !ok || !c.IsPublished {
		return nil, gateway.ErrNotFound
	}
	return copyCourse(c), nil
}

func (s *fakeStore) PublishedCourses(_ context.Context) ([]models.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["PublishedCourses"]++
	if s.courseErr != nil {
		return nil, s.courseErr
	}
	var out []models.Course
	for _, c := range s.courses {
		if c.IsPublished {
			out = append(out, *copyCourse(c))
		}
	}
	return out, nil
}

func (s *fakeStore) IsEnrolled(_ context.Context, studentID, courseID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["IsEnrolled"]++
	if s.enrolledErr != nil {
		return false, s.enrolledErr
	}
	_, ok := s.enrollments[pair{studentID, courseID}]
	return ok, nil
}

func (s *fakeStore) Enroll(_ context.Context, studentID, courseID uuid.UUID) (*models.Enrollment, error) {
	s.mu.Lock()
	s.calls["Enroll"]++
	started, gate := s.enrollStarted, s.enrollGate
	s.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		<-gate
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.enrollErr != nil {
		return nil, s.enrollErr
	}
	key := pair{studentID, courseID}
	if _, ok := s.enrollments[key]; ok {
		return nil, gateway.ErrConflict
	}
	e := &models.Enrollment{ID: uuid.New(), StudentID: studentID, CourseID: courseID, EnrolledAt: time.Now()}
	s.enrollments[key] = e
	return e, nil
}

func (s *fakeStore) StudentEnrollments(_ context.Context, studentID uuid.UUID) ([]models.Enrollment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["StudentEnrollments"]++
	if s.enrollmentsE != nil {
		return nil, s.enrollmentsE
	}
	var out []models.Enrollment
	for key, e := range s.enrollments {
		if key.student != studentID {
			continue
		}
		row := *e
		for _, c := range s.courses {
			if c.ID == e.CourseID {
				row.Course = copyCourse(c)
			}
		}
		out = append(out, row)
	}
	return out, nil
}

func (s *fakeStore) CompletedLessonIDs(_ context.Context, studentID uuid.UUID) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["CompletedLessonIDs"]++
	var ids []uuid.UUID
	for key, p := range s.progress {
		if key.student == studentID && p.Completed {
			ids = append(ids, key.target)
		}
	}
	return ids, nil
}

func (s *fakeStore) MarkLessonComplete(_ context.Context, studentID, lessonID uuid.UUID) (*models.LessonProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["MarkLessonComplete"]++
	if s.completeErr != nil {
		return nil, s.completeErr
	}
	now := time.Now()
	key := pair{studentID, lessonID}
	row, ok := s.progress[key]
	if !ok {
		row = &models.LessonProgress{ID: uuid.New(), StudentID: studentID, LessonID: lessonID}
		s.progress[key] = row
	}
	row.Completed = true
	row.CompletedAt = &now
	return row, nil
}

func (s *fakeStore) SubmitHomework(_ context.Context, studentID, lessonID uuid.UUID, content string) (*models.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["SubmitHomework"]++
	key := pair{studentID, lessonID}
	row, ok := s.submissions[key]
	if !ok {
		row = &models.Submission{ID: uuid.New(), StudentID: studentID, LessonID: lessonID}
		s.submissions[key] = row
	}
	row.Content = content
	row.Status = models.SubmissionPending
	return row, nil
}

func (s *fakeStore) progressRows(studentID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for key := range s.progress {
		if key.student == studentID {
			n++
		}
	}
	return n
}

func copyCourse(c *models.Course) *models.Course {
	out := *c
	out.Modules = make([]models.Module, len(c.Modules))
	for i, m := range c.Modules {
		m.Lessons = append([]models.Lesson(nil), m.Lessons...)
		out.Modules[i] = m
	}
	return &out
}

type fakeIdentity struct {
	profile *models.Profile
	err     error
}

func (f fakeIdentity) Current(context.Context) (*models.Profile, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.profile == nil {
		return nil, session.ErrAnonymous
	}
	return f.profile, nil
}

func anonymous() Identity { return fakeIdentity{} }

func student() *models.Profile {
	return &models.Profile{ID: uuid.New(), Email: "student@example.com", FullName: "Aysel", Role: models.RoleStudent}
}

type courseFixture struct {
	course *models.Course
	intro  uuid.UUID
	hooks  uuid.UUID
	state  uuid.UUID
}

// frontendCourse has modules stored out of order and an empty module first
// in outline order. Lesson "intro" is free, "hooks" is locked.
func frontendCourse() courseFixture {
	f := courseFixture{intro: uuid.New(), hooks: uuid.New(), state: uuid.New()}
	courseID := uuid.New()
	react := models.Module{
		ID: uuid.New(), CourseID: courseID, Title: "React Core", OrderIndex: 3,
		Lessons: []models.Lesson{
			{ID: f.state, Title: "State", OrderIndex: 2},
			{ID: f.hooks, Title: "Hooks", OrderIndex: 1, VideoURL: "https://youtu.be/dQw4w9WgXcQ"},
		},
	}
	html := models.Module{
		ID: uuid.New(), CourseID: courseID, Title: "HTML5 & CSS3", OrderIndex: 2,
		Lessons: []models.Lesson{
			{ID: f.intro, Title: "Intro", OrderIndex: 1, IsFree: true, VideoURL: "https://www.youtube.com/watch?v=dQw4w9WgXcQ", Content: "Welcome"},
		},
	}
	empty := models.Module{ID: uuid.New(), CourseID: courseID, Title: "Orientation", OrderIndex: 1}
	f.course = &models.Course{
		ID:          courseID,
		Slug:        "frontend",
		Title:       "FRONTEND",
		Description: "React + Next.js + TypeScript",
		Price:       450,
		IsPublished: true,
		Difficulty:  models.DifficultyBeginner,
		Instructor:  &models.Profile{FullName: "Baku Stack Mentor"},
		Modules:     []models.Module{react, empty, html},
	}
	return f
}
