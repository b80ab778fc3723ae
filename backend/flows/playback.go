package flows

import (
	"context"
	"errors"
	"sort"
	"strings"

	"bakustack/backend/gateway"
	"bakustack/backend/models"
	"bakustack/backend/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type PlaybackStore interface {
	CourseBySlug(ctx context.Context, slug string) (*models.Course, error)
	IsEnrolled(ctx context.Context, studentID, courseID uuid.UUID) (bool, error)
	CompletedLessonIDs(ctx context.Context, studentID uuid.UUID) ([]uuid.UUID, error)
	MarkLessonComplete(ctx context.Context, studentID, lessonID uuid.UUID) (*models.LessonProgress, error)
	SubmitHomework(ctx context.Context, studentID, lessonID uuid.UUID, content string) (*models.Submission, error)
}

// SelectedLesson is the lesson in the player. Content and video stay empty
// while the lesson is locked.
type SelectedLesson struct {
	ModuleID    uuid.UUID        `json:"module_id"`
	ModuleTitle string           `json:"module_title"`
	ID          uuid.UUID        `json:"id"`
	Title       string           `json:"title"`
	Content     string           `json:"content,omitempty"`
	Duration    int              `json:"duration"`
	IsFree      bool             `json:"is_free"`
	Locked      bool             `json:"locked"`
	Completed   bool             `json:"completed"`
	Video       utils.VideoEmbed `json:"video"`
}

type PlaybackState struct {
	Status    Status          `json:"status"`
	Course    *CourseView     `json:"course,omitempty"`
	Enrolled  bool            `json:"enrolled"`
	Selected  *SelectedLesson `json:"selected,omitempty"`
	Completed []uuid.UUID     `json:"completed_lesson_ids"`
	Progress  int             `json:"progress"`
	Pending   []string        `json:"pending,omitempty"`
	Notice    string          `json:"notice,omitempty"`
}

// Playback is one session in the lesson player of a course.
type Playback struct {
	lifecycle

	store    PlaybackStore
	identity Identity
	opts     Options
	log      *zap.Logger
	actions  singleFlight

	status    Status
	slug      string
	course    *models.Course
	viewer    *models.Profile
	enrolled  bool
	completed map[uuid.UUID]struct{}
	selected  uuid.UUID
	notice    string
}

func NewPlayback(store PlaybackStore, identity Identity, opts Options) *Playback {
	return &Playback{
		store:     store,
		identity:  identity,
		opts:      opts,
		log:       opts.logger("playback"),
		status:    StatusLoading,
		completed: map[uuid.UUID]struct{}{},
	}
}

// Load fetches the outline, then the viewer's enrollment and completed
// lessons, and selects the first lesson in outline order.
func (f *Playback) Load(ctx context.Context, slug string) PlaybackState {
	gen := f.begin(func() {
		f.status = StatusLoading
		f.slug = slug
		f.course = nil
		f.viewer = nil
		f.enrolled = false
		f.completed = map[uuid.UUID]struct{}{}
		f.selected = uuid.Nil
		f.notice = ""
	})

	course, err := f.store.CourseBySlug(ctx, slug)
	if err != nil {
		status := StatusLoadFailed
		if errors.Is(err, gateway.ErrNotFound) {
			status = StatusNotFound
		} else {
			f.log.Warn("playback load failed", zap.String("slug", slug), zap.Error(err))
		}
		f.commit(gen, func() { f.status = status })
		return f.State()
	}
	course.SortOutline()

	viewer := resolveViewer(ctx, f.identity, f.log)
	enrolled := false
	completed := map[uuid.UUID]struct{}{}
	notice := ""
	if viewer != nil {
		enrolled, err = f.store.IsEnrolled(ctx, viewer.ID, course.ID)
		if err != nil {
			f.log.Warn("enrollment check failed", zap.String("slug", slug), zap.Error(err))
			enrolled = false
			notice = "enrollment status could not be checked"
		}
		ids, err := f.store.CompletedLessonIDs(ctx, viewer.ID)
		if err != nil {
			f.log.Warn("completed lessons load failed", zap.String("slug", slug), zap.Error(err))
			notice = "progress could not be loaded"
		}
		for _, id := range ids {
			if _, l := course.FindLesson(id); l != nil {
				completed[id] = struct{}{}
			}
		}
	}

	f.commit(gen, func() {
		f.status = StatusLoaded
		f.course = course
		f.viewer = viewer
		f.enrolled = enrolled
		f.completed = completed
		f.notice = notice
		if _, first := course.FirstLesson(); first != nil {
			f.selected = first.ID
		}
	})
	return f.State()
}

// Select moves the player to lessonID. A locked lesson is rejected and the
// selection stays where it was.
func (f *Playback) Select(lessonID uuid.UUID) (PlaybackState, error) {
	var err error
	f.withLock(func() {
		switch {
		case f.disposed:
			err = ErrDisposed
		case f.status != StatusLoaded:
			err = ErrActionUnavailable
		default:
			_, lesson := f.course.FindLesson(lessonID)
			switch {
			case lesson == nil:
				err = ErrLessonNotFound
			case lessonLocked(lesson, f.enrolled):
				err = ErrLessonLocked
			default:
				f.selected = lesson.ID
			}
		}
	})
	return f.State(), err
}

// MarkComplete records the selected lesson as completed. The completed set
// changes only after the store confirms the write.
func (f *Playback) MarkComplete(ctx context.Context) (PlaybackState, error) {
	gen, viewer, lessonID, err := f.prepareAction()
	if err != nil {
		return f.State(), err
	}
	err = f.markComplete(ctx, gen, viewer, lessonID)
	return f.State(), err
}

func (f *Playback) markComplete(ctx context.Context, gen uint64, viewer *models.Profile, lessonID uuid.UUID) error {
	done, ok := f.actions.enter("complete")
	if !ok {
		return ErrInFlight
	}
	defer done()

	release, err := f.opts.acquire(ctx, "complete", viewer.ID, lessonID)
	if err != nil {
		return err
	}
	defer release()

	if _, err := f.store.MarkLessonComplete(ctx, viewer.ID, lessonID); err != nil {
		f.log.Warn("mark complete failed",
			zap.String("lesson_id", lessonID.String()),
			zap.String("profile_id", viewer.ID.String()),
			zap.Error(err))
		f.commit(gen, func() { f.notice = "progress was not saved, please try again" })
		return &WriteError{Op: "mark complete", Err: err}
	}

	f.commit(gen, func() {
		f.completed[lessonID] = struct{}{}
		f.notice = ""
	})
	return nil
}

// SubmitHomework stores the viewer's answer for the selected lesson.
// Empty content is rejected before any store call.
func (f *Playback) SubmitHomework(ctx context.Context, content string) (*models.Submission, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptySubmission
	}
	gen, viewer, lessonID, err := f.prepareAction()
	if err != nil {
		return nil, err
	}

	done, ok := f.actions.enter("submit")
	if !ok {
		return nil, ErrInFlight
	}
	defer done()

	release, err := f.opts.acquire(ctx, "submit", viewer.ID, lessonID)
	if err != nil {
		return nil, err
	}
	defer release()

	sub, err := f.store.SubmitHomework(ctx, viewer.ID, lessonID, content)
	if err != nil {
		f.log.Warn("submit homework failed",
			zap.String("lesson_id", lessonID.String()),
			zap.String("profile_id", viewer.ID.String()),
			zap.Error(err))
		f.commit(gen, func() { f.notice = "homework was not submitted, please try again" })
		return nil, &WriteError{Op: "submit homework", Err: err}
	}
	return sub, nil
}

// prepareAction checks the preconditions shared by the player's mutations.
func (f *Playback) prepareAction() (uint64, *models.Profile, uuid.UUID, error) {
	var (
		status   Status
		viewer   *models.Profile
		enrolled bool
		lessonID uuid.UUID
		slug     string
	)
	gen, err := f.snapshot(func() {
		status, viewer, enrolled, lessonID, slug = f.status, f.viewer, f.enrolled, f.selected, f.slug
	})
	if err != nil {
		return 0, nil, uuid.Nil, err
	}
	switch {
	case status != StatusLoaded:
		return 0, nil, uuid.Nil, ErrActionUnavailable
	case viewer == nil:
		return 0, nil, uuid.Nil, &AuthRequiredError{Redirect: loginRedirect("/courses/" + slug + "/learn")}
	case !enrolled:
		return 0, nil, uuid.Nil, ErrNotEnrolled
	case lessonID == uuid.Nil:
		return 0, nil, uuid.Nil, ErrNoLessonSelected
	}
	return gen, viewer, lessonID, nil
}

// Progress is the share of the course's lessons in the completed set.
func (f *Playback) Progress() int {
	var pct int
	f.withLock(func() { pct = f.progressLocked() })
	return pct
}

func (f *Playback) progressLocked() int {
	if f.course == nil {
		return 0
	}
	return models.ProgressPercent(len(f.completed), f.course.LessonCount())
}

// IsCompleted reports whether lessonID is in the completed set.
func (f *Playback) IsCompleted(lessonID uuid.UUID) bool {
	var ok bool
	f.withLock(func() { _, ok = f.completed[lessonID] })
	return ok
}

func (f *Playback) State() PlaybackState {
	var st PlaybackState
	f.withLock(func() {
		st = PlaybackState{
			Status:    f.status,
			Enrolled:  f.enrolled,
			Completed: make([]uuid.UUID, 0, len(f.completed)),
			Notice:    f.notice,
		}
		if f.course == nil {
			return
		}
		st.Course = newCourseView(f.course, f.enrolled, f.completed)
		for id := range f.completed {
			st.Completed = append(st.Completed, id)
		}
		sort.Slice(st.Completed, func(i, j int) bool {
			return st.Completed[i].String() < st.Completed[j].String()
		})
		st.Progress = f.progressLocked()
		st.Selected = f.selectedLocked()
	})
	for _, action := range []string{"complete", "submit"} {
		if f.actions.busy(action) {
			st.Pending = append(st.Pending, action)
		}
	}
	return st
}

func (f *Playback) selectedLocked() *SelectedLesson {
	if f.selected == uuid.Nil {
		return nil
	}
	module, lesson := f.course.FindLesson(f.selected)
	if lesson == nil {
		return nil
	}
	_, done := f.completed[lesson.ID]
	sel := &SelectedLesson{
		ModuleID:    module.ID,
		ModuleTitle: module.Title,
		ID:          lesson.ID,
		Title:       lesson.Title,
		Duration:    lesson.Duration,
		IsFree:      lesson.IsFree,
		Locked:      lessonLocked(lesson, f.enrolled),
		Completed:   done,
	}
	if !sel.Locked {
		sel.Content = lesson.Content
		sel.Video = utils.EmbedVideo(lesson.VideoURL)
	}
	return sel
}
