package flows

import (
	"context"
	"errors"

	"bakustack/backend/gateway"
	"bakustack/backend/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CourseStore interface {
	CourseBySlug(ctx context.Context, slug string) (*models.Course, error)
	IsEnrolled(ctx context.Context, studentID, courseID uuid.UUID) (bool, error)
	Enroll(ctx context.Context, studentID, courseID uuid.UUID) (*models.Enrollment, error)
}

type DetailState struct {
	Status    Status      `json:"status"`
	Course    *CourseView `json:"course,omitempty"`
	CanEnroll bool        `json:"can_enroll"`
	Enrolling bool        `json:"enrolling"`
	Notice    string      `json:"notice,omitempty"`
}

// CourseDetail is one viewing of a course page: it loads the course, works
// out the viewer's enrollment and runs the enroll action.
type CourseDetail struct {
	lifecycle

	store    CourseStore
	identity Identity
	opts     Options
	log      *zap.Logger
	actions  singleFlight

	slug   string
	course *models.Course
	viewer *models.Profile
	state  DetailState
}

func NewCourseDetail(store CourseStore, identity Identity, opts Options) *CourseDetail {
	return &CourseDetail{
		store:    store,
		identity: identity,
		opts:     opts,
		log:      opts.logger("course_detail"),
		state:    DetailState{Status: StatusLoading},
	}
}

// Load fetches the course, then resolves the viewer, then checks enrollment.
// Not-found and read failures are terminal states, not errors.
func (f *CourseDetail) Load(ctx context.Context, slug string) DetailState {
	gen := f.begin(func() {
		f.slug = slug
		f.course = nil
		f.viewer = nil
		f.state = DetailState{Status: StatusLoading}
	})

	course, err := f.store.CourseBySlug(ctx, slug)
	if err != nil {
		status := StatusLoadFailed
		if errors.Is(err, gateway.ErrNotFound) {
			status = StatusNotFound
		} else {
			f.log.Warn("course load failed", zap.String("slug", slug), zap.Error(err))
		}
		f.commit(gen, func() { f.state = DetailState{Status: status} })
		return f.State()
	}
	course.SortOutline()

	viewer := resolveViewer(ctx, f.identity, f.log)
	status := StatusUnauthenticated
	notice := ""
	if viewer != nil {
		enrolled, err := f.store.IsEnrolled(ctx, viewer.ID, course.ID)
		switch {
		case err != nil:
			f.log.Warn("enrollment check failed",
				zap.String("slug", slug),
				zap.String("profile_id", viewer.ID.String()),
				zap.Error(err))
			status = StatusUnenrolled
			notice = "enrollment status could not be checked"
		case enrolled:
			status = StatusEnrolled
		default:
			status = StatusUnenrolled
		}
	}

	f.commit(gen, func() {
		f.course = course
		f.viewer = viewer
		f.state = DetailState{
			Status: status,
			Course: newCourseView(course, status == StatusEnrolled, nil),
			Notice: notice,
		}
	})
	return f.State()
}

// Enroll enrolls the viewer. Anonymous viewers get an AuthRequiredError and
// no store call; an enrolled or unloaded page reports ErrActionUnavailable.
func (f *CourseDetail) Enroll(ctx context.Context) (DetailState, error) {
	var (
		status Status
		course *models.Course
		viewer *models.Profile
		slug   string
	)
	gen, err := f.snapshot(func() {
		status, course, viewer, slug = f.state.Status, f.course, f.viewer, f.slug
	})
	if err != nil {
		return f.State(), err
	}

	switch status {
	case StatusUnauthenticated:
		return f.State(), &AuthRequiredError{Redirect: loginRedirect("/courses/" + slug)}
	case StatusUnenrolled:
	default:
		return f.State(), ErrActionUnavailable
	}

	err = f.enroll(ctx, gen, course, viewer, slug)
	return f.State(), err
}

func (f *CourseDetail) enroll(ctx context.Context, gen uint64, course *models.Course, viewer *models.Profile, slug string) error {
	done, ok := f.actions.enter("enroll")
	if !ok {
		return ErrInFlight
	}
	defer done()

	release, err := f.opts.acquire(ctx, "enroll", viewer.ID, course.ID)
	if err != nil {
		return err
	}
	defer release()

	_, err = f.store.Enroll(ctx, viewer.ID, course.ID)
	if err != nil && !errors.Is(err, gateway.ErrConflict) {
		f.log.Warn("enroll failed",
			zap.String("slug", slug),
			zap.String("profile_id", viewer.ID.String()),
			zap.Error(err))
		f.commit(gen, func() { f.state.Notice = "enrollment failed, please try again" })
		return &WriteError{Op: "enroll", Err: err}
	}

	// A conflict means the pair is already enrolled, which is the state we want.
	f.commit(gen, func() {
		f.state = DetailState{
			Status: StatusEnrolled,
			Course: newCourseView(course, true, nil),
		}
	})
	return nil
}

// State returns a copy of the current state with the enroll action's
// availability filled in.
func (f *CourseDetail) State() DetailState {
	var st DetailState
	f.withLock(func() { st = f.state })
	st.Enrolling = f.actions.busy("enroll")
	st.CanEnroll = !st.Enrolling &&
		(st.Status == StatusUnenrolled || st.Status == StatusUnauthenticated)
	return st
}
