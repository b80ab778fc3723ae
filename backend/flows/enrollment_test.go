package flows

import (
	"context"
	"errors"
	"testing"

	"bakustack/backend/inflight"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCourseDetailAnonymousSeesEnrollPrompt(t *testing.T) {
	fx := frontendCourse()
	store := newFakeStore(fx.course)
	flow := NewCourseDetail(store, anonymous(), Options{})

	st := flow.Load(context.Background(), "frontend")

	assert.Equal(t, StatusUnauthenticated, st.Status)
	require.NotNil(t, st.Course)
	assert.Equal(t, "FRONTEND", st.Course.Title)
	assert.True(t, st.CanEnroll)
	assert.Zero(t, store.count("IsEnrolled"))

	// Outline comes back sorted by order_index.
	require.Len(t, st.Course.Modules, 3)
	assert.Equal(t, "Orientation", st.Course.Modules[0].Title)
	assert.Equal(t, "Hooks", st.Course.Modules[2].Lessons[0].Title)
	assert.True(t, st.Course.Modules[2].Lessons[0].Locked)
	assert.False(t, st.Course.Modules[1].Lessons[0].Locked)
}

func TestCourseDetailNotFoundAndLoadFailed(t *testing.T) {
	store := newFakeStore(frontendCourse().course)

	st := NewCourseDetail(store, anonymous(), Options{}).Load(context.Background(), "missing")
	assert.Equal(t, StatusNotFound, st.Status)
	assert.Nil(t, st.Course)
	assert.False(t, st.CanEnroll)

	store.courseErr = errors.New("connection reset")
	st = NewCourseDetail(store, anonymous(), Options{}).Load(context.Background(), "frontend")
	assert.Equal(t, StatusLoadFailed, st.Status)
}

func TestCourseDetailUnpublishedIsNotFound(t *testing.T) {
	fx := frontendCourse()
	fx.course.IsPublished = false
	st := NewCourseDetail(newFakeStore(fx.course), anonymous(), Options{}).Load(context.Background(), "frontend")
	assert.Equal(t, StatusNotFound, st.Status)
}

func TestCourseDetailIdentityFailureIsAnonymous(t *testing.T) {
	store := newFakeStore(frontendCourse().course)
	flow := NewCourseDetail(store, fakeIdentity{err: errors.New("profile store down")}, Options{})

	st := flow.Load(context.Background(), "frontend")
	assert.Equal(t, StatusUnauthenticated, st.Status)
	assert.Zero(t, store.count("IsEnrolled"))
}

func TestEnrollAnonymousRedirectsWithoutStoreCall(t *testing.T) {
	store := newFakeStore(frontendCourse().course)
	flow := NewCourseDetail(store, anonymous(), Options{})
	flow.Load(context.Background(), "frontend")

	st, err := flow.Enroll(context.Background())

	require.ErrorIs(t, err, ErrAuthRequired)
	var authErr *AuthRequiredError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "/login?next=/courses/frontend", authErr.Redirect)
	assert.Equal(t, StatusUnauthenticated, st.Status)
	assert.Zero(t, store.count("Enroll"))
}

func TestEnrollTransitionsToEnrolledAndHidesAction(t *testing.T) {
	fx := frontendCourse()
	store := newFakeStore(fx.course)
	flow := NewCourseDetail(store, fakeIdentity{profile: student()}, Options{})

	st := flow.Load(context.Background(), "frontend")
	require.Equal(t, StatusUnenrolled, st.Status)
	assert.True(t, st.CanEnroll)

	st, err := flow.Enroll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusEnrolled, st.Status)
	assert.False(t, st.CanEnroll)
	for _, m := range st.Course.Modules {
		for _, l := range m.Lessons {
			assert.False(t, l.Locked, l.Title)
		}
	}

	_, err = flow.Enroll(context.Background())
	assert.ErrorIs(t, err, ErrActionUnavailable)
	assert.Equal(t, 1, store.count("Enroll"))
}

func TestEnrolledViewerLoadsEnrolledState(t *testing.T) {
	fx := frontendCourse()
	store := newFakeStore(fx.course)
	viewer := student()
	_, err := store.Enroll(context.Background(), viewer.ID, fx.course.ID)
	require.NoError(t, err)

	flow := NewCourseDetail(store, fakeIdentity{profile: viewer}, Options{})
	st := flow.Load(context.Background(), "frontend")
	assert.Equal(t, StatusEnrolled, st.Status)
	assert.False(t, st.CanEnroll)

	_, err = flow.Enroll(context.Background())
	assert.ErrorIs(t, err, ErrActionUnavailable)
	assert.Equal(t, 1, store.count("Enroll"))
}

func TestEnrollFailureStaysUnenrolled(t *testing.T) {
	store := newFakeStore(frontendCourse().course)
	store.enrollErr = errors.New("timeout")
	flow := NewCourseDetail(store, fakeIdentity{profile: student()}, Options{})
	flow.Load(context.Background(), "frontend")

	st, err := flow.Enroll(context.Background())

	var writeErr *WriteError
	require.ErrorAs(t, err, &writeErr)
	assert.Equal(t, StatusUnenrolled, st.Status)
	assert.NotEmpty(t, st.Notice)
	require.NotNil(t, st.Course)
	assert.Equal(t, "FRONTEND", st.Course.Title)
	assert.True(t, st.CanEnroll)

	store.mu.Lock()
	store.enrollErr = nil
	store.mu.Unlock()
	st, err = flow.Enroll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusEnrolled, st.Status)
	assert.Empty(t, st.Notice)
}

func TestEnrollConflictMeansAlreadyEnrolled(t *testing.T) {
	fx := frontendCourse()
	store := newFakeStore(fx.course)
	viewer := student()
	flow := NewCourseDetail(store, fakeIdentity{profile: viewer}, Options{})
	flow.Load(context.Background(), "frontend")

	// Enrolled from another tab after this page loaded.
	_, err := store.Enroll(context.Background(), viewer.ID, fx.course.ID)
	require.NoError(t, err)

	st, err := flow.Enroll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusEnrolled, st.Status)
}

func blockEnroll(store *fakeStore) (started, gate chan struct{}) {
	started, gate = make(chan struct{}, 1), make(chan struct{})
	store.mu.Lock()
	store.enrollStarted, store.enrollGate = started, gate
	store.mu.Unlock()
	return started, gate
}

func TestEnrollIsSingleFlight(t *testing.T) {
	store := newFakeStore(frontendCourse().course)
	flow := NewCourseDetail(store, fakeIdentity{profile: student()}, Options{})
	flow.Load(context.Background(), "frontend")
	started, gate := blockEnroll(store)

	errs := make(chan error, 1)
	go func() {
		_, err := flow.Enroll(context.Background())
		errs <- err
	}()
	<-started

	st := flow.State()
	assert.True(t, st.Enrolling)
	assert.False(t, st.CanEnroll)

	_, err := flow.Enroll(context.Background())
	assert.ErrorIs(t, err, ErrInFlight)

	close(gate)
	require.NoError(t, <-errs)
	assert.Equal(t, 1, store.count("Enroll"))
	assert.Equal(t, StatusEnrolled, flow.State().Status)
	assert.False(t, flow.State().Enrolling)
}

func TestSharedGuardSpansFlowInstances(t *testing.T) {
	store := newFakeStore(frontendCourse().course)
	viewer := student()
	opts := Options{Guard: inflight.NewMemory()}

	first := NewCourseDetail(store, fakeIdentity{profile: viewer}, opts)
	second := NewCourseDetail(store, fakeIdentity{profile: viewer}, opts)
	first.Load(context.Background(), "frontend")
	second.Load(context.Background(), "frontend")
	started, gate := blockEnroll(store)

	errs := make(chan error, 1)
	go func() {
		_, err := first.Enroll(context.Background())
		errs <- err
	}()
	<-started

	_, err := second.Enroll(context.Background())
	assert.ErrorIs(t, err, ErrInFlight)

	close(gate)
	require.NoError(t, <-errs)
	assert.Equal(t, 1, store.count("Enroll"))
}

func TestDisposeDiscardsLateEnrollResult(t *testing.T) {
	store := newFakeStore(frontendCourse().course)
	flow := NewCourseDetail(store, fakeIdentity{profile: student()}, Options{})
	flow.Load(context.Background(), "frontend")
	started, gate := blockEnroll(store)

	errs := make(chan error, 1)
	go func() {
		_, err := flow.Enroll(context.Background())
		errs <- err
	}()
	<-started
	flow.Dispose()
	close(gate)

	require.NoError(t, <-errs)
	assert.Equal(t, StatusUnenrolled, flow.State().Status)

	_, err := flow.Enroll(context.Background())
	assert.ErrorIs(t, err, ErrDisposed)
}

func TestReloadSupersedesPendingEnroll(t *testing.T) {
	fx := frontendCourse()
	store := newFakeStore(fx.course)
	flow := NewCourseDetail(store, fakeIdentity{profile: student()}, Options{})
	flow.Load(context.Background(), "frontend")
	started, gate := blockEnroll(store)

	errs := make(chan error, 1)
	go func() {
		_, err := flow.Enroll(context.Background())
		errs <- err
	}()
	<-started

	// Navigating to another course while the enroll is pending.
	other := frontendCourse().course
	other.Slug, other.Title = "backend", "BACKEND"
	store.mu.Lock()
	store.courses["backend"] = other
	store.mu.Unlock()
	st := flow.Load(context.Background(), "backend")
	require.Equal(t, StatusUnenrolled, st.Status)

	close(gate)
	require.NoError(t, <-errs)

	st = flow.State()
	assert.Equal(t, StatusUnenrolled, st.Status)
	assert.Equal(t, "BACKEND", st.Course.Title)
}
