package routes

import (
	"bakustack/backend/chat"
	"bakustack/backend/controllers"
	"bakustack/backend/gateway"
	"bakustack/backend/inflight"
	"bakustack/backend/middleware"
	"bakustack/backend/session"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type Dependencies struct {
	Store     *gateway.Gateway
	Session   *session.Accessor
	Guard     inflight.Guard
	Assistant *chat.Assistant
	Checks    map[string]controllers.Pinger
	Log       *zap.Logger
}

func SetupRoutes(app *fiber.App, deps Dependencies) {
	healthController := controllers.NewHealthController(deps.Checks)
	app.Get("/healthz", healthController.Health)

	api := app.Group("/api", middleware.SessionMiddleware())

	// Middleware
	authMiddleware := middleware.AuthMiddleware(deps.Session)
	instructorMiddleware := middleware.InstructorMiddleware()

	// Auth routes
	authController := controllers.NewAuthController(deps.Session, deps.Log)
	api.Post("/auth/signup", authController.SignUp)
	api.Post("/auth/signin", authController.SignIn)
	api.Post("/auth/signout", authMiddleware, authController.SignOut)

	// User routes
	userController := controllers.NewUserController(deps.Store, deps.Log)
	api.Get("/user/profile", authMiddleware, userController.GetProfile)
	api.Put("/user/profile", authMiddleware, userController.UpdateProfile)

	// Catalog and course routes; identity is optional here
	overviewController := controllers.NewOverviewController(deps.Store, deps.Log)
	coursesController := controllers.NewCoursesController(deps.Store, deps.Session, deps.Guard, deps.Log)
	progressController := controllers.NewProgressController(deps.Store, deps.Session, deps.Log)
	courses := api.Group("/courses")
	courses.Get("/", overviewController.SearchCourses)
	courses.Get("/:slug", coursesController.GetCourseDetails)
	courses.Post("/:slug/enroll", coursesController.Enroll)
	courses.Get("/:slug/learn", coursesController.Learn)
	courses.Get("/:slug/progress", authMiddleware, progressController.GetCourseProgress)
	courses.Post("/:slug/lessons/:lessonId/complete", authMiddleware, coursesController.CompleteLesson)
	courses.Post("/:slug/lessons/:lessonId/submission", authMiddleware, coursesController.SubmitHomework)

	// Dashboard
	api.Get("/dashboard", progressController.GetDashboard)

	// Instructor routes
	instructorController := controllers.NewInstructorController(deps.Store, deps.Log)
	instructor := api.Group("/instructor", authMiddleware, instructorMiddleware)
	instructor.Get("/courses", instructorController.GetCourses)
	instructor.Get("/lessons/:lessonId/submissions", instructorController.GetLessonSubmissions)
	instructor.Put("/submissions/:id/grade", instructorController.GradeSubmission)

	// Chat
	chatController := controllers.NewChatController(deps.Assistant)
	api.Post("/chat", chatController.Chat)
}
