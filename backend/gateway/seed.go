package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bakustack/backend/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type seedCourse struct {
	Slug        string
	Title       string
	Tech        string
	Months      int
	Price       float64
	Difficulty  models.Difficulty
	ModuleNames []string
}

// starterCatalog is the launch catalog of the school.
var starterCatalog = []seedCourse{
	{
		Slug: "frontend", Title: "FRONTEND", Tech: "React + Next.js + TypeScript", Months: 4, Price: 450,
		Difficulty: models.DifficultyBeginner,
		ModuleNames: []string{
			"HTML5 & CSS3 (Flexbox, Grid)",
			"JavaScript ES6+ (Async/Await, DOM)",
			"React Core (Hooks, State)",
			"TypeScript Basics",
			"Next.js & Routing",
			"Git & GitHub Flow",
			"Final Project (Portfolio)",
		},
	},
	{
		Slug: "qa", Title: "QA AUTOMATION", Tech: "Python + PyTest + Jenkins", Months: 3, Price: 350,
		Difficulty: models.DifficultyBeginner,
		ModuleNames: []string{
			"Software Testing Life Cycle (STLC)",
			"SQL Databases & API Testing",
			"Python for Testers",
			"PyTest Framework",
			"CI/CD (Jenkins/GitLab)",
			"Mobile Testing Basics",
			"Bug Reports (Jira)",
		},
	},
	{
		Slug: "backend", Title: "BACKEND", Tech: "Node.js + PostgreSQL + Redis", Months: 5, Price: 500,
		Difficulty: models.DifficultyIntermediate,
		ModuleNames: []string{
			"Node.js & Express",
			"RESTful API Design",
			"PostgreSQL & SQL",
			"Authentication (JWT)",
			"Redis Caching",
			"Docker Basics",
			"System Architecture",
		},
	},
	{
		Slug: "ux-design", Title: "UX / UI DESIGN", Tech: "Figma + Prototyping", Months: 3, Price: 350,
		Difficulty: models.DifficultyBeginner,
		ModuleNames: []string{
			"Design Thinking Principles",
			"Wireframing (Balsamiq)",
			"Figma Mastery",
			"Typography & Color Theory",
			"Prototyping & User Testing",
			"Design Systems",
		},
	},
	{
		Slug: "mobile", Title: "MOBILE APPS", Tech: "Flutter + Dart", Months: 4, Price: 450,
		Difficulty: models.DifficultyIntermediate,
		ModuleNames: []string{
			"Dart Fundamentals",
			"Flutter Widgets",
			"State Management",
			"API Integration",
			"Firebase Integration",
			"Publishing to App Store/Play Store",
		},
	},
	{
		Slug: "devops", Title: "DEVOPS", Tech: "Docker + Kubernetes + AWS", Months: 5, Price: 550,
		Difficulty: models.DifficultyAdvanced,
		ModuleNames: []string{
			"Linux Basics & Scripting",
			"Docker & Containers",
			"CI/CD Pipelines",
			"Kubernetes Basics",
			"Cloud Services (AWS)",
			"Monitoring (Grafana/Prometheus)",
		},
	},
}

// SeedCatalog inserts the starter catalog when no course exists yet. Each
// module gets one introductory lesson; the very first lesson of a course is
// free so anonymous visitors can try it.
func SeedCatalog(ctx context.Context, db *gorm.DB, instructorEmail string, log *zap.Logger) error {
	var count int64
	if err := db.WithContext(ctx).Model(&models.Course{}).Count(&count).Error; err != nil {
		return fmt.Errorf("count courses: %w", err)
	}
	if count > 0 {
		log.Info("catalog already seeded", zap.Int64("courses", count))
		return nil
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		instructor, err := seedInstructor(tx, instructorEmail)
		if err != nil {
			return err
		}

		for _, sc := range starterCatalog {
			course := models.Course{
				Slug:         sc.Slug,
				Title:        sc.Title,
				Description:  fmt.Sprintf("%s. %d months.", sc.Tech, sc.Months),
				Price:        sc.Price,
				IsPublished:  true,
				Difficulty:   sc.Difficulty,
				InstructorID: instructor.ID,
			}
			for i, name := range sc.ModuleNames {
				course.Modules = append(course.Modules, models.Module{
					Title:      fmt.Sprintf("Module %d: %s", i+1, name),
					OrderIndex: i + 1,
					Lessons: []models.Lesson{{
						Title:      name + ": introduction",
						OrderIndex: 1,
						Duration:   20,
						IsFree:     i == 0,
					}},
				})
			}
			if err := tx.Create(&course).Error; err != nil {
				return fmt.Errorf("seed course %s: %w", sc.Slug, err)
			}
			log.Info("seeded course", zap.String("slug", sc.Slug), zap.Int("modules", len(course.Modules)))
		}
		return nil
	})
}

func seedInstructor(tx *gorm.DB, email string) (*models.Profile, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var instructor models.Profile
	err := tx.Where("email = ?", email).First(&instructor).Error
	if err == nil {
		return &instructor, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("find instructor: %w", err)
	}

	// Random password: the mentor cannot sign in until an operator sets one.
	hash, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash instructor password: %w", err)
	}
	instructor = models.Profile{
		Email:        email,
		PasswordHash: string(hash),
		Role:         models.RoleInstructor,
		FullName:     "Baku Stack Mentor",
	}
	if err := tx.Create(&instructor).Error; err != nil {
		return nil, fmt.Errorf("create instructor: %w", err)
	}
	return &instructor, nil
}
