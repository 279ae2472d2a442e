package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"skillbridge/internal/api/middleware"
	"skillbridge/internal/auth"
	"skillbridge/internal/database"
)

// RegisterRoutes registers the API routes under /v1.
func RegisterRoutes(
	router *gin.Engine,
	db *gorm.DB,
	enqueuer taskEnqueuer,
	authService *auth.AuthService,
	limiter middleware.Limiter,
	uploader *Uploader,
	logger *slog.Logger,
) {
	router.Use(middleware.CorrelationIDMiddleware())
	router.Use(middleware.SlogLoggerMiddleware(logger))

	authHandler := NewAuthHandler(db, authService, logger)
	userHandler := NewUserHandler(db, authService, logger)
	companyHandler := NewCompanyHandler(db, uploader, logger)
	jobHandler := NewJobHandler(db, logger)
	applicationHandler := NewApplicationHandler(db, uploader, logger)
	categoryHandler := NewCategoryHandler(db, uploader, logger)
	courseHandler := NewCourseHandler(db, uploader, logger)
	topicHandler := NewTopicHandler(db, logger)
	quizHandler := NewQuizHandler(db, enqueuer, logger)
	questionHandler := NewQuestionHandler(db, logger)
	enrollmentHandler := NewEnrollmentHandler(db, logger)
	certificateHandler := NewCertificateHandler(db, logger)
	communityHandler := NewCommunityHandler(db, uploader, logger)
	forumHandler := NewForumHandler(db, logger)

	authMiddleware := middleware.AuthMiddleware(authService)
	adminOnly := middleware.RequireRole(database.RoleAdmin)
	adminOrHR := middleware.RequireRole(database.RoleAdmin, database.RoleHR)
	rateLimited := middleware.RateLimit(limiter)

	v1 := router.Group("/v1")
	{
		authGroup := v1.Group("/auth")
		authGroup.Use(rateLimited)
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
		}

		userGroup := v1.Group("/users")
		userGroup.Use(authMiddleware, adminOnly)
		{
			userGroup.GET("", userHandler.ListUsers)
			userGroup.POST("", rateLimited, userHandler.CreateUser)
			userGroup.GET("/:id", userHandler.GetUser)
			userGroup.PATCH("/:id", rateLimited, userHandler.UpdateUser)
			userGroup.DELETE("/:id", userHandler.DeleteUser)
			userGroup.GET("/:id/applications", userHandler.GetUserApplications)
			userGroup.GET("/:id/enrollments", userHandler.GetUserEnrollments)
		}

		companyGroup := v1.Group("/companies")
		{
			companyGroup.GET("", companyHandler.ListCompanies)
			companyGroup.GET("/:id", companyHandler.GetCompany)
			companyGroup.POST("", authMiddleware, rateLimited, adminOnly, companyHandler.CreateCompany)
			companyGroup.PATCH("/:id", authMiddleware, adminOnly, companyHandler.UpdateCompany)
			companyGroup.DELETE("/:id", authMiddleware, adminOnly, companyHandler.DeleteCompany)
		}

		jobGroup := v1.Group("/jobs")
		{
			jobGroup.GET("", jobHandler.ListJobs)
			jobGroup.GET("/:id", jobHandler.GetJob)
			jobGroup.POST("", authMiddleware, rateLimited, adminOrHR, jobHandler.CreateJob)
			jobGroup.PATCH("/:id", authMiddleware, adminOrHR, jobHandler.UpdateJob)
			jobGroup.DELETE("/:id", authMiddleware, adminOrHR, jobHandler.DeleteJob)
			jobGroup.POST("/:id/apply", authMiddleware, applicationHandler.Apply)
			jobGroup.GET("/:id/candidates", authMiddleware, adminOrHR, applicationHandler.ListCandidates)
		}

		applicationGroup := v1.Group("/applications")
		applicationGroup.Use(authMiddleware)
		{
			applicationGroup.GET("", applicationHandler.ListMyApplications)
			applicationGroup.GET("/:id/resume-link", adminOrHR, applicationHandler.ResumeLink)
			applicationGroup.PATCH("/:id/status", adminOrHR, applicationHandler.UpdateStatus)
			applicationGroup.DELETE("/:id", applicationHandler.Withdraw)
		}

		categoryGroup := v1.Group("/categories")
		{
			categoryGroup.GET("", categoryHandler.ListCategories)
			categoryGroup.GET("/:id", categoryHandler.GetCategory)
			categoryGroup.POST("", authMiddleware, adminOrHR, categoryHandler.CreateCategory)
			categoryGroup.PATCH("/:id", authMiddleware, adminOrHR, categoryHandler.UpdateCategory)
			categoryGroup.DELETE("/:id", authMiddleware, adminOrHR, categoryHandler.DeleteCategory)
		}

		courseGroup := v1.Group("/courses")
		{
			courseGroup.GET("", courseHandler.ListCourses)
			courseGroup.GET("/:id", courseHandler.GetCourse)
			courseGroup.POST("", authMiddleware, adminOnly, courseHandler.CreateCourse)
			courseGroup.PATCH("/:id", authMiddleware, adminOnly, courseHandler.UpdateCourse)
			courseGroup.DELETE("/:id", authMiddleware, adminOnly, courseHandler.DeleteCourse)
			courseGroup.POST("/:id/enroll", authMiddleware, courseHandler.Enroll)
			courseGroup.GET("/:id/enrollments", authMiddleware, adminOnly, courseHandler.ListCourseEnrollments)
			courseGroup.GET("/:id/topics", authMiddleware, courseHandler.ListCourseTopics)
			courseGroup.POST("/:id/topics", authMiddleware, adminOnly, courseHandler.CreateCourseTopic)
		}

		topicGroup := v1.Group("/topics")
		topicGroup.Use(authMiddleware)
		{
			topicGroup.GET("/:id", topicHandler.GetTopic)
			topicGroup.PATCH("/:id", adminOnly, topicHandler.UpdateTopic)
			topicGroup.DELETE("/:id", adminOnly, topicHandler.DeleteTopic)
			topicGroup.POST("/:id/quiz", adminOnly, topicHandler.CreateQuiz)
		}

		quizGroup := v1.Group("/quizzes")
		quizGroup.Use(authMiddleware)
		{
			quizGroup.GET("/:id/take", quizHandler.TakeQuiz)
			quizGroup.POST("/:id/submit", quizHandler.SubmitQuiz)
			quizGroup.DELETE("/:id", adminOnly, quizHandler.DeleteQuiz)
			quizGroup.POST("/:id/questions", adminOnly, quizHandler.AddQuestion)
		}

		questionGroup := v1.Group("/questions")
		questionGroup.Use(authMiddleware, adminOnly)
		{
			questionGroup.PATCH("/:id", questionHandler.UpdateQuestion)
			questionGroup.DELETE("/:id", questionHandler.DeleteQuestion)
		}

		enrollmentGroup := v1.Group("/enrollments")
		enrollmentGroup.Use(authMiddleware)
		{
			enrollmentGroup.GET("", enrollmentHandler.ListMyEnrollments)
			enrollmentGroup.DELETE("/:id", adminOnly, enrollmentHandler.DeleteEnrollment)
		}

		certificateGroup := v1.Group("/certificates")
		{
			certificateGroup.GET("", authMiddleware, certificateHandler.ListMyCertificates)
			certificateGroup.GET("/:id", certificateHandler.VerifyCertificate)
		}

		communityGroup := v1.Group("/communities")
		{
			communityGroup.GET("", communityHandler.ListCommunities)
			communityGroup.GET("/:id", communityHandler.GetCommunity)
			communityGroup.POST("", authMiddleware, adminOnly, communityHandler.CreateCommunity)
			communityGroup.PATCH("/:id", authMiddleware, adminOnly, communityHandler.UpdateCommunity)
			communityGroup.DELETE("/:id", authMiddleware, adminOnly, communityHandler.DeleteCommunity)
		}

		forumGroup := v1.Group("/forum")
		forumGroup.Use(authMiddleware)
		{
			forumGroup.GET("", forumHandler.ListThreads)
			forumGroup.POST("", forumHandler.CreateThread)
			forumGroup.GET("/:id", forumHandler.GetThread)
			forumGroup.POST("/:id/reply", forumHandler.Reply)
		}
	}
}
