package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"skillbridge/internal/database"
	"skillbridge/internal/grading"
	"skillbridge/internal/tasks"
)

// taskEnqueuer is the slice of asynq.Client the handler needs. A nil
// enqueuer disables background rendering.
type taskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// QuizHandler serves quiz taking, grading and quiz administration.
type QuizHandler struct {
	db       *gorm.DB
	enqueuer taskEnqueuer
	logger   *slog.Logger
}

// NewQuizHandler builds the handler. enqueuer may be nil.
func NewQuizHandler(db *gorm.DB, enqueuer taskEnqueuer, logger *slog.Logger) *QuizHandler {
	return &QuizHandler{db: db, enqueuer: enqueuer, logger: logger}
}

type takeAnswer struct {
	ID   uint   `json:"id"`
	Text string `json:"text"`
}

type takeQuestion struct {
	ID      uint         `json:"id"`
	Text    string       `json:"text"`
	Answers []takeAnswer `json:"answers"`
}

type takeQuizResponse struct {
	ID        uint           `json:"id"`
	Title     string         `json:"title"`
	Questions []takeQuestion `json:"questions"`
}

// TakeQuiz returns the quiz for answering. The correct flags never leave
// the server.
func (h *QuizHandler) TakeQuiz(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		BadRequest(c, "valid quiz id required")
		return
	}

	var quiz database.Quiz
	err := h.db.WithContext(c.Request.Context()).
		Preload("Questions.Answers").
		First(&quiz, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "quiz not found")
			return
		}
		requestLogger(c, h.logger).Error("take quiz failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	resp := takeQuizResponse{ID: quiz.ID, Title: quiz.Title}
	for _, q := range quiz.Questions {
		question := takeQuestion{ID: q.ID, Text: q.Text}
		for _, a := range q.Answers {
			question.Answers = append(question.Answers, takeAnswer{ID: a.ID, Text: a.Text})
		}
		resp.Questions = append(resp.Questions, question)
	}

	OK(c, resp)
}

type submitQuizRequest struct {
	Answers []grading.AnswerSubmission `json:"answers" binding:"required"`
}

type submitQuizResponse struct {
	Score         int    `json:"score"`
	Passed        bool   `json:"passed"`
	CertificateID *uint  `json:"certificateId,omitempty"`
	Message       string `json:"message"`
}

// SubmitQuiz grades a submission, records the attempt and issues a course
// certificate on the first pass.
func (h *QuizHandler) SubmitQuiz(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		BadRequest(c, "valid quiz id required")
		return
	}
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var req submitQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	var quiz database.Quiz
	err := h.db.WithContext(ctx).
		Preload("Questions.Answers").
		First(&quiz, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "quiz not found")
			return
		}
		requestLogger(c, h.logger).Error("submit quiz load failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	result, err := grading.Grade(quiz.Questions, req.Answers)
	if err != nil {
		if errors.Is(err, grading.ErrNoQuestions) {
			BadRequest(c, "quiz has no questions")
			return
		}
		requestLogger(c, h.logger).Error("grading failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	rawAnswers, err := json.Marshal(req.Answers)
	if err != nil {
		requestLogger(c, h.logger).Error("encode submission failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	submission := database.QuizSubmission{
		UserID:  userID,
		QuizID:  quiz.ID,
		Answers: datatypes.JSON(rawAnswers),
		Score:   result.Score,
		Passed:  result.Passed,
	}

	resp := submitQuizResponse{Score: result.RoundedScore(), Passed: result.Passed}
	var issued *database.Certificate

	err = h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&submission).Error; err != nil {
			return err
		}
		if !result.Passed {
			return nil
		}

		var topic database.Topic
		if err := tx.First(&topic, quiz.TopicID).Error; err != nil {
			return err
		}

		var existing database.Certificate
		err := tx.Where("user_id = ? AND course_id = ?", userID, topic.CourseID).
			First(&existing).Error
		switch {
		case err == nil:
			resp.CertificateID = &existing.ID
			return nil
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return err
		}

		certificate := database.Certificate{
			UserID:       userID,
			CourseID:     topic.CourseID,
			SerialNumber: uuid.NewString(),
			IssuedAt:     time.Now().UTC(),
		}
		if err := tx.Create(&certificate).Error; err != nil {
			return err
		}
		resp.CertificateID = &certificate.ID
		issued = &certificate
		return nil
	})
	if err != nil {
		requestLogger(c, h.logger).Error("record submission failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	if issued != nil && h.enqueuer != nil {
		task, err := tasks.NewCertificateRenderTask(issued.ID)
		if err == nil {
			_, err = h.enqueuer.Enqueue(task, asynq.MaxRetry(5), asynq.Timeout(2*time.Minute))
		}
		if err != nil {
			requestLogger(c, h.logger).Error("enqueue certificate render failed",
				slog.Uint64("certificate_id", uint64(issued.ID)), slog.Any("error", err))
		}
	}

	if result.Passed {
		resp.Message = "congratulations, you passed"
	} else {
		resp.Message = "score below the passing threshold"
	}
	OK(c, resp)
}

// DeleteQuiz removes a quiz with its questions and answers.
func (h *QuizHandler) DeleteQuiz(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		BadRequest(c, "valid quiz id required")
		return
	}

	ctx := c.Request.Context()
	var quiz database.Quiz
	if err := h.db.WithContext(ctx).First(&quiz, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "quiz not found")
			return
		}
		requestLogger(c, h.logger).Error("delete quiz lookup failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return deleteQuizTree(tx, quiz.ID)
	})
	if err != nil {
		requestLogger(c, h.logger).Error("delete quiz failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	OKMessage(c, "quiz deleted", nil)
}

// AddQuestion appends a question to an existing quiz.
func (h *QuizHandler) AddQuestion(c *gin.Context) {
	quizID, ok := parseID(c, "id")
	if !ok {
		BadRequest(c, "valid quiz id required")
		return
	}

	var req createQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	if err := validateQuestion(req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	var quiz database.Quiz
	if err := h.db.WithContext(ctx).First(&quiz, quizID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "quiz not found")
			return
		}
		requestLogger(c, h.logger).Error("add question lookup failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	question := database.Question{QuizID: quizID, Text: req.Text}
	for _, a := range req.Answers {
		question.Answers = append(question.Answers, database.Answer{
			Text:      a.Text,
			IsCorrect: a.IsCorrect,
		})
	}

	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&question).Error
	})
	if err != nil {
		requestLogger(c, h.logger).Error("add question failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	Created(c, "question added", question)
}
