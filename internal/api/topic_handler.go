package api

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"skillbridge/internal/database"
)

// TopicHandler manages individual topics and quiz creation under a topic.
type TopicHandler struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewTopicHandler builds the handler.
func NewTopicHandler(db *gorm.DB, logger *slog.Logger) *TopicHandler {
	return &TopicHandler{db: db, logger: logger}
}

// GetTopic returns one topic with its quiz, if any.
func (h *TopicHandler) GetTopic(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		BadRequest(c, "valid topic id required")
		return
	}

	var topic database.Topic
	err := h.db.WithContext(c.Request.Context()).
		Preload("Quiz").
		First(&topic, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "topic not found")
			return
		}
		requestLogger(c, h.logger).Error("get topic failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	OK(c, topic)
}

type updateTopicRequest struct {
	Title    *string `json:"title"`
	Content  *string `json:"content"`
	VideoURL *string `json:"videoUrl"`
}

// UpdateTopic merges the provided fields into a topic.
func (h *TopicHandler) UpdateTopic(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		BadRequest(c, "valid topic id required")
		return
	}

	var req updateTopicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	var topic database.Topic
	if err := h.db.WithContext(ctx).First(&topic, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "topic not found")
			return
		}
		requestLogger(c, h.logger).Error("update topic lookup failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	updates := map[string]any{}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Content != nil {
		updates["content"] = *req.Content
	}
	if req.VideoURL != nil {
		updates["video_url"] = *req.VideoURL
	}
	if len(updates) == 0 {
		BadRequest(c, "no fields to update")
		return
	}

	if err := h.db.WithContext(ctx).Model(&topic).Updates(updates).Error; err != nil {
		requestLogger(c, h.logger).Error("update topic failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	OK(c, topic)
}

// DeleteTopic removes a topic and everything hanging off its quiz.
func (h *TopicHandler) DeleteTopic(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		BadRequest(c, "valid topic id required")
		return
	}

	ctx := c.Request.Context()
	var topic database.Topic
	if err := h.db.WithContext(ctx).First(&topic, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "topic not found")
			return
		}
		requestLogger(c, h.logger).Error("delete topic lookup failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var quiz database.Quiz
		err := tx.Where("topic_id = ?", id).First(&quiz).Error
		switch {
		case err == nil:
			if err := deleteQuizTree(tx, quiz.ID); err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return err
		}
		return tx.Delete(&topic).Error
	})
	if err != nil {
		requestLogger(c, h.logger).Error("delete topic failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	OKMessage(c, "topic deleted", nil)
}

// deleteQuizTree removes a quiz with its questions and answers inside tx.
func deleteQuizTree(tx *gorm.DB, quizID uint) error {
	subQuery := tx.Model(&database.Question{}).Select("id").Where("quiz_id = ?", quizID)
	if err := tx.Where("question_id IN (?)", subQuery).Delete(&database.Answer{}).Error; err != nil {
		return err
	}
	if err := tx.Where("quiz_id = ?", quizID).Delete(&database.Question{}).Error; err != nil {
		return err
	}
	return tx.Delete(&database.Quiz{}, quizID).Error
}

type createAnswerRequest struct {
	Text      string `json:"text" binding:"required"`
	IsCorrect bool   `json:"isCorrect"`
}

type createQuestionRequest struct {
	Text    string                `json:"text" binding:"required"`
	Answers []createAnswerRequest `json:"answers" binding:"required"`
}

type createQuizRequest struct {
	Title     string                  `json:"title" binding:"required"`
	Questions []createQuestionRequest `json:"questions" binding:"required"`
}

// validateQuestion enforces the answer shape: at least two options, exactly
// one flagged correct.
func validateQuestion(q createQuestionRequest) error {
	if len(q.Answers) < 2 {
		return fmt.Errorf("question %q needs at least two answers", q.Text)
	}
	correct := 0
	for _, a := range q.Answers {
		if a.IsCorrect {
			correct++
		}
	}
	if correct != 1 {
		return fmt.Errorf("question %q needs exactly one correct answer", q.Text)
	}
	return nil
}

// CreateQuiz creates a quiz with its full question and answer tree in one
// transaction. A topic holds at most one quiz.
func (h *TopicHandler) CreateQuiz(c *gin.Context) {
	topicID, ok := parseID(c, "id")
	if !ok {
		BadRequest(c, "valid topic id required")
		return
	}

	var req createQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	if len(req.Questions) == 0 {
		BadRequest(c, "quiz needs at least one question")
		return
	}
	for _, q := range req.Questions {
		if err := validateQuestion(q); err != nil {
			BadRequest(c, err.Error())
			return
		}
	}

	ctx := c.Request.Context()
	var topic database.Topic
	if err := h.db.WithContext(ctx).First(&topic, topicID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "topic not found")
			return
		}
		requestLogger(c, h.logger).Error("create quiz lookup failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	var existing int64
	if err := h.db.WithContext(ctx).Model(&database.Quiz{}).
		Where("topic_id = ?", topicID).
		Count(&existing).Error; err != nil {
		requestLogger(c, h.logger).Error("quiz duplicate check failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}
	if existing > 0 {
		Conflict(c, "topic already has a quiz")
		return
	}

	quiz := database.Quiz{TopicID: topicID, Title: req.Title}
	for _, q := range req.Questions {
		question := database.Question{Text: q.Text}
		for _, a := range q.Answers {
			question.Answers = append(question.Answers, database.Answer{
				Text:      a.Text,
				IsCorrect: a.IsCorrect,
			})
		}
		quiz.Questions = append(quiz.Questions, question)
	}

	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&quiz).Error
	})
	if err != nil {
		requestLogger(c, h.logger).Error("create quiz failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	Created(c, "quiz created", quiz)
}
