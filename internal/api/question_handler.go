package api

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"skillbridge/internal/database"
)

// QuestionHandler edits and removes individual quiz questions.
type QuestionHandler struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewQuestionHandler builds the handler.
func NewQuestionHandler(db *gorm.DB, logger *slog.Logger) *QuestionHandler {
	return &QuestionHandler{db: db, logger: logger}
}

type updateQuestionRequest struct {
	Text    *string               `json:"text"`
	Answers []createAnswerRequest `json:"answers"`
}

// UpdateQuestion changes the question text and/or replaces its answer set.
// A replacement keeps the exactly-one-correct rule and runs atomically.
func (h *QuestionHandler) UpdateQuestion(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		BadRequest(c, "valid question id required")
		return
	}

	var req updateQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	if req.Text == nil && req.Answers == nil {
		BadRequest(c, "no fields to update")
		return
	}
	if req.Answers != nil {
		probe := createQuestionRequest{Text: "question", Answers: req.Answers}
		if req.Text != nil {
			probe.Text = *req.Text
		}
		if err := validateQuestion(probe); err != nil {
			BadRequest(c, err.Error())
			return
		}
	}

	ctx := c.Request.Context()
	var question database.Question
	if err := h.db.WithContext(ctx).First(&question, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "question not found")
			return
		}
		requestLogger(c, h.logger).Error("update question lookup failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if req.Text != nil {
			if err := tx.Model(&question).Update("text", *req.Text).Error; err != nil {
				return err
			}
		}
		if req.Answers != nil {
			if err := tx.Where("question_id = ?", question.ID).
				Delete(&database.Answer{}).Error; err != nil {
				return err
			}
			for _, a := range req.Answers {
				answer := database.Answer{
					QuestionID: question.ID,
					Text:       a.Text,
					IsCorrect:  a.IsCorrect,
				}
				if err := tx.Create(&answer).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		requestLogger(c, h.logger).Error("update question failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	var updated database.Question
	if err := h.db.WithContext(ctx).Preload("Answers").First(&updated, id).Error; err != nil {
		requestLogger(c, h.logger).Error("reload question failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	OK(c, updated)
}

// DeleteQuestion removes a question and its answers.
func (h *QuestionHandler) DeleteQuestion(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		BadRequest(c, "valid question id required")
		return
	}

	ctx := c.Request.Context()
	var question database.Question
	if err := h.db.WithContext(ctx).First(&question, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "question not found")
			return
		}
		requestLogger(c, h.logger).Error("delete question lookup failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("question_id = ?", question.ID).
			Delete(&database.Answer{}).Error; err != nil {
			return err
		}
		return tx.Delete(&question).Error
	})
	if err != nil {
		requestLogger(c, h.logger).Error("delete question failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	OKMessage(c, "question deleted", nil)
}
