// Package handlers serves the quiz API over fiber.
package handlers

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/audio-quiz/internal/apperrors"
	"github.com/codebuildervaibhav/audio-quiz/internal/logger"
	"github.com/codebuildervaibhav/audio-quiz/internal/quiz"
)

// QuizBuilder draws quiz questions.
type QuizBuilder interface {
	Build(ctx context.Context, size int) ([]quiz.Question, error)
}

// QuizResponse wraps the questions with their count.
type QuizResponse struct {
	Quiz     []quiz.Question `json:"quiz"`
	Metadata struct {
		TotalQuestions int `json:"total_questions"`
	} `json:"metadata"`
}

type quizQuery struct {
	Size int `query:"size" validate:"omitempty,min=1,max=50"`
}

var validate = validator.New()

// QuizHandler handles quiz requests
type QuizHandler struct {
	builder     QuizBuilder
	defaultSize int
	log         *logger.Logger
}

// NewQuizHandler creates a new quiz handler
func NewQuizHandler(builder QuizBuilder, defaultSize int, log *logger.Logger) *QuizHandler {
	if defaultSize <= 0 {
		defaultSize = quiz.DefaultSize
	}
	return &QuizHandler{builder: builder, defaultSize: defaultSize, log: log}
}

// Handle returns a freshly drawn quiz.
func (h *QuizHandler) Handle(c *fiber.Ctx) error {
	var q quizQuery
	if err := c.QueryParser(&q); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "size must be an integer",
			"code":  string(apperrors.ErrCodeInvalidInput),
		})
	}
	if err := validate.Struct(q); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "size must be between 1 and 50",
			"code":  string(apperrors.ErrCodeInvalidInput),
		})
	}
	if q.Size == 0 {
		q.Size = h.defaultSize
	}

	questions, err := h.builder.Build(c.UserContext(), q.Size)
	if err != nil {
		h.log.WithError(err).Error("Failed to build quiz")
		return c.Status(apperrors.HTTPStatus(err)).JSON(fiber.Map{
			"error": "Failed to generate quiz",
			"code":  string(codeOf(err)),
		})
	}

	var resp QuizResponse
	resp.Quiz = questions
	if resp.Quiz == nil {
		resp.Quiz = []quiz.Question{}
	}
	resp.Metadata.TotalQuestions = len(questions)
	return c.JSON(resp)
}

func codeOf(err error) apperrors.ErrorCode {
	if ae, ok := apperrors.As(err); ok {
		return ae.Code
	}
	return apperrors.ErrCodeInternal
}
