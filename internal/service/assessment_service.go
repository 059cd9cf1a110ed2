package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/codegrade/codegrade-api/internal/dto"
	"github.com/codegrade/codegrade-api/internal/models"
	"github.com/codegrade/codegrade-api/internal/repository"
)

// ErrInvalidRubric indicates the grading parameters do not match the rubric schema.
var ErrInvalidRubric = errors.New("invalid grading parameters")

// The rubric is either free-form instruction text or a structured object
// with weighted criteria. Anything else confuses the grading prompt, so it
// is rejected at creation time rather than at grading time.
const rubricSchema = `{
  "oneOf": [
    {"type": "string"},
    {
      "type": "object",
      "properties": {
        "instructions": {"type": "string"},
        "criteria": {
          "type": "array",
          "items": {
            "type": "object",
            "properties": {
              "name": {"type": "string", "minLength": 1},
              "weight": {"type": "number", "minimum": 0},
              "description": {"type": "string"}
            },
            "required": ["name"]
          }
        }
      }
    }
  ]
}`

var compiledRubricSchema = func() *jsonschema.Schema {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(rubricSchema))
	if err != nil {
		panic(err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("rubric.json", doc); err != nil {
		panic(err)
	}
	return compiler.MustCompile("rubric.json")
}()

// AssessmentService owns assessment and quiz authoring.
type AssessmentService interface {
	CreateAssessment(ctx context.Context, teacherID uint, payload dto.AssessmentCreateRequest) (dto.AssessmentResponse, error)
	ListAssessments(ctx context.Context, courseID uint, includeSolution bool) ([]dto.AssessmentResponse, error)
	CreateQuiz(ctx context.Context, teacherID uint, payload dto.QuizCreateRequest) (dto.QuizResponse, error)
	ListQuizzes(ctx context.Context, courseID uint, includeSolution bool) ([]dto.QuizResponse, error)
}

type assessmentService struct {
	assessments repository.AssessmentRepository
	courses     repository.CourseRepository
	validator   *validator.Validate
	logger      zerolog.Logger
}

// NewAssessmentService constructs the authoring service.
func NewAssessmentService(assessments repository.AssessmentRepository, courses repository.CourseRepository, validate *validator.Validate, logger zerolog.Logger) AssessmentService {
	return &assessmentService{
		assessments: assessments,
		courses:     courses,
		validator:   validate,
		logger:      logger.With().Str("component", "assessment_service").Logger(),
	}
}

func (s *assessmentService) CreateAssessment(ctx context.Context, teacherID uint, payload dto.AssessmentCreateRequest) (dto.AssessmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssessmentResponse{}, err
	}

	if err := s.requireCourseOwner(ctx, payload.CourseID, teacherID); err != nil {
		return dto.AssessmentResponse{}, err
	}

	if err := validateRubric(payload.AIGradingParams); err != nil {
		return dto.AssessmentResponse{}, err
	}

	assessment := models.Assessment{
		CourseID:           payload.CourseID,
		Title:              payload.Title,
		Description:        payload.Description,
		QuestionArea:       payload.QuestionArea,
		InstructorSolution: payload.InstructorSolution,
		UseAIGrading:       payload.UseAIGrading,
		AIGradingParams:    datatypes.JSON(payload.AIGradingParams),
		MaxScore:           payload.MaxScore,
		DueDate:            payload.DueDate,
	}
	if assessment.MaxScore == 0 {
		assessment.MaxScore = 100
	}

	if err := s.assessments.CreateAssessment(ctx, &assessment); err != nil {
		return dto.AssessmentResponse{}, err
	}

	return dto.NewAssessmentResponse(assessment, true), nil
}

func (s *assessmentService) ListAssessments(ctx context.Context, courseID uint, includeSolution bool) ([]dto.AssessmentResponse, error) {
	assessments, err := s.assessments.ListAssessmentsByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.AssessmentResponse, 0, len(assessments))
	for _, assessment := range assessments {
		responses = append(responses, dto.NewAssessmentResponse(assessment, includeSolution))
	}
	return responses, nil
}

func (s *assessmentService) CreateQuiz(ctx context.Context, teacherID uint, payload dto.QuizCreateRequest) (dto.QuizResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.QuizResponse{}, err
	}

	if err := s.requireCourseOwner(ctx, payload.CourseID, teacherID); err != nil {
		return dto.QuizResponse{}, err
	}

	if err := validateRubric(payload.AIGradingParams); err != nil {
		return dto.QuizResponse{}, err
	}

	quiz := models.Quiz{
		CourseID:           payload.CourseID,
		Title:              payload.Title,
		Description:        payload.Description,
		QuestionArea:       payload.QuestionArea,
		InstructorSolution: payload.InstructorSolution,
		UseAIGrading:       payload.UseAIGrading,
		AIGradingParams:    datatypes.JSON(payload.AIGradingParams),
		MaxScore:           payload.MaxScore,
		TimeLimitMinutes:   payload.TimeLimitMinutes,
	}
	if quiz.MaxScore == 0 {
		quiz.MaxScore = 100
	}

	if err := s.assessments.CreateQuiz(ctx, &quiz); err != nil {
		return dto.QuizResponse{}, err
	}

	return dto.NewQuizResponse(quiz, true), nil
}

func (s *assessmentService) ListQuizzes(ctx context.Context, courseID uint, includeSolution bool) ([]dto.QuizResponse, error) {
	quizzes, err := s.assessments.ListQuizzesByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.QuizResponse, 0, len(quizzes))
	for _, quiz := range quizzes {
		responses = append(responses, dto.NewQuizResponse(quiz, includeSolution))
	}
	return responses, nil
}

func (s *assessmentService) requireCourseOwner(ctx context.Context, courseID, teacherID uint) error {
	course, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCourseNotFound
		}
		return err
	}
	if course.TeacherID != teacherID {
		return ErrNotCourseOwner
	}
	return nil
}

func validateRubric(raw []byte) error {
	if len(raw) == 0 || strings.TrimSpace(string(raw)) == "null" {
		return nil
	}

	value, err := jsonschema.UnmarshalJSON(strings.NewReader(string(raw)))
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidRubric, err)
	}

	if err := compiledRubricSchema.Validate(value); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidRubric, err)
	}
	return nil
}
