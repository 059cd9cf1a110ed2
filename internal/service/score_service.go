package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/codegrade/codegrade-api/internal/dto"
	"github.com/codegrade/codegrade-api/internal/models"
	"github.com/codegrade/codegrade-api/internal/repository"
)

// ErrCourseNotFound indicates the referenced course does not exist.
var ErrCourseNotFound = errors.New("course not found")

// ErrNotCourseOwner indicates the teacher does not own the course.
var ErrNotCourseOwner = errors.New("not course owner")

// ScoreService serves the score listings: a student's graded results and a
// teacher's grading queue for one course.
type ScoreService interface {
	StudentScores(ctx context.Context, studentID uint) ([]dto.SubmissionResponse, error)
	PendingForCourse(ctx context.Context, courseID, teacherID uint) ([]dto.SubmissionResponse, error)
}

type scoreService struct {
	submissions repository.SubmissionRepository
	courses     repository.CourseRepository
	cache       *redis.Client
	cacheTTL    time.Duration
	logger      zerolog.Logger
}

// NewScoreService constructs the score listing service. The cache is
// optional; without it every read goes to the database.
func NewScoreService(submissions repository.SubmissionRepository, courses repository.CourseRepository, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) ScoreService {
	return &scoreService{
		submissions: submissions,
		courses:     courses,
		cache:       cache,
		cacheTTL:    ttl,
		logger:      logger.With().Str("component", "score_service").Logger(),
	}
}

// StudentScores lists a student's GRADED submissions, newest first. Results
// are cached for a short TTL; staleness is bounded and acceptable here since
// grading completion also notifies the student directly.
func (s *scoreService) StudentScores(ctx context.Context, studentID uint) ([]dto.SubmissionResponse, error) {
	cacheKey := fmt.Sprintf("scores:student:%d", studentID)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var responses []dto.SubmissionResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &responses); unmarshalErr == nil {
				s.logger.Debug().Uint("student_id", studentID).Msg("score cache hit")
				return responses, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read score cache")
		}
	}

	submissions, err := s.submissions.ListByStudent(ctx, studentID, models.GradingStatusGraded)
	if err != nil {
		return nil, err
	}

	responses := dto.NewSubmissionResponseSlice(submissions, false)

	if s.cache != nil {
		if payload, err := json.Marshal(responses); err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store score cache")
			}
		}
	}

	return responses, nil
}

// PendingForCourse lists ungraded submissions across a course's assessments
// and quizzes, oldest first, for the owning teacher.
func (s *scoreService) PendingForCourse(ctx context.Context, courseID, teacherID uint) ([]dto.SubmissionResponse, error) {
	course, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, err
	}

	if course.TeacherID != teacherID {
		return nil, ErrNotCourseOwner
	}

	submissions, err := s.submissions.ListPendingByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	return dto.NewSubmissionResponseSlice(submissions, true), nil
}
