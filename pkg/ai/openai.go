package ai

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	gradingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "codegrade",
		Subsystem: "ai",
		Name:      "grading_duration_seconds",
		Help:      "Duration of AI grading requests",
	}, []string{"model"})

	gradingFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "codegrade",
		Subsystem: "ai",
		Name:      "grading_failures_total",
		Help:      "Number of failed AI grading calls",
	}, []string{"model"})
)

const defaultRubric = "Evaluate the submission based on correctness, efficiency, and code quality. " +
	"Provide a score out of 100 and detailed feedback."

const failureFeedback = "AI grading failed due to an internal error."

const unparseableFeedback = "Unable to parse AI feedback."

// OpenAIConfig defines configuration options for the OpenAI grader.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
	Logger      zerolog.Logger
}

// OpenAIGrader implements Grader against the OpenAI chat completion API.
type OpenAIGrader struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIGrader builds a grader from the provided configuration. A missing
// API key is a configuration error and fails fast here; everything that can
// go wrong at call time is soft-reported through GradeResult instead.
func NewOpenAIGrader(cfg OpenAIConfig) (*OpenAIGrader, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = openai.GPT3Dot5Turbo
	}

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 500
	}

	if cfg.Temperature == 0 {
		cfg.Temperature = 0.3
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	return &OpenAIGrader{
		client: openai.NewClientWithConfig(clientConfig),
		cfg:    cfg,
		tracer: otel.Tracer("github.com/codegrade/codegrade-api/pkg/ai/openai"),
		logger: logger.With().Str("component", "openai_grader").Logger(),
	}, nil
}

// Grade performs a single chat-completion call and parses the response into a
// score and feedback. One attempt per invocation; no retries.
func (g *OpenAIGrader) Grade(parent context.Context, input GradeInput) GradeResult {
	ctx, cancel := context.WithTimeout(parent, g.cfg.Timeout)
	defer cancel()

	ctx, span := g.tracer.Start(ctx, "openai.grade", trace.WithAttributes(
		attribute.String("model", g.cfg.Model),
	))
	defer span.End()

	request := openai.ChatCompletionRequest{
		Model:       g.cfg.Model,
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: g.cfg.Temperature,
		TopP:        1,
		N:           1,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are an academic grading assistant.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildGradingPrompt(input),
			},
		},
	}

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, request)
	gradingDuration.WithLabelValues(g.cfg.Model).Observe(time.Since(start).Seconds())

	if err != nil {
		gradingFailures.WithLabelValues(g.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		g.logger.Warn().Err(err).Msg("grading call failed")
		return GradeResult{Feedback: failureFeedback}
	}

	if len(resp.Choices) == 0 {
		gradingFailures.WithLabelValues(g.cfg.Model).Inc()
		span.SetStatus(codes.Error, "no choices returned")
		g.logger.Warn().Msg("grading call returned no choices")
		return GradeResult{Feedback: failureFeedback}
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	score, feedback := parseGradingResponse(content)
	span.SetAttributes(attribute.Float64("grading.score", score))

	return GradeResult{Score: &score, Feedback: feedback}
}

func buildGradingPrompt(input GradeInput) string {
	rubric := strings.TrimSpace(input.GradingParameters)
	if rubric == "" {
		rubric = defaultRubric
	}

	builder := strings.Builder{}
	builder.WriteString("Grading Parameters:\n")
	builder.WriteString(rubric)
	builder.WriteString("\n\nInstructor's Solution:\n```\n")
	builder.WriteString(input.InstructorSolution)
	builder.WriteString("\n```\n\nStudent's Submission:\n```\n")
	builder.WriteString(input.SubmittedCode)
	builder.WriteString("\n```\n\nProvide the result in the following format:\n\n")
	builder.WriteString("Score: <score>/100\nFeedback: <detailed feedback>\n")
	return builder.String()
}

// parseGradingResponse extracts the score and feedback from the model output.
// The score is the numeric value between ':' and '/' on the first line
// mentioning "score"; the feedback is the remainder of the first line
// mentioning "feedback", or the full output when no such line exists.
func parseGradingResponse(content string) (float64, string) {
	lines := strings.Split(content, "\n")

	var scoreLine, feedbackLine string
	for _, line := range lines {
		lowered := strings.ToLower(line)
		if scoreLine == "" && strings.Contains(lowered, "score") {
			scoreLine = line
		}
		if feedbackLine == "" && strings.Contains(lowered, "feedback") {
			feedbackLine = line
		}
	}

	score := 0.0
	if scoreLine != "" {
		parsed, ok := parseScoreLine(scoreLine)
		if !ok {
			return 0.0, unparseableFeedback
		}
		score = parsed
	}

	feedback := content
	if feedbackLine != "" {
		if _, rest, found := strings.Cut(feedbackLine, ":"); found {
			feedback = strings.TrimSpace(rest)
		}
	}

	return score, feedback
}

func parseScoreLine(line string) (float64, bool) {
	_, rest, found := strings.Cut(line, ":")
	if !found {
		return 0, false
	}

	value := rest
	if before, _, slashed := strings.Cut(rest, "/"); slashed {
		value = before
	}

	value = strings.TrimSpace(value)
	if value == "" {
		return 0, true
	}

	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, false
	}
	return parsed, true
}
