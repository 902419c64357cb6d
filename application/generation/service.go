// Package generation turns a client intake questionnaire into the initial
// job-description package via the completion service. The craft/service
// classification that scores the raw answers is an external collaborator;
// its recommendation arrives with the intake and is passed through as
// context, never recomputed here.
package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"jdbuilder/application/completion"
	"jdbuilder/domain/jd"
	apperrors "jdbuilder/pkg/errors"
)

// Recommendation is the upstream classifier's verdict on the intake.
type Recommendation struct {
	Craft       string  `json:"craft"`
	ServiceType string  `json:"serviceType"`
	Confidence  float64 `json:"confidence,omitempty"`
	Reasoning   string  `json:"reasoning,omitempty"`
}

// Intake is the client questionnaire plus the classifier's recommendation.
type Intake struct {
	CompanyName    string            `json:"companyName" validate:"required,min=1,max=200"`
	Industry       string            `json:"industry,omitempty"`
	BudgetMonthly  int               `json:"budgetMonthly,omitempty"`
	HoursPerWeek   int               `json:"hoursPerWeek,omitempty"`
	Timezone       string            `json:"timezone,omitempty"`
	Answers        map[string]string `json:"answers" validate:"required,min=1"`
	Recommendation *Recommendation   `json:"recommendation,omitempty"`
}

// Service drives initial document generation.
type Service struct {
	gateway *completion.Gateway
	timeout time.Duration
	logger  *zap.Logger
}

// NewService creates the generation service.
func NewService(gateway *completion.Gateway, timeout time.Duration, logger *zap.Logger) *Service {
	return &Service{gateway: gateway, timeout: timeout, logger: logger}
}

// Result carries the generated document and usage accounting.
type Result struct {
	Document   *jd.Document `json:"document"`
	Timestamp  string       `json:"timestamp"`
	TokensUsed int          `json:"tokensUsed"`
}

// Generate produces the initial job-description package for an intake.
func (s *Service) Generate(ctx context.Context, intake Intake) (*Result, error) {
	if len(intake.Answers) == 0 {
		return nil, apperrors.NewValidationError("intake answers are required")
	}

	prompt, err := compileIntakePrompt(intake)
	if err != nil {
		return nil, apperrors.Wrap(err, "compile intake prompt")
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	doc, tokens, err := s.gateway.CompleteDocument(ctx, prompt)
	if err != nil {
		s.logger.Warn("generation upstream call failed", zap.Error(err))
		return nil, err
	}

	s.logger.Info("job description generated",
		zap.String("company", intake.CompanyName),
		zap.Int("tokens", tokens),
		zap.Duration("elapsed", time.Since(start)),
	)

	return &Result{
		Document:   doc,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		TokensUsed: tokens,
	}, nil
}

func compileIntakePrompt(intake Intake) (string, error) {
	answers, err := json.MarshalIndent(intake.Answers, "", "  ")
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("Create a complete job description package from this client intake.\n\n")
	fmt.Fprintf(&b, "Company: %s\n", intake.CompanyName)
	if intake.Industry != "" {
		fmt.Fprintf(&b, "Industry: %s\n", intake.Industry)
	}
	if intake.BudgetMonthly > 0 {
		fmt.Fprintf(&b, "Monthly budget (USD): %d\n", intake.BudgetMonthly)
	}
	if intake.HoursPerWeek > 0 {
		fmt.Fprintf(&b, "Hours per week: %d\n", intake.HoursPerWeek)
	}
	if intake.Timezone != "" {
		fmt.Fprintf(&b, "Client timezone: %s\n", intake.Timezone)
	}

	if rec := intake.Recommendation; rec != nil {
		fmt.Fprintf(&b, "\nRecommended craft: %s\nRecommended service type: %s\n", rec.Craft, rec.ServiceType)
		if rec.Reasoning != "" {
			fmt.Fprintf(&b, "Recommendation reasoning: %s\n", rec.Reasoning)
		}
	}

	b.WriteString("\nIntake answers:\n")
	b.Write(answers)

	b.WriteString("\n\nProduce a JSON object with this structure: summary (string), roles (array of role objects with title, craft_family, service_type, weekly_hours, client_facing, purpose, core_outcomes, responsibilities, skills, tools, kpis, personality, reporting_line, sample_week keyed by weekday, overlap_requirements, communication_norms), split_allocation (array of {area, owner, share_hours, notes}), service_recommendation ({best_fit, reasoning, alternatives}), onboarding_2w ({week_1, week_2}), risks (array of strings), assumptions (array of strings).\n")

	return b.String(), nil
}
