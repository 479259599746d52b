package llm

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kapu/tsundoku-go/internal/constants"
	"github.com/kapu/tsundoku-go/internal/util"
)

type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// Manager routes scout completions. When Gemini is configured it goes first;
// repeated failures open a circuit breaker and calls skip straight to the
// OpenAI-compatible fallback until Gemini recovers.
type Manager struct {
	gemini   Completer
	fallback Completer
	breaker  *util.CircuitBreaker
	logger   *zap.Logger
}

func NewManager(gemini, fallback Completer, logger *zap.Logger) *Manager {
	m := &Manager{
		gemini:   gemini,
		fallback: fallback,
		logger:   logger,
	}

	if gemini != nil {
		m.breaker = util.NewCircuitBreaker(
			constants.CircuitBreakerConfig.FailureThreshold,
			constants.CircuitBreakerConfig.ResetTimeout,
			constants.CircuitBreakerConfig.HealthCheckInterval,
			m.healthCheckPing,
			logger,
		)
	}

	return m
}

func (m *Manager) healthCheckPing() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	m.logger.Debug("Pinging Gemini...")

	reply, err := m.gemini.Complete(ctx, []Message{User("ping")})
	if err != nil {
		m.logger.Debug("Gemini ping failed", zap.Error(err))
		return false
	}

	return reply != ""
}

func (m *Manager) Complete(ctx context.Context, messages []Message) (string, error) {
	if m.gemini != nil && m.breaker.CanExecute() {
		text, err := m.gemini.Complete(ctx, messages)
		if err == nil {
			m.breaker.RecordSuccess()
			return text, nil
		}

		if isServiceFailure(err) {
			timeout := constants.CircuitBreakerConfig.ResetTimeout
			if isRateLimitError(err) {
				timeout = constants.CircuitBreakerConfig.RateLimitTimeout
			}
			m.breaker.RecordFailure(timeout)
		}

		m.logger.Warn("Gemini generation failed, using fallback",
			zap.Error(err))
	}

	return m.fallback.Complete(ctx, messages)
}

// isServiceFailure matches errors worth opening the circuit for: timeouts,
// rate limits and 5xx responses from either provider's error format.
func isServiceFailure(err error) bool {
	if err == nil {
		return false
	}

	msg := err.Error()

	if strings.Contains(msg, "timeout") || strings.Contains(msg, "ETIMEDOUT") {
		return true
	}

	if isRateLimitError(err) {
		return true
	}

	statusRegex := regexp.MustCompile(`\b(5\d{2})\b`)
	if statusRegex.MatchString(msg) {
		return true
	}

	geminiCodeRegex := regexp.MustCompile(`"code":(\d{3})`)
	if matches := geminiCodeRegex.FindStringSubmatch(msg); len(matches) > 1 {
		if code, err := strconv.Atoi(matches[1]); err == nil {
			return code >= 500 && code < 600
		}
	}

	return false
}

func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}

	msg := err.Error()

	if strings.Contains(msg, "429") || strings.Contains(msg, "Rate limit") || strings.Contains(msg, "quota") {
		return true
	}

	geminiCodeRegex := regexp.MustCompile(`"code":(\d{3})`)
	if matches := geminiCodeRegex.FindStringSubmatch(msg); len(matches) > 1 {
		if code, err := strconv.Atoi(matches[1]); err == nil {
			return code == 429
		}
	}

	return false
}
