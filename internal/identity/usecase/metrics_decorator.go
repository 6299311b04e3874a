package usecase

import (
	"context"
	"time"

	"github.com/allisson/restgate/internal/identity/domain"
	"github.com/allisson/restgate/internal/metrics"
)

// userUseCaseWithMetrics decorates UserUseCase with metrics instrumentation.
type userUseCaseWithMetrics struct {
	next    UserUseCase
	metrics metrics.BusinessMetrics
}

// NewUserUseCaseWithMetrics wraps a UserUseCase with metrics recording.
func NewUserUseCaseWithMetrics(useCase UserUseCase, m metrics.BusinessMetrics) UserUseCase {
	return &userUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (u *userUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	u.metrics.RecordOperation(ctx, "identity", operation, status)
	u.metrics.RecordDuration(ctx, "identity", operation, time.Since(start), status)
}

// Register records metrics for registrations.
func (u *userUseCaseWithMetrics) Register(
	ctx context.Context,
	input *domain.RegisterInput,
) (*domain.AuthResult, error) {
	start := time.Now()
	result, err := u.next.Register(ctx, input)
	u.record(ctx, "register", start, err)
	return result, err
}

// Login records metrics for logins.
func (u *userUseCaseWithMetrics) Login(ctx context.Context, input *domain.LoginInput) (*domain.AuthResult, error) {
	start := time.Now()
	result, err := u.next.Login(ctx, input)
	u.record(ctx, "login", start, err)
	return result, err
}

// Authenticate records metrics for token verification.
func (u *userUseCaseWithMetrics) Authenticate(ctx context.Context, token string) (*domain.Claims, error) {
	start := time.Now()
	claims, err := u.next.Authenticate(ctx, token)
	u.record(ctx, "token_verify", start, err)
	return claims, err
}
