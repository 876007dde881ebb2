package validation

import (
	"context"
	"fmt"
	"time"

	"github.com/zfogg/searchstudy/internal/logger"
	"go.uber.org/zap"
)

// Check pings one optional backing service
type Check func(ctx context.Context) error

// ServiceValidator fails startup when a service marked as required is
// unreachable.
type ServiceValidator struct {
	required []string
	checks   map[string]Check
	timeout  time.Duration
}

// NewServiceValidator creates a validator for the named required services
func NewServiceValidator(required ...string) *ServiceValidator {
	return &ServiceValidator{
		required: required,
		checks:   make(map[string]Check),
		timeout:  10 * time.Second,
	}
}

// Register adds the check for a service name
func (sv *ServiceValidator) Register(name string, check Check) {
	sv.checks[name] = check
}

// ValidateServices runs the check for every required service
func (sv *ServiceValidator) ValidateServices(ctx context.Context) error {
	if len(sv.required) == 0 {
		logger.Log.Info("No required services configured for validation")
		return nil
	}

	logger.Log.Info("Validating required services", zap.Strings("services", sv.required))

	for _, name := range sv.required {
		check, ok := sv.checks[name]
		if !ok {
			return fmt.Errorf("required service %q is not configured", name)
		}

		timeoutCtx, cancel := context.WithTimeout(ctx, sv.timeout)
		err := check(timeoutCtx)
		cancel()
		if err != nil {
			logger.Log.Error("Required service validation failed",
				zap.String("service", name),
				zap.Error(err),
			)
			return fmt.Errorf("required service '%s' validation failed: %w", name, err)
		}

		logger.Log.Info("Service validated", zap.String("service", name))
	}
	return nil
}
