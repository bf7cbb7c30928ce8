package service

import (
	"fmt"

	"catalog-admin/internal/domain"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// classify passes caller-actionable errors through unchanged. Anything else is
// logged and replaced by domain.ErrInternal so store details never leak.
func classify(logger *zap.Logger, operation string, id uuid.UUID, err error) error {
	if err == nil {
		return nil
	}
	if domain.IsClassified(err) {
		return err
	}

	fields := []zap.Field{zap.String("operation", operation), zap.Error(err)}
	if id != uuid.Nil {
		fields = append(fields, zap.String("id", id.String()))
	}
	logger.Error("catalog operation failed", fields...)

	return fmt.Errorf("%s: %w", operation, domain.ErrInternal)
}
