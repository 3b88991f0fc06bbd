// internal/service/audit/audit.go
package audit

import (
	"context"

	"go.uber.org/zap"

	"rdm-service/internal/domain/audit"
)

// Repository is the slice of audit persistence the recorder needs.
type Repository interface {
	Insert(ctx context.Context, e *audit.Entry) error
	List(ctx context.Context, userID *int, action audit.Action, page, size int) ([]*audit.Entry, int, error)
}

// Service records audit entries. Recording is best effort: a failed write is
// logged and swallowed so it never turns a succeeded operation into an error.
type Service struct {
	repo   Repository
	logger *zap.Logger
}

func NewService(repo Repository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Record appends one entry, never failing the caller.
func (s *Service) Record(ctx context.Context, e *audit.Entry) {
	if err := s.repo.Insert(ctx, e); err != nil {
		s.logger.Error("failed to record audit entry",
			zap.String("action", string(e.Action)),
			zap.String("resource_type", e.ResourceType),
			zap.Error(err))
	}
}

// List returns one page of the trail, newest first.
func (s *Service) List(ctx context.Context, userID *int, action audit.Action, page, size int) ([]*audit.Entry, int, error) {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = 20
	}
	if size > 100 {
		size = 100
	}
	return s.repo.List(ctx, userID, action, page, size)
}
