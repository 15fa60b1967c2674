// audit/service.go
package audit

import (
	"context"
)

type Service interface {
	LogAccess(ctx context.Context, entry Entry) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) LogAccess(ctx context.Context, entry Entry) error {
	return s.repo.LogAccess(ctx, entry)
}
