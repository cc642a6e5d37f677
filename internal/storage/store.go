package storage

import (
	"context"

	"tttevo/internal/model"
)

// Store persists evaluator parameter records keyed by id.
type Store interface {
	Init(ctx context.Context) error
	SaveParameters(ctx context.Context, record model.ParameterRecord) error
	GetParameters(ctx context.Context, id string) (model.ParameterRecord, bool, error)
	ListParameters(ctx context.Context) ([]string, error)
	DeleteParameters(ctx context.Context, id string) error
}
