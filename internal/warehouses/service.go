package warehouses

import (
	"context"
	"fmt"

	"github.com/angelmondragon/orderdesk-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/orderdesk-backend/pkg/errors"
	"github.com/angelmondragon/orderdesk-backend/pkg/pagination"
)

// Page is one page of warehouses plus its metadata.
type Page struct {
	Items      []models.Warehouse
	Pagination pagination.Meta
}

// Service exposes read access to warehouses.
type Service interface {
	List(ctx context.Context, params pagination.Params) (*Page, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("warehouse repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context, params pagination.Params) (*Page, error) {
	p := params.Normalize()
	rows, total, err := s.repo.List(ctx, p)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list warehouses")
	}
	return &Page{Items: rows, Pagination: pagination.NewMeta(p, total)}, nil
}
