package warehouses

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/orderdesk-backend/pkg/db/dbtest"
	"github.com/angelmondragon/orderdesk-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/orderdesk-backend/pkg/errors"
	"github.com/angelmondragon/orderdesk-backend/pkg/pagination"
)

func TestServiceListPaginates(t *testing.T) {
	conn := dbtest.Open(t)
	seed(t, conn,
		models.Warehouse{Name: "Warsaw", Lat: 52.165833, Lng: 20.967222, StockUnits: 245},
		models.Warehouse{Name: "Paris", Lat: 49.009722, Lng: 2.547778, StockUnits: 694},
		models.Warehouse{Name: "Hong Kong", Lat: 22.308889, Lng: 113.914444, StockUnits: 419},
	)

	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)

	page, err := svc.List(context.Background(), pagination.Params{Page: 2, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.Equal(t, "Warsaw", page.Items[0].Name)
	require.Equal(t, pagination.Meta{Page: 2, Limit: 2, Total: 3, TotalPages: 2, HasPrevious: true}, page.Pagination)
}

func TestServiceListWrapsStoreFailure(t *testing.T) {
	conn := dbtest.Open(t)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)

	_, err = svc.List(context.Background(), pagination.Params{})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeDependency))
}

func TestNewServiceRequiresRepository(t *testing.T) {
	_, err := NewService(nil)
	require.Error(t, err)
}
