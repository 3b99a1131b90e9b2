package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/nilgirisfresh-backend/api/responses"
	"github.com/angelmondragon/nilgirisfresh-backend/internal/catalog"
	"github.com/angelmondragon/nilgirisfresh-backend/internal/orders"
	pkgerrors "github.com/angelmondragon/nilgirisfresh-backend/pkg/errors"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/logger"
)

type catalogStatsReader interface {
	Stats(ctx context.Context) (catalog.Stats, error)
}

type orderStatusCounter interface {
	StatusCounts(ctx context.Context) (orders.StatusCounts, error)
}

type customerCounter interface {
	CountCustomers(ctx context.Context) (int64, error)
}

type dashboardResponse struct {
	Products    int64               `json:"products"`
	Categories  int64               `json:"categories"`
	Customers   int64               `json:"customers"`
	TotalOrders int64               `json:"total_orders"`
	Orders      orders.StatusCounts `json:"orders_by_status"`
}

// AdminDashboard aggregates the back-office counters.
func AdminDashboard(cat catalogStatsReader, ord orderStatusCounter, customers customerCounter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cat == nil || ord == nil || customers == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dashboard unavailable"))
			return
		}

		stats, err := cat.Stats(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		counts, err := ord.StatusCounts(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		shoppers, err := customers.CountCustomers(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count customers"))
			return
		}

		var total int64
		for _, n := range counts {
			total += n
		}
		responses.WriteSuccess(w, dashboardResponse{
			Products:    stats.Products,
			Categories:  stats.Categories,
			Customers:   shoppers,
			TotalOrders: total,
			Orders:      counts,
		})
	}
}
