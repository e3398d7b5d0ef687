package repository

import "context"

// LeadMetrics aggregates marketplace KPIs for the admin dashboard.
type LeadMetrics struct {
	TotalLeads     int
	AvailableLeads int
	LockedLeads    int
	SoldLeads      int
	RevenueCents   int64
	TotalViews     int64
}

// GetMetrics returns KPI aggregates over all non-archived leads. A lead
// counts as sold once it has a purchase timestamp, whatever its later status.
func (r *Repository) GetMetrics(ctx context.Context) (LeadMetrics, error) {
	var metrics LeadMetrics
	err := r.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) AS total_leads,
			COUNT(*) FILTER (WHERE status = 'AVAILABLE') AS available_leads,
			COUNT(*) FILTER (WHERE status = 'LOCKED') AS locked_leads,
			COUNT(*) FILTER (WHERE purchased_at IS NOT NULL) AS sold_leads,
			COALESCE(SUM(price_cents) FILTER (WHERE purchased_at IS NOT NULL), 0)::bigint AS revenue_cents,
			COALESCE(SUM(view_count), 0)::bigint AS total_views
		FROM leads
		WHERE status <> 'ARCHIVED'
	`).Scan(
		&metrics.TotalLeads,
		&metrics.AvailableLeads,
		&metrics.LockedLeads,
		&metrics.SoldLeads,
		&metrics.RevenueCents,
		&metrics.TotalViews,
	)
	if err != nil {
		return LeadMetrics{}, err
	}
	return metrics, nil
}
