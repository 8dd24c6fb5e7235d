package store

import (
	"context"

	"github.com/vorokhovskii-creator/felix-hub/internal/models"
)

// DashboardStats is the admin dashboard summary.
type DashboardStats struct {
	Orders          models.OrderStats    `json:"orders"`
	Mechanics       int                  `json:"mechanics"`
	ActiveMechanics int                  `json:"active_mechanics"`
	Parts           int                  `json:"parts"`
	Categories      int                  `json:"categories"`
	TopMechanics    []MechanicOrderCount `json:"top_mechanics"`
}

type MechanicOrderCount struct {
	MechanicID int64  `json:"mechanic_id"`
	FullName   string `json:"full_name"`
	OrderCount int    `json:"order_count"`
}

func (c *conn) GetDashboardStats(ctx context.Context) (*DashboardStats, error) {
	stats := &DashboardStats{TopMechanics: []MechanicOrderCount{}}

	orders, err := c.OrderStats(ctx, nil)
	if err != nil {
		return nil, err
	}
	stats.Orders = orders

	if stats.Mechanics, stats.ActiveMechanics, err = c.CountMechanics(ctx); err != nil {
		return nil, err
	}
	if stats.Parts, err = c.CountParts(ctx); err != nil {
		return nil, err
	}
	if err = c.queryRow(ctx, `SELECT COUNT(*) FROM categories`).Scan(&stats.Categories); err != nil {
		return nil, err
	}

	rows, err := c.query(ctx, `
		SELECT m.id, m.full_name, COUNT(o.id) AS order_count
		FROM mechanics m
		LEFT JOIN orders o ON o.mechanic_id = m.id
		GROUP BY m.id, m.full_name
		ORDER BY order_count DESC, m.id
		LIMIT 5`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var mc MechanicOrderCount
		if err := rows.Scan(&mc.MechanicID, &mc.FullName, &mc.OrderCount); err != nil {
			return nil, err
		}
		stats.TopMechanics = append(stats.TopMechanics, mc)
	}
	return stats, rows.Err()
}
