package store

import (
	"context"

	"simpus/models"
)

// DashboardStats gathers the counts shown on the admin console.
func (s *Store) DashboardStats(ctx context.Context) (*models.DashboardStats, error) {
	var st models.DashboardStats
	var err error

	if st.Users, err = s.CountUsers(ctx); err != nil {
		return nil, err
	}

	books, err := s.BookStats(ctx)
	if err != nil {
		return nil, err
	}
	st.Books = books.TotalBooks
	st.AvailableCopies = books.AvailableBooks

	if st.ActiveBorrows, st.OverdueBorrows, err = s.CountActiveBorrows(ctx, s.now()); err != nil {
		return nil, err
	}

	if st.PendingOrders, err = s.CountOrdersByStatus(ctx, models.OrderRequested); err != nil {
		return nil, err
	}
	return &st, nil
}
