package commands

import (
	"fmt"
	"strconv"

	"simpus/models"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print the dashboard counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		stats, err := st.DashboardStats(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Println(renderStats(stats))
		if stats.OverdueBorrows > 0 {
			Warning("%d loan(s) are past their due date", stats.OverdueBorrows)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func renderStats(s *models.DashboardStats) string {
	return renderTable("SIMPUS", []row{
		{"Users", strconv.Itoa(s.Users)},
		{"Books", strconv.Itoa(s.Books)},
		{"Available copies", strconv.Itoa(s.AvailableCopies)},
		{"Active borrows", strconv.Itoa(s.ActiveBorrows)},
		{"Overdue borrows", strconv.Itoa(s.OverdueBorrows)},
		{"Pending orders", strconv.Itoa(s.PendingOrders)},
	})
}
