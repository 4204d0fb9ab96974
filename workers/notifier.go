package workers

import (
	"context"
	"fmt"
	"log"
	"time"

	"simpus/models"
	"simpus/store"
	"simpus/utils"
)

// Notifier secara berkala mengingatkan peminjam tentang jatuh tempo. Status
// pinjaman tidak pernah diubah di sini.
type Notifier struct {
	Store    *store.Store
	Hub      *utils.Hub
	Interval time.Duration
}

func NewNotifier(store *store.Store, hub *utils.Hub, interval time.Duration) *Notifier {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &Notifier{Store: store, Hub: hub, Interval: interval}
}

// Start runs Check immediately and then every Interval until ctx is done.
func (n *Notifier) Start(ctx context.Context) {
	ticker := time.NewTicker(n.Interval)
	go func() {
		defer ticker.Stop()
		n.Check(ctx) // Initial check
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n.Check(ctx)
			}
		}
	}()
}

// Check sends a reminder for loans due within a day and a warning for loans
// already past due. It returns how many new notifications were written.
func (n *Notifier) Check(ctx context.Context) int {
	log.Println("Worker: Checking for overdue books and reminders...")
	loans, err := n.Store.ListActiveBorrows(ctx)
	if err != nil {
		log.Println("Worker Error:", err)
		return 0
	}

	now := n.Store.Now().UTC()
	sent := 0
	for _, l := range loans {
		msg := reminder(l, now)
		if msg == "" {
			continue
		}
		notif, err := n.Store.CreateNotificationOnce(ctx, l.UserID, msg)
		if err != nil {
			log.Println("Worker Error:", err)
			continue
		}
		// nil berarti pesan yang sama sudah pernah dikirim
		if notif != nil {
			n.Hub.Send(l.UserID, utils.Event{Type: "notification", Data: notif})
			sent++
		}
	}
	return sent
}

func reminder(l models.BorrowTransaction, now time.Time) string {
	title := "Buku"
	if l.Book != nil && l.Book.Title != "" {
		title = l.Book.Title
	}

	if l.IsOverdue(now) {
		daysLate := int(now.Sub(l.DueAt).Hours() / 24)
		if daysLate < 1 {
			daysLate = 1
		} // Minimal 1 hari jika sudah lewat jatuh tempo
		return fmt.Sprintf("PERINGATAN: Buku '%s' terlambat %d hari. Segera kembalikan!", title, daysLate)
	}

	// Pengingat 1 hari sebelum jatuh tempo
	if untilDue := l.DueAt.Sub(now); untilDue > 0 && untilDue <= 24*time.Hour {
		return fmt.Sprintf("PENGINGAT: Buku '%s' harus dikembalikan besok (%s).", title, l.DueAt.Format("02 Jan 2006"))
	}
	return ""
}
