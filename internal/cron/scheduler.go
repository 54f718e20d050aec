package cron

import (
	"context"
	"log"

	"github.com/robfig/cron/v3"

	"github.com/in-nis/timetable-back/internal/config"
	"github.com/in-nis/timetable-back/internal/db"
	"github.com/in-nis/timetable-back/internal/excel"
	"github.com/in-nis/timetable-back/internal/models"
	"github.com/in-nis/timetable-back/internal/timetable"
)

func StartJobs(cfg *config.Config) {
	c := cron.New()

	// Nightly ledger audit. A gap or duplicate in a history sequence can
	// never be produced by the write path, so any finding here is a bug,
	// not an operational error. Constraint drift after unvalidated manual
	// edits is reported alongside.
	c.AddFunc("@daily", func() {
		log.Println("Running ledger audit job...")

		svc := &timetable.Service{DB: db.DB}
		findings, err := svc.AuditLedger(context.Background())
		if err != nil {
			log.Println("❌ Ledger audit failed:", err)
			return
		}
		if len(findings) == 0 {
			log.Println("✅ Ledger audit clean")
			return
		}
		for _, f := range findings {
			log.Println("🚨 Ledger audit:", f)
		}
	})

	// Nightly reservation sheet sync, when a sheet is configured.
	if cfg.ReservationSheetURL != "" {
		c.AddFunc("@daily", func() {
			log.Println("Running reservation sheet sync...")

			path, err := excel.DownloadSheet(cfg.ReservationSheetURL)
			if err != nil {
				log.Println("❌ Failed to download reservation sheet:", err)
				return
			}

			reservations, err := excel.ParseReservations(path)
			if err != nil {
				log.Println("❌ Failed to parse reservation sheet:", err)
				return
			}

			byLevel := map[int][]models.FixedReservation{}
			for _, r := range reservations {
				byLevel[r.Level] = append(byLevel[r.Level], r)
			}
			for level, fixed := range byLevel {
				if err := db.ReplaceFixedReservations(context.Background(), level, fixed); err != nil {
					log.Printf("❌ Failed to save reservations for level %d: %v\n", level, err)
					continue
				}
				log.Printf("✅ Saved %d reservations for level %d\n", len(fixed), level)
			}
		})
	}

	c.Start()
}
