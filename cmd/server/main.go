package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/in-nis/timetable-back/internal/api"
	"github.com/in-nis/timetable-back/internal/config"
	"github.com/in-nis/timetable-back/internal/cron"
	"github.com/in-nis/timetable-back/internal/db"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ No .env file found, using system env")
	}

	cfg := config.Load()

	db.InitDB(cfg.DBUrl)

	r := api.SetupRouter(cfg)

	// Start cron jobs
	cron.StartJobs(cfg)

	log.Println("Server running on :8000")
	r.Run(":8000")
}
