package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/exqlabs/roster/internal/app/seed"
	"github.com/exqlabs/roster/internal/repository/postgres"
	"github.com/exqlabs/roster/internal/runlock"
	"github.com/exqlabs/roster/internal/service/allocate"
	"github.com/exqlabs/roster/internal/service/repair"
	"github.com/exqlabs/roster/internal/service/team"
	"github.com/exqlabs/roster/pkg/config"
	"github.com/exqlabs/roster/pkg/logger"
)

// Subject domains applied to known teams by the update-domains command.
var teamDomains = map[string]string{
	"CodeMasters":         "Data Structures",
	"WebDevelopers":       "Web Development",
	"AI Innovators":       "Machine Learning",
	"Data Wizards":        "Database Design",
	"Cloud Architects":    "Cloud Computing",
	"Mobile Masters":      "Mobile Development",
	"DevOps Engineers":    "DevOps",
	"Blockchain Builders": "Blockchain",
	"ML Experts":          "Machine Learning",
	"Cyber Guardians":     "Cybersecurity",
	"Security Squad":      "Web Security",
	"API Architects":      "API Design",
}

func main() {
	cfg := config.LoadRosterConfig()

	command := flag.String("command", "", "maintenance command (assign|assign-two|fix-capacity|seed|update-domains)")
	dryRun := flag.Bool("dry-run", cfg.FixCapacityDryRun, "fix-capacity: report the plan without mutating state")
	rngSeed := flag.Int64("seed", time.Now().UnixNano(), "assign-two: shuffle seed for reproducible runs")
	timeout := flag.Duration("timeout", 5*time.Minute, "command timeout")
	flag.Parse()

	log := logger.New("roster", slog.LevelInfo)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	repo := postgres.New(pool)
	allocSvc := allocate.New(repo, repo, log)
	repairSvc := repair.New(repo, repo, log)
	teamSvc := team.New(repo, repo, log)
	seeder := seed.New(repo, repo, cfg.SeedPassword, log)

	// Batch passes assume no concurrent batch writers; the lock keeps
	// overlapping maintenance runs out of each other's way.
	mutating := *command == "assign" || *command == "assign-two" ||
		(*command == "fix-capacity" && !*dryRun)
	if mutating && cfg.MaintLockRedisAddr != "" {
		lock, err := runlock.New(cfg.MaintLockRedisAddr, cfg.MaintLockRedisPass, cfg.MaintLockRedisDB, cfg.MaintLockTTL, log)
		if err != nil {
			log.Error("maintenance lock unavailable", "error", err)
			os.Exit(1)
		}
		defer lock.Close()

		release, err := lock.Acquire(ctx)
		if err != nil {
			log.Error("could not acquire maintenance lock", "error", err)
			os.Exit(1)
		}
		defer release(context.Background())
	}

	switch *command {
	case "assign":
		report, err := allocSvc.RunSingle(ctx)
		if err != nil {
			log.Error("single assignment failed", "error", err)
			os.Exit(1)
		}
		log.Info("done",
			"assigned", report.Assigned,
			"already_had_team", report.AlreadyHadTeam,
			"skipped_no_capacity", report.SkippedNoCapacity,
			"processed", report.Processed)

	case "assign-two":
		report, err := allocSvc.RunDual(ctx, *rngSeed)
		if err != nil {
			log.Error("dual assignment failed", "error", err)
			os.Exit(1)
		}
		log.Info("done",
			"fully_assigned", report.Fully,
			"partially_assigned", report.Partial,
			"unassigned", report.Unassigned,
			"skipped", report.Skipped,
			"seed", *rngSeed)

	case "fix-capacity":
		if *dryRun {
			log.Info("running in dry-run mode, no writes will be performed")
		}
		plan, err := repairSvc.Run(ctx, *dryRun)
		if err != nil {
			log.Error("capacity repair failed", "error", err)
			os.Exit(1)
		}
		for _, tp := range plan.Teams {
			log.Info("plan", "team", tp.TeamName, "kept", len(tp.Kept), "removed", tp.Removed)
		}
		log.Info("done", "teams_fixed", len(plan.Teams), "dry_run", *dryRun)

	case "seed":
		if err := seeder.Run(ctx); err != nil {
			log.Error("seed failed", "error", err)
			os.Exit(1)
		}

	case "update-domains":
		updated := 0
		for name, dom := range teamDomains {
			ok, err := teamSvc.SetDomain(ctx, name, dom)
			if err != nil {
				log.Error("domain update failed", "team", name, "error", err)
				os.Exit(1)
			}
			if ok {
				log.Info("updated team domain", "team", name, "domain", dom)
				updated++
			}
		}
		log.Info("done", "updated", updated)

	default:
		log.Error("unsupported command", "command", *command)
		os.Exit(1)
	}
}
