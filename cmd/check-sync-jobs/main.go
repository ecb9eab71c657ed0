package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/jorgedurante-source/taller-sub000/common/database"
	"github.com/jorgedurante-source/taller-sub000/internal/config"
	"github.com/jorgedurante-source/taller-sub000/internal/domain"
	"github.com/jorgedurante-source/taller-sub000/internal/repository"

	"go.uber.org/zap"
)

// 运维脚本：打印同步任务表各状态数量，以及最近的失败任务
func main() {
	limit := flag.Int("limit", 20, "number of failed jobs to print")
	target := flag.String("target", "", "only show jobs for this target tenant")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	jobs := repository.NewPostgresJobStore(db, zap.NewNop())
	if err := report(ctx, os.Stdout, jobs, *target, *limit); err != nil {
		log.Fatalf("%v", err)
	}
}

func report(ctx context.Context, out io.Writer, jobs repository.JobStore, target string, limit int) error {
	counts, err := jobs.CountByStatus(ctx)
	if err != nil {
		return fmt.Errorf("failed to count sync jobs: %w", err)
	}

	fmt.Fprintln(out, strings.Repeat("=", 80))
	fmt.Fprintln(out, "1. sync_jobs by status")
	fmt.Fprintln(out, strings.Repeat("=", 80))
	for _, status := range []domain.JobStatus{domain.JobPending, domain.JobDone, domain.JobFailed} {
		fmt.Fprintf(out, "%-10s %d\n", status, counts[status])
	}

	failed, err := jobs.ListJobs(ctx, repository.JobFilter{Status: domain.JobFailed, TargetSlug: target, Limit: limit})
	if err != nil {
		return fmt.Errorf("failed to list failed jobs: %w", err)
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.Repeat("=", 80))
	fmt.Fprintf(out, "2. latest failed jobs (%d)\n", len(failed))
	fmt.Fprintln(out, strings.Repeat("=", 80))

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tOPERATION\tSOURCE\tTARGET\tATTEMPTS\tCREATED\tERROR")
	for _, j := range failed {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			j.ID, j.Operation, j.SourceSlug, j.TargetSlug, j.Attempts, j.CreatedAt.Format(time.RFC3339), j.ErrorMessage)
	}
	return tw.Flush()
}
