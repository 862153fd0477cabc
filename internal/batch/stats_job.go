package batch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"customer-service/internal/domain/customer"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
)

const (
	defaultStatsSchedule = "*/5 * * * *"
	defaultStatsTimeout  = 30 * time.Second
)

// CustomerStatsJob publishes the number of stored customers as a gauge.
type CustomerStatsJob struct {
	customerService customer.CustomerService
	total           prometheus.Gauge
	duration        prometheus.Observer
	logger          *slog.Logger
}

func NewCustomerStatsJob(
	customerSvc customer.CustomerService,
	total prometheus.Gauge,
	duration prometheus.Observer,
	logger *slog.Logger,
) *CustomerStatsJob {
	if customerSvc == nil || total == nil || duration == nil || logger == nil {
		panic("CustomerStatsJob dependencies cannot be nil")
	}
	return &CustomerStatsJob{
		customerService: customerSvc,
		total:           total,
		duration:        duration,
		logger:          logger.With("job", "CustomerStats"),
	}
}

func (j *CustomerStatsJob) Run(ctx context.Context) error {
	startTime := time.Now()
	j.logger.InfoContext(ctx, "Starting customer statistics job.")

	customers, err := j.customerService.GetAllCustomers(ctx)
	if err != nil {
		j.logger.ErrorContext(ctx, "Failed to list customers, gauge left unchanged.", slog.Any("error", err))
		return fmt.Errorf("cannot run job, failed to list customers: %w", err)
	}

	j.total.Set(float64(len(customers)))

	elapsed := time.Since(startTime)
	j.duration.Observe(elapsed.Seconds())
	j.logger.InfoContext(ctx, "Customer statistics job finished.",
		slog.Int("customers", len(customers)),
		slog.Duration("duration", elapsed),
	)
	return nil
}

// Schedule registers job on c. An empty schedule or a non-positive timeout falls
// back to the defaults.
func Schedule(c *cron.Cron, spec string, timeout time.Duration, job *CustomerStatsJob, logger *slog.Logger) (cron.EntryID, error) {
	if spec == "" {
		spec = defaultStatsSchedule
		logger.Warn("Customer statistics schedule not configured, using default", "schedule", spec)
	}
	if timeout <= 0 {
		timeout = defaultStatsTimeout
	}

	jobID, err := c.AddJob(spec, cron.FuncJob(func() {
		jobLogger := logger.With("job_name", "CustomerStats")
		jobLogger.Info("Cron triggered: Running customer statistics job.")

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if runErr := job.Run(ctx); runErr != nil {
			jobLogger.Error("Customer statistics job finished with error", slog.Any("error", runErr))
		}
	}))
	if err != nil {
		logger.Error("Failed to schedule customer statistics job", "schedule", spec, slog.Any("error", err))
		return 0, fmt.Errorf("invalid statistics schedule %q: %w", spec, err)
	}

	logger.Info("Scheduled customer statistics job", "schedule", spec, "job_id", jobID)
	return jobID, nil
}
