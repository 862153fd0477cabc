package main

import (
	"context"
	"customer-service/internal/batch"
	"customer-service/internal/config"
	"customer-service/internal/domain/customer"
	"customer-service/internal/event"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type mockPublisher struct {
	event.NoopPublisher
	mock.Mock
}

func (m *mockPublisher) Close() error {
	return m.Called().Error(0)
}

type emptyRepository struct {
	customer.Repository
}

func (emptyRepository) SelectAll(context.Context) ([]*customer.Customer, error) {
	return []*customer.Customer{}, nil
}

func TestStartServer(t *testing.T) {
	cfg := &config.Config{
		Server: config.ServerConfig{
			Port:         0,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
			IdleTimeout:  5 * time.Second,
		},
	}

	srv, serverErrors, shutdownChan := startServer(cfg, http.NewServeMux(), testLogger)
	defer srv.Close()

	assert.NotNil(t, srv, "Server should not be nil")
	assert.NotNil(t, serverErrors, "Server errors channel should not be nil")
	assert.NotNil(t, shutdownChan, "Shutdown channel should not be nil")
}

func TestHandleShutdownClosesPublisher(t *testing.T) {
	pub := new(mockPublisher)
	pub.On("Close").Return(errors.New("already closed")).Once()

	shutdownChan := make(chan os.Signal, 1)
	serverErrors := make(chan error, 1)
	shutdownChan <- syscall.SIGTERM

	go func() {
		time.Sleep(50 * time.Millisecond)
		serverErrors <- nil
	}()

	handleShutdown(&http.Server{}, cron.New(), pub, shutdownChan, serverErrors, testLogger)

	pub.AssertExpectations(t)
}

func TestInitializePublisherDisabled(t *testing.T) {
	cfg := &config.Config{RabbitMQ: config.RabbitMQConfig{Enabled: false}}

	pub := initializePublisher(cfg, testLogger)

	assert.IsType(t, event.NoopPublisher{}, pub)
}

func TestStartBatchJobs(t *testing.T) {
	svc := customer.NewCustomerService(emptyRepository{}, nil, testLogger)
	job := batch.NewCustomerStatsJob(
		svc,
		prometheus.NewGauge(prometheus.GaugeOpts{Name: "main_test_customers_total"}),
		prometheus.NewHistogram(prometheus.HistogramOpts{Name: "main_test_stats_seconds"}),
		testLogger,
	)

	cfg := &config.Config{Batch: config.BatchConfig{StatsSchedule: "@every 1h", StatsTimeout: time.Second}}
	c := startBatchJobs(cfg, testLogger, job)
	defer c.Stop()

	assert.Len(t, c.Entries(), 1)
}
