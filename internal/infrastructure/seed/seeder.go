package seed

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"customer-service/internal/domain/customer"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
)

const (
	maxAge        = 100
	fallbackLocal = "customer"
)

// Seeder writes fake customers straight through a repository at startup.
type Seeder struct {
	repo   customer.Repository
	faker  *gofakeit.Faker
	newID  func() string
	logger *slog.Logger
}

// NewSeeder returns a Seeder backed by a randomly seeded faker.
func NewSeeder(repo customer.Repository, logger *slog.Logger) *Seeder {
	return newSeeder(repo, gofakeit.New(0), uuid.NewString, logger)
}

func newSeeder(repo customer.Repository, faker *gofakeit.Faker, newID func() string, logger *slog.Logger) *Seeder {
	if repo == nil {
		panic("customer repository cannot be nil for Seeder")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	}
	return &Seeder{
		repo:   repo,
		faker:  faker,
		newID:  newID,
		logger: logger.With("component", "Seeder"),
	}
}

// FakeCustomer builds an unsaved customer with a random name, an email made
// unique by a uuid fragment and an age in [0, 100).
func (s *Seeder) FakeCustomer() *customer.Customer {
	first := s.faker.FirstName()
	last := s.faker.LastName()
	suffix := strings.ReplaceAll(s.newID(), "-", "")[:8]

	email := fmt.Sprintf("%s.%s.%s@example.com", emailLocalPart(first), emailLocalPart(last), suffix)
	return customer.NewCustomer(first+" "+last, email, s.faker.IntRange(0, maxAge-1))
}

// emailLocalPart keeps the lowercase ASCII letters of name.
func emailLocalPart(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if r >= 'a' && r <= 'z' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return fallbackLocal
	}
	return b.String()
}

// Seed inserts count fake customers and returns how many were stored.
// Failures are logged and skipped.
func (s *Seeder) Seed(ctx context.Context, count int) int {
	inserted := 0
	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			s.logger.WarnContext(ctx, "Seeding interrupted", slog.Any("error", err))
			break
		}
		cust := s.FakeCustomer()
		if err := s.repo.Insert(ctx, cust); err != nil {
			s.logger.ErrorContext(ctx, "Failed to insert seed customer", slog.String("email", cust.Email), slog.Any("error", err))
			continue
		}
		inserted++
	}

	s.logger.InfoContext(ctx, "Seeding finished", slog.Int("requested", count), slog.Int("inserted", inserted))
	return inserted
}
