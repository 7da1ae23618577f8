//go:build integration

package jobstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/marshallshelly/jobstore/pkg/builder"
	"github.com/marshallshelly/jobstore/pkg/client"
	"github.com/marshallshelly/jobstore/pkg/migration"
	"github.com/marshallshelly/jobstore/pkg/models"
	"github.com/marshallshelly/jobstore/pkg/runtime"
)

// setupTestDB starts PostgreSQL and returns a client over a database migrated
// with the files in ./migrations.
func setupTestDB(t *testing.T) (*client.Client, *migration.Executor, []migration.Migration) {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("jobstore"),
		postgres.WithUsername("jobstore"),
		postgres.WithPassword("jobstore"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "start postgres container")
	t.Cleanup(func() {
		if err := pgContainer.Terminate(context.Background()); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	cfg := runtime.DefaultConfig()
	cfg.DatasourceURL = connStr
	c, err := client.Connect(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(c.Close)

	migrations, err := migration.NewGenerator("migrations").LoadAll()
	require.NoError(t, err)
	require.NotEmpty(t, migrations)

	exec := migration.NewExecutor(c.DB().Pool()).WithLogger(c.Logger())
	require.NoError(t, exec.Initialize(ctx))
	_, err = exec.ApplyAll(ctx, migrations, false)
	require.NoError(t, err)

	return c, exec, migrations
}

func createProduct(t *testing.T, ctx context.Context, c *client.Client, name, price string) *models.Product {
	t.Helper()
	active := true
	p, err := c.Product.Create(ctx, models.Product{
		Type:        "job_package",
		Name:        name,
		Description: name,
		Price:       decimal.RequireFromString(price),
		Active:      &active,
	})
	require.NoError(t, err)
	return p
}

func TestIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	ctx := context.Background()
	c, exec, migrations := setupTestDB(t)

	t.Run("OrderIncludesProduct", func(t *testing.T) {
		product := createProduct(t, ctx, c, "Single Job Post", "29.99")
		order, err := c.Order.Create(ctx, models.Order{
			InvoiceNumber: 1001,
			CustomerType:  "employer",
			CustomerName:  "Acme Corp",
			ProductID:     product.ID,
			Total:         product.Price,
			Status:        models.StatusPaid,
		})
		require.NoError(t, err)

		found, err := c.Order.FindUniqueOrThrow(ctx, client.UniqueArgs{
			Where:   []builder.Condition{builder.Eq("invoice_number", 1001)},
			Include: []string{"Product"},
		})
		require.NoError(t, err)
		assert.Equal(t, order.ID, found.ID)
		require.NotNil(t, found.Product)
		assert.Equal(t, "29.99", found.Product.Price.StringFixed(2))
		require.NotNil(t, found.Product.Active)
		assert.True(t, *found.Product.Active)
	})

	t.Run("UniqueViolation", func(t *testing.T) {
		_, err := c.Discount.Create(ctx, models.Discount{Code: "WELCOME", Type: "percent", Value: decimal.NewFromInt(10)})
		require.NoError(t, err)
		_, err = c.Discount.Create(ctx, models.Discount{Code: "WELCOME", Type: "percent", Value: decimal.NewFromInt(5)})
		assert.ErrorIs(t, err, runtime.ErrDuplicateKey)
		assert.True(t, runtime.IsUniqueViolation(err))
	})

	t.Run("ForeignKeyViolation", func(t *testing.T) {
		_, err := c.Resume.Create(ctx, models.Resume{
			JobSeekerID:  "00000000-0000-0000-0000-000000000000",
			DesiredTitle: "Engineer",
			JobType:      "full_time",
			Summary:      "Go developer",
			Location:     "Remote",
			Phone:        "555-0100",
		})
		assert.ErrorIs(t, err, runtime.ErrForeignKeyViolation)
	})

	t.Run("FindUniqueMissing", func(t *testing.T) {
		got, err := c.Employer.FindUnique(ctx, client.UniqueArgs{
			Where: []builder.Condition{builder.Eq("email", "nobody@example.com")},
		})
		require.NoError(t, err)
		assert.Nil(t, got)

		_, err = c.Employer.FindUniqueOrThrow(ctx, client.UniqueArgs{
			Where: []builder.Condition{builder.Eq("email", "nobody@example.com")},
		})
		assert.True(t, runtime.IsNotFound(err))
	})

	t.Run("UpsertIsIdempotent", func(t *testing.T) {
		for _, value := range []string{"USD", "EUR"} {
			v := value
			_, err := c.StoreSetting.Upsert(ctx, client.UpsertArgs[models.StoreSetting, models.StoreSettingUpdate]{
				Where:  []builder.Condition{builder.Eq("key", "currency")},
				Create: models.StoreSetting{Key: "currency", Value: v},
				Update: models.StoreSettingUpdate{Value: &v},
			})
			require.NoError(t, err)
		}
		n, err := c.StoreSetting.Count(ctx, client.FindArgs{Where: []builder.Condition{builder.Eq("key", "currency")}})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		got, err := c.StoreSetting.FindUniqueOrThrow(ctx, client.UniqueArgs{
			Where: []builder.Condition{builder.Eq("key", "currency")},
		})
		require.NoError(t, err)
		assert.Equal(t, "EUR", got.Value)
	})

	t.Run("DeletingSeekerCascadesToResumes", func(t *testing.T) {
		seeker, err := c.JobSeeker.Create(ctx, models.JobSeeker{
			Email:        "seeker@example.com",
			PasswordHash: "x",
			FirstName:    "Sam",
			LastName:     "Lee",
		})
		require.NoError(t, err)
		_, err = c.Resume.CreateMany(ctx, client.CreateManyArgs[models.Resume]{Data: []models.Resume{
			{JobSeekerID: seeker.ID, DesiredTitle: "Engineer", JobType: "full_time", Summary: "a", Location: "Remote", Phone: "1"},
			{JobSeekerID: seeker.ID, DesiredTitle: "Lead", JobType: "contract", Summary: "b", Location: "Remote", Phone: "1"},
		}})
		require.NoError(t, err)

		_, err = c.JobSeeker.Delete(ctx, client.UniqueArgs{Where: []builder.Condition{builder.Eq("id", seeker.ID)}})
		require.NoError(t, err)

		n, err := c.Resume.Count(ctx, client.FindArgs{Where: []builder.Condition{builder.Eq("job_seeker_id", seeker.ID)}})
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("ProductWithOrdersIsRestricted", func(t *testing.T) {
		product := createProduct(t, ctx, c, "Featured Employer", "99.00")
		_, err := c.Order.Create(ctx, models.Order{
			InvoiceNumber: 2001,
			CustomerType:  "guest",
			CustomerName:  "Walk-in",
			ProductID:     product.ID,
			Total:         product.Price,
			Status:        models.StatusPending,
		})
		require.NoError(t, err)

		_, err = c.Product.Delete(ctx, client.UniqueArgs{Where: []builder.Condition{builder.Eq("id", product.ID)}})
		assert.ErrorIs(t, err, runtime.ErrForeignKeyViolation)
	})

	t.Run("TransactionRollsBack", func(t *testing.T) {
		boom := errors.New("boom")
		err := c.Transaction(ctx, func(ctx context.Context, tx *client.Client) error {
			if _, err := tx.Administrator.Create(ctx, models.Administrator{
				Username:     "rollback",
				Email:        "rollback@example.com",
				PasswordHash: "x",
			}); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		got, err := c.Administrator.FindUnique(ctx, client.UniqueArgs{
			Where: []builder.Condition{builder.Eq("username", "rollback")},
		})
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("BatchIsAtomic", func(t *testing.T) {
		_, err := c.Batch(ctx,
			client.Op(func(ctx context.Context, tx *client.Client) (*models.Discount, error) {
				return tx.Discount.Create(ctx, models.Discount{Code: "BATCH1", Type: "fixed", Value: decimal.NewFromInt(1)})
			}),
			client.Op(func(ctx context.Context, tx *client.Client) (*models.Discount, error) {
				return tx.Discount.Create(ctx, models.Discount{Code: "BATCH1", Type: "fixed", Value: decimal.NewFromInt(2)})
			}),
		)
		assert.ErrorIs(t, err, runtime.ErrDuplicateKey)

		n, err := c.Discount.Count(ctx, client.FindArgs{Where: []builder.Condition{builder.Eq("code", "BATCH1")}})
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("RawQuery", func(t *testing.T) {
		rows, err := c.QueryRaw(ctx, "SELECT count(*) AS n FROM products WHERE active = $1", true)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.GreaterOrEqual(t, rows[0]["n"], int64(2))

		affected, err := c.ExecuteRaw(ctx, "UPDATE store_settings SET value = $1 WHERE key = $2", "GBP", "currency")
		require.NoError(t, err)
		assert.Equal(t, int64(1), affected)
	})

	t.Run("MigrationStatus", func(t *testing.T) {
		status, err := exec.GetStatus(ctx, migrations)
		require.NoError(t, err)
		require.Len(t, status, len(migrations))
		for _, r := range status {
			assert.Equal(t, migration.StatusApplied, r.Status, r.Version)
		}
		assert.NoError(t, exec.Validate(ctx, migrations))

		applied, err := exec.ApplyAll(ctx, migrations, false)
		require.NoError(t, err)
		assert.Empty(t, applied)
	})
}

func TestIntegrationRollback(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	ctx := context.Background()
	c, exec, migrations := setupTestDB(t)

	rolled, err := exec.RollbackSteps(ctx, migrations, 1, false)
	require.NoError(t, err)
	require.Len(t, rolled, 1)
	assert.Equal(t, migrations[len(migrations)-1].Version, rolled[0].Version)

	_, err = c.QueryRaw(ctx, "SELECT 1 FROM store_settings")
	assert.Error(t, err)

	applied, err := exec.ApplyAll(ctx, migrations, false)
	require.NoError(t, err)
	assert.Len(t, applied, 1)
}
