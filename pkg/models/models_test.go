package models

import (
	"reflect"
	"testing"

	"github.com/marshallshelly/jobstore/pkg/registry"
	"github.com/marshallshelly/jobstore/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func table(t *testing.T, model any) *schema.TableMetadata {
	t.Helper()
	require.NoError(t, RegisterAll())
	meta, err := registry.Get(reflect.TypeOf(model))
	require.NoError(t, err)
	return meta
}

func TestRegisterAll(t *testing.T) {
	require.NoError(t, RegisterAll())
	require.NoError(t, RegisterAll(), "second registration must be a no-op")

	names := map[string]bool{}
	for _, m := range All() {
		meta, err := registry.Get(reflect.TypeOf(m))
		require.NoError(t, err)
		names[meta.Name] = true
		assert.Equal(t, "id", meta.PrimaryKeyColumn(), meta.Name)
	}
	for _, want := range []string{
		"administrators", "job_postings", "employers", "job_seekers", "resumes",
		"products", "orders", "discounts", "store_settings",
	} {
		assert.True(t, names[want], "missing table %s", want)
	}
}

func TestUniqueColumns(t *testing.T) {
	tests := []struct {
		model  any
		column string
	}{
		{Administrator{}, "username"},
		{Administrator{}, "email"},
		{Employer{}, "email"},
		{JobSeeker{}, "email"},
		{Order{}, "invoice_number"},
		{Discount{}, "code"},
		{StoreSetting{}, "key"},
	}
	for _, tt := range tests {
		meta := table(t, tt.model)
		assert.True(t, meta.IsUniqueKey(tt.column), "%s.%s should be unique", meta.Name, tt.column)
	}
}

func TestForeignKeyPolicies(t *testing.T) {
	resumes := table(t, Resume{})
	fk := resumes.ForeignKeyFor("job_seeker_id")
	require.NotNil(t, fk)
	assert.Equal(t, "job_seekers", fk.ReferencedTable)
	assert.Equal(t, schema.Cascade, fk.OnDelete)
	assert.False(t, resumes.GetColumn("job_seeker_id").Nullable)

	orders := table(t, Order{})
	fk = orders.ForeignKeyFor("product_id")
	require.NotNil(t, fk)
	assert.Equal(t, "products", fk.ReferencedTable)
	assert.Equal(t, schema.Restrict, fk.OnDelete)
}

func TestColumnShapes(t *testing.T) {
	products := table(t, Product{})
	assert.Equal(t, "numeric(10,2)", products.GetColumn("price").SQLType)
	assert.False(t, products.GetColumn("price").Nullable)

	orders := table(t, Order{})
	invoice := orders.GetColumn("invoice_number")
	assert.True(t, invoice.AutoIncrement)
	assert.True(t, orders.GetColumn("customer_email").Nullable)

	postings := table(t, JobPosting{})
	assert.Equal(t, "text[]", postings.GetColumn("categories").SQLType)
	assert.True(t, postings.GetColumn("updated_at").AutoUpdate)
	assert.True(t, postings.GetColumn("id").AutoUUID)

	seekers := table(t, JobSeeker{})
	rel := seekers.GetRelationship("Resumes")
	require.NotNil(t, rel)
	assert.Equal(t, schema.HasMany, rel.Type)
	assert.Equal(t, "job_seeker_id", rel.ForeignKey)
}

func TestDiscount_Exhausted(t *testing.T) {
	assert.False(t, Discount{MaxUses: 0, UsedCount: 100}.Exhausted())
	assert.False(t, Discount{MaxUses: 5, UsedCount: 4}.Exhausted())
	assert.True(t, Discount{MaxUses: 5, UsedCount: 5}.Exhausted())
}
