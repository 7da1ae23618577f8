package builder

import (
	"context"
	"testing"

	"github.com/marshallshelly/jobstore/pkg/builder/buildertest"
)

func TestPreload_HasMany(t *testing.T) {
	q := buildertest.New(
		buildertest.Rows([]string{"id", "name"}, []any{"g1", "Lamp"}, []any{"g2", "Desk"}),
		buildertest.Rows([]string{"id", "gadget_id", "label"},
			[]any{int64(1), "g1", "bulb"},
			[]any{int64(2), "g1", "shade"},
		),
	)

	gadgets, err := Select[Gadget](q).Preload("Parts").All(context.Background())
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	if len(gadgets[0].Parts) != 2 || gadgets[0].Parts[1].Label != "shade" {
		t.Errorf("unexpected parts for g1: %+v", gadgets[0].Parts)
	}
	if len(gadgets[1].Parts) != 0 {
		t.Errorf("expected no parts for g2, got %+v", gadgets[1].Parts)
	}

	want := "SELECT * FROM parts WHERE gadget_id IN ($1, $2) ORDER BY id ASC"
	if got := q.SQL(1); got != want {
		t.Errorf("preload SQL = %s, want %s", got, want)
	}
}

func TestPreload_BelongsTo(t *testing.T) {
	q := buildertest.New(
		buildertest.Rows([]string{"id", "gadget_id", "label"},
			[]any{int64(1), "g1", "bulb"},
			[]any{int64(2), "g1", "shade"},
		),
		buildertest.Rows([]string{"id", "name"}, []any{"g1", "Lamp"}),
	)

	parts, err := Select[Part](q).Preload("Gadget").All(context.Background())
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	for _, p := range parts {
		if p.Gadget == nil || p.Gadget.Name != "Lamp" {
			t.Errorf("part %d: gadget not loaded: %+v", p.ID, p.Gadget)
		}
	}
	if args := q.Calls()[1].Args; len(args) != 1 {
		t.Errorf("expected deduplicated keys, got %v", args)
	}
}

func TestPreload_UnknownRelationship(t *testing.T) {
	q := buildertest.New(buildertest.Rows([]string{"id"}, []any{"g1"}))

	if _, err := Select[Gadget](q).Preload("Owner").All(context.Background()); err == nil {
		t.Fatal("expected error for unknown relationship")
	}
}
