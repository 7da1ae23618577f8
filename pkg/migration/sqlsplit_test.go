package migration

import (
	"strings"
	"testing"
)

func TestSplitSQL(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   []string
	}{
		{
			name:   "plain statements",
			script: "CREATE TABLE a (id int);\nCREATE TABLE b (id int);\n",
			want:   []string{"CREATE TABLE a (id int)", "CREATE TABLE b (id int)"},
		},
		{
			name:   "semicolon in string",
			script: "INSERT INTO store_settings (key, value) VALUES ('banner', 'sale; today');",
			want:   []string{"INSERT INTO store_settings (key, value) VALUES ('banner', 'sale; today')"},
		},
		{
			name:   "escaped quote",
			script: "SELECT 'it''s; fine'; SELECT 2",
			want:   []string{"SELECT 'it''s; fine'", "SELECT 2"},
		},
		{
			name:   "dollar quoted body",
			script: "CREATE FUNCTION f() RETURNS void AS $$ BEGIN PERFORM 1; END; $$ LANGUAGE plpgsql;",
			want:   []string{"CREATE FUNCTION f() RETURNS void AS $$ BEGIN PERFORM 1; END; $$ LANGUAGE plpgsql"},
		},
		{
			name:   "tagged dollar body",
			script: "DO $body$ BEGIN RAISE NOTICE 'x;y'; END $body$;",
			want:   []string{"DO $body$ BEGIN RAISE NOTICE 'x;y'; END $body$"},
		},
		{
			name:   "positional parameter",
			script: "DELETE FROM resumes WHERE id = $1; SELECT 1",
			want:   []string{"DELETE FROM resumes WHERE id = $1", "SELECT 1"},
		},
		{
			name:   "comments",
			script: "-- header; ignored\nSELECT 1; /* block; */ SELECT 2;\n-- trailing",
			want:   []string{"SELECT 1", "SELECT 2"},
		},
		{
			name:   "comment only",
			script: "-- Migration: x\n\n-- Write your UP migration here\n",
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitSQL(tt.script)
			if strings.Join(got, "|") != strings.Join(tt.want, "|") || len(got) != len(tt.want) {
				t.Errorf("splitSQL() = %q, want %q", got, tt.want)
			}
		})
	}
}
