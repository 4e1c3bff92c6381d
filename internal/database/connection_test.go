package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPoolerSafeURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "direct connection untouched",
			in:   "postgres://app:pw@db.internal:5432/tours?sslmode=require",
			want: "postgres://app:pw@db.internal:5432/tours?sslmode=require",
		},
		{
			name: "pooler url with query",
			in:   "postgres://app:pw@aws-0-eu-west-3.pooler.supabase.com:6543/postgres?sslmode=require",
			want: "postgres://app:pw@aws-0-eu-west-3.pooler.supabase.com:6543/postgres?sslmode=require&binary_parameters=yes",
		},
		{
			name: "pooler url without query",
			in:   "postgres://app:pw@pooler.internal:6432/tours",
			want: "postgres://app:pw@pooler.internal:6432/tours?binary_parameters=yes",
		},
		{
			name: "pooler key-value dsn",
			in:   "host=pooler.internal dbname=tours",
			want: "host=pooler.internal dbname=tours binary_parameters=yes",
		},
		{
			name: "already set",
			in:   "postgres://pooler.internal/tours?binary_parameters=no",
			want: "postgres://pooler.internal/tours?binary_parameters=no",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := poolerSafeURL(tt.in)
			assert.Equal(t, tt.want, got)
			assert.NotContains(t, got, "prefer_simple_protocol")
		})
	}
}
