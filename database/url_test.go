package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstructDatabaseURL(t *testing.T) {
	tests := []struct {
		name     string
		baseURL  string
		dbName   string
		expected string
	}{
		{
			name:     "empty name keeps base url",
			baseURL:  "postgres://u:p@localhost:5432/quizstake",
			dbName:   "",
			expected: "postgres://u:p@localhost:5432/quizstake",
		},
		{
			name:     "appends name and sslmode",
			baseURL:  "postgres://u:p@localhost:5432",
			dbName:   "quizstake",
			expected: "postgres://u:p@localhost:5432/quizstake?sslmode=disable",
		},
		{
			name:     "trailing slash trimmed",
			baseURL:  "postgres://u:p@localhost:5432/",
			dbName:   "quizstake",
			expected: "postgres://u:p@localhost:5432/quizstake?sslmode=disable",
		},
		{
			name:     "existing query kept after name",
			baseURL:  "postgres://u:p@localhost:5432?connect_timeout=5",
			dbName:   "quizstake",
			expected: "postgres://u:p@localhost:5432/quizstake?connect_timeout=5&sslmode=disable",
		},
		{
			name:     "explicit sslmode untouched",
			baseURL:  "postgres://u:p@db:5432?sslmode=require",
			dbName:   "quizstake",
			expected: "postgres://u:p@db:5432/quizstake?sslmode=require",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ConstructDatabaseURL(tt.baseURL, tt.dbName))
		})
	}
}
