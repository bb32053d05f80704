package main

import (
	"net/http"
	"testing"
)

func TestHealthStatus(t *testing.T) {
	tests := []struct {
		name    string
		dbOK    bool
		redisOK bool
		backend string
		want    int
	}{
		{"all healthy memory", true, true, "memory", http.StatusOK},
		{"all healthy redis", true, true, "redis", http.StatusOK},
		{"db down", false, true, "memory", http.StatusServiceUnavailable},
		{"redis down with memory backend", true, false, "memory", http.StatusOK},
		{"redis down with redis backend", true, false, "redis", http.StatusServiceUnavailable},
		{"both down", false, false, "redis", http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := healthStatus(tt.dbOK, tt.redisOK, tt.backend); got != tt.want {
				t.Errorf("healthStatus(%v, %v, %q) = %d, want %d", tt.dbOK, tt.redisOK, tt.backend, got, tt.want)
			}
		})
	}
}
