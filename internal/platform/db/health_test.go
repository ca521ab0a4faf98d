package db

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestHealthResponse_JSON(t *testing.T) {
	resp := healthResponse{
		Status: "healthy",
		Pool: PoolStats{
			TotalConns:      4,
			IdleConns:       3,
			AcquiredConns:   1,
			MaxConns:        10,
			AcquireCount:    250,
			AcquireDuration: "1.5s",
			Healthy:         true,
		},
	}

	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	body := string(data)

	for _, want := range []string{`"status":"healthy"`, `"total_conns":4`, `"acquire_duration":"1.5s"`, `"healthy":true`} {
		if !strings.Contains(body, want) {
			t.Errorf("expected body to contain %s, got %s", want, body)
		}
	}
	if strings.Contains(body, `"error"`) {
		t.Errorf("empty error should be omitted, got %s", body)
	}
}

func TestHealthResponse_JSON_Unhealthy(t *testing.T) {
	resp := healthResponse{
		Status: "unhealthy",
		Error:  "connection refused",
		Pool:   PoolStats{MaxConns: 10},
	}

	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	body := string(data)

	if !strings.Contains(body, `"error":"connection refused"`) {
		t.Errorf("expected error in body, got %s", body)
	}
	if !strings.Contains(body, `"healthy":false`) {
		t.Errorf("expected healthy false, got %s", body)
	}
}
