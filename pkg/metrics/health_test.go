package metrics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func resetHealthChecker() {
	healthChecker = &HealthChecker{
		components: make(map[string]ComponentHealth),
		startTime:  time.Now(),
	}
}

func TestRegisterComponent(t *testing.T) {
	resetHealthChecker()

	RegisterComponent("registry", true, "bootstrapped")

	if len(healthChecker.components) != 1 {
		t.Errorf("expected 1 component, got %d", len(healthChecker.components))
	}

	comp := healthChecker.components["registry"]
	if !comp.Healthy {
		t.Error("registry should be healthy")
	}
	if comp.Message != "bootstrapped" {
		t.Errorf("expected message 'bootstrapped', got '%s'", comp.Message)
	}
}

func TestGetHealth_AllHealthy(t *testing.T) {
	resetHealthChecker()
	healthChecker.version = "1.0.0"

	RegisterComponent("dispatch", true, "")
	RegisterComponent("registry", true, "")

	health := GetHealth()

	if health.Status != "healthy" {
		t.Errorf("expected status 'healthy', got '%s'", health.Status)
	}
	if len(health.Components) != 2 {
		t.Errorf("expected 2 components, got %d", len(health.Components))
	}
	if health.Version != "1.0.0" {
		t.Errorf("expected version '1.0.0', got '%s'", health.Version)
	}
}

func TestGetHealth_OneUnhealthy(t *testing.T) {
	resetHealthChecker()

	RegisterComponent("dispatch", true, "")
	RegisterComponent("registry", false, "local descriptor not yet set")

	health := GetHealth()

	if health.Status != "unhealthy" {
		t.Errorf("expected status 'unhealthy', got '%s'", health.Status)
	}
	if health.Components["registry"] != "unhealthy: local descriptor not yet set" {
		t.Errorf("unexpected registry status: %s", health.Components["registry"])
	}
}

func TestGetReadiness_AllReady(t *testing.T) {
	resetHealthChecker()

	RegisterComponent("registry", true, "")
	RegisterComponent("transport", true, "")
	RegisterComponent("dispatch", true, "")

	readiness := GetReadiness()

	if readiness.Status != "ready" {
		t.Errorf("expected status 'ready', got '%s'", readiness.Status)
	}
}

func TestGetReadiness_MissingCriticalComponent(t *testing.T) {
	resetHealthChecker()

	RegisterComponent("dispatch", true, "")
	// registry and transport not registered yet, e.g. before serve's
	// startup sequence reaches RegisterComponent for them.

	readiness := GetReadiness()

	if readiness.Status != "not_ready" {
		t.Errorf("expected status 'not_ready', got '%s'", readiness.Status)
	}
	if readiness.Message == "" {
		t.Error("expected message explaining why not ready")
	}
}

func TestGetReadiness_CriticalComponentUnhealthy(t *testing.T) {
	resetHealthChecker()

	RegisterComponent("registry", false, "local descriptor not yet set")
	RegisterComponent("transport", true, "")
	RegisterComponent("dispatch", true, "")

	readiness := GetReadiness()

	if readiness.Status != "not_ready" {
		t.Errorf("expected status 'not_ready', got '%s'", readiness.Status)
	}
}

// TestGetReadiness_TransportHeartbeatStale covers the staleness branch
// that distinguishes transport from registry/dispatch: transport reports
// Healthy=true but its last Heartbeat is older than its max age, modeling
// a coalesced-emitter goroutine that registered fine at startup but has
// since stopped ticking (deadlock, panic recovery loop, etc).
func TestGetReadiness_TransportHeartbeatStale(t *testing.T) {
	resetHealthChecker()

	RegisterComponent("registry", true, "")
	RegisterComponent("transport", true, "")
	RegisterComponent("dispatch", true, "")

	// Simulate a heartbeat that happened long before the staleness window.
	healthChecker.mu.Lock()
	comp := healthChecker.components["transport"]
	comp.Updated = time.Now().Add(-3 * time.Minute)
	healthChecker.components["transport"] = comp
	healthChecker.mu.Unlock()

	readiness := GetReadiness()

	if readiness.Status != "not_ready" {
		t.Errorf("expected status 'not_ready' for stale transport heartbeat, got '%s'", readiness.Status)
	}
	if readiness.Components["transport"] == "ready" {
		t.Error("stale transport component should not report ready")
	}
}

// TestHeartbeat_RefreshesTransportWithinWindow shows a recent Heartbeat
// call keeps transport ready, confirming RunCoalescedEmitter's per-tick
// call is what prevents the stale case above under normal operation.
func TestHeartbeat_RefreshesTransportWithinWindow(t *testing.T) {
	resetHealthChecker()

	RegisterComponent("registry", true, "")
	RegisterComponent("transport", true, "")
	RegisterComponent("dispatch", true, "")

	healthChecker.mu.Lock()
	comp := healthChecker.components["transport"]
	comp.Updated = time.Now().Add(-3 * time.Minute)
	healthChecker.components["transport"] = comp
	healthChecker.mu.Unlock()

	Heartbeat("transport")

	readiness := GetReadiness()
	if readiness.Status != "ready" {
		t.Errorf("expected status 'ready' after fresh heartbeat, got '%s'", readiness.Status)
	}
}

// TestHeartbeat_UnregisteredComponentIsNoop guards against Heartbeat
// creating a phantom component entry for a name that was never
// registered.
func TestHeartbeat_UnregisteredComponentIsNoop(t *testing.T) {
	resetHealthChecker()

	Heartbeat("transport")

	if _, exists := healthChecker.components["transport"]; exists {
		t.Error("Heartbeat should not register a component that was never RegisterComponent'd")
	}
}

func TestHealthHandler(t *testing.T) {
	resetHealthChecker()
	healthChecker.version = "test"

	RegisterComponent("registry", true, "")

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	HealthHandler()(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	var health HealthStatus
	if err := json.NewDecoder(w.Body).Decode(&health); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if health.Status != "healthy" {
		t.Errorf("expected healthy status, got %s", health.Status)
	}
	if health.Version != "test" {
		t.Errorf("expected version 'test', got %s", health.Version)
	}
}

func TestHealthHandler_Unhealthy(t *testing.T) {
	resetHealthChecker()

	RegisterComponent("registry", false, "broken")

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	HealthHandler()(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", w.Code)
	}

	var health HealthStatus
	if err := json.NewDecoder(w.Body).Decode(&health); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if health.Status != "unhealthy" {
		t.Errorf("expected unhealthy status, got %s", health.Status)
	}
}

func TestReadyHandler(t *testing.T) {
	resetHealthChecker()

	RegisterComponent("registry", true, "")
	RegisterComponent("transport", true, "")
	RegisterComponent("dispatch", true, "")

	req := httptest.NewRequest("GET", "/ready", nil)
	w := httptest.NewRecorder()

	ReadyHandler()(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	var readiness HealthStatus
	if err := json.NewDecoder(w.Body).Decode(&readiness); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if readiness.Status != "ready" {
		t.Errorf("expected ready status, got %s", readiness.Status)
	}
}

func TestReadyHandler_NotReady(t *testing.T) {
	resetHealthChecker()

	RegisterComponent("dispatch", true, "")
	// registry not registered yet

	req := httptest.NewRequest("GET", "/ready", nil)
	w := httptest.NewRecorder()

	ReadyHandler()(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", w.Code)
	}

	var readiness HealthStatus
	if err := json.NewDecoder(w.Body).Decode(&readiness); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if readiness.Status != "not_ready" {
		t.Errorf("expected not_ready status, got %s", readiness.Status)
	}
}

func TestLivenessHandler(t *testing.T) {
	resetHealthChecker()

	req := httptest.NewRequest("GET", "/live", nil)
	w := httptest.NewRecorder()

	LivenessHandler()(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	var response map[string]string
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response["status"] != "alive" {
		t.Errorf("expected status 'alive', got '%s'", response["status"])
	}
	if response["uptime"] == "" {
		t.Error("uptime should not be empty")
	}
}

func TestUpdateComponent(t *testing.T) {
	resetHealthChecker()

	RegisterComponent("dispatch", true, "ok")
	UpdateComponent("dispatch", false, "publish backlog growing")

	comp := healthChecker.components["dispatch"]
	if comp.Healthy {
		t.Error("component should be unhealthy after update")
	}
	if comp.Message != "publish backlog growing" {
		t.Errorf("expected message 'publish backlog growing', got '%s'", comp.Message)
	}
}
