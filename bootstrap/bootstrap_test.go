// Package bootstrap provides tests for the bootstrap module
package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/relaymesh/actorcore/config"
)

func TestContainer(t *testing.T) {
	container := NewContainer()

	// Test service registration
	err := container.Register("test-service", func(c Container) (interface{}, error) {
		return "test-instance", nil
	})
	if err != nil {
		t.Fatalf("Failed to register service: %v", err)
	}

	// Test service resolution
	instance, err := container.Resolve("test-service")
	if err != nil {
		t.Fatalf("Failed to resolve service: %v", err)
	}

	if instance != "test-instance" {
		t.Errorf("Expected 'test-instance', got %v", instance)
	}

	// Test service exists
	if !container.Has("test-service") {
		t.Error("Container should have test-service")
	}

	// Test service names
	names := container.Names()
	if len(names) != 1 || names[0] != "test-service" {
		t.Errorf("Expected ['test-service'], got %v", names)
	}
}

func TestLifecycleManager(t *testing.T) {
	container := NewContainer()
	lm := NewLifecycleManager(container)

	// Create a test service
	testService := &TestService{name: "test"}

	// Register service
	err := lm.Register("test", testService)
	if err != nil {
		t.Fatalf("Failed to register service: %v", err)
	}

	// Test start
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = lm.Start(ctx)
	if err != nil {
		t.Fatalf("Failed to start services: %v", err)
	}

	if !testService.started {
		t.Error("Test service should be started")
	}

	// Test health check
	health, err := lm.Health(ctx)
	if err != nil {
		t.Fatalf("Failed to get health status: %v", err)
	}

	if health["test"].State != HealthHealthy {
		t.Errorf("Expected healthy state, got %v", health["test"].State)
	}

	// Test stop
	err = lm.Stop(ctx)
	if err != nil {
		t.Fatalf("Failed to stop services: %v", err)
	}

	if !testService.stopped {
		t.Error("Test service should be stopped")
	}
}

func TestApplication(t *testing.T) {
	app := NewApplication()

	// Test configuration
	cfg := config.DefaultConfig()
	cfg.Network.TCP.Address = "localhost"
	cfg.Network.TCP.Port = 9999

	err := app.Configure(cfg)
	if err != nil {
		t.Fatalf("Failed to configure application: %v", err)
	}

	// Test container access
	container := app.Container()
	if container == nil {
		t.Error("Application should have a container")
	}

	// Test lifecycle manager access
	lm := app.LifecycleManager()
	if lm == nil {
		t.Error("Application should have a lifecycle manager")
	}

	// Test services are registered
	services := lm.Services()
	if len(services) == 0 {
		t.Error("Application should have core services registered")
	}
}

func TestApplicationBuilder(t *testing.T) {
	builder := NewApplicationBuilder()

	app, err := builder.
		WithNetworkConfig("localhost", 8888).
		WithServiceFactory("test-factory", func(c Container) (interface{}, error) {
			return "factory-instance", nil
		}).
		Build()

	if err != nil {
		t.Fatalf("Failed to build application: %v", err)
	}

	// Test that the application was configured
	container := app.Container()
	if !container.Has("test-factory") {
		t.Error("Application should have test-factory service")
	}
}

func TestApplicationConfigHotReload(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "app-config.yaml")

	initial := `
app:
  name: hot-reload-app
  version: "1.0.0"
  environment: development

network:
  tcp:
    address: "127.0.0.1"
    port: 0

log:
  level: info
  format: text
`
	if err := os.WriteFile(configFile, []byte(initial), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	builder := NewApplicationBuilder().WithConfigFile(configFile)
	app, err := builder.Build()
	if err != nil {
		t.Fatalf("failed to build application: %v", err)
	}

	watcherInstance, err := app.Container().Resolve("config-watcher")
	if err != nil {
		t.Fatalf("expected config-watcher to be registered: %v", err)
	}
	watcher, ok := watcherInstance.(*config.Watcher)
	if !ok {
		t.Fatalf("expected *config.Watcher, got %T", watcherInstance)
	}

	changed := make(chan *config.Config, 1)
	watcher.OnConfigChange(func(oldConfig, newConfig *config.Config) {
		changed <- newConfig
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.LifecycleManager().Start(ctx); err != nil {
		t.Fatalf("failed to start application services: %v", err)
	}
	defer app.LifecycleManager().Stop(ctx)

	updated := `
app:
  name: hot-reload-app
  version: "1.0.0"
  environment: development

network:
  tcp:
    address: "127.0.0.1"
    port: 0

log:
  level: debug
  format: text
`
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(configFile, []byte(updated), 0644); err != nil {
		t.Fatalf("failed to rewrite test config: %v", err)
	}

	select {
	case newConfig := <-changed:
		if newConfig.Log.Level != config.LogLevelDebug {
			t.Errorf("expected reloaded log level 'debug', got '%s'", newConfig.Log.Level)
		}
	case <-time.After(3 * time.Second):
		t.Error("config change was not observed within timeout")
	}
}

// TestService is a simple service implementation for testing
type TestService struct {
	name    string
	started bool
	stopped bool
}

func (s *TestService) Name() string {
	return s.name
}

func (s *TestService) Start(ctx context.Context) error {
	s.started = true
	return nil
}

func (s *TestService) Stop(ctx context.Context) error {
	s.stopped = true
	return nil
}

func (s *TestService) Health(ctx context.Context) (HealthStatus, error) {
	if s.started && !s.stopped {
		return HealthStatus{
			State:   HealthHealthy,
			Message: "Service is running",
		}, nil
	}
	return HealthStatus{
		State:   HealthUnhealthy,
		Message: "Service is not running",
	}, nil
}
