// Package bootstrap provides application implementation
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/relaymesh/actorcore/actor"
	"github.com/relaymesh/actorcore/config"
	"github.com/relaymesh/actorcore/network"
)

// DefaultApplication implements the Application interface
type DefaultApplication struct {
	// config holds the application configuration
	config *config.Config

	// container provides dependency injection
	container Container

	// lifecycleManager manages service lifecycles
	lifecycleManager LifecycleManager

	// configLoader manages configuration loading
	configLoader *config.Loader

	// actor system for message passing
	actorSystem *actor.System

	// network server for TCP connections, built from cfg.Network.TCP when
	// a port is configured; it is not connected to any actor
	networkServer network.Server

	// configFile is the path Configure/WithConfigFile loaded cfg from,
	// or "" if the config was supplied in-memory. Only a non-empty path
	// can be hot-reload watched.
	configFile string

	// configWatcher hands reloaded config.Config snapshots to
	// onConfigReloaded while running; nil until Configure sees a
	// configFile.
	configWatcher *config.Watcher

	// mutex protects concurrent access
	mutex sync.RWMutex

	// running indicates if the application is running
	running bool

	// shutdownChan for graceful shutdown
	shutdownChan chan os.Signal
}

// NewApplication creates a new actorcore application
func NewApplication() Application {
	container := NewContainer()
	lifecycleManager := NewLifecycleManager(container)

	app := &DefaultApplication{
		container:        container,
		lifecycleManager: lifecycleManager,
		shutdownChan:     make(chan os.Signal, 1),
		configLoader:     config.NewLoader(),
	}

	// Register core services
	app.registerCoreServices()

	return app
}

// Configure configures the application with the provided configuration
func (app *DefaultApplication) Configure(cfg interface{}) error {
	app.mutex.Lock()
	defer app.mutex.Unlock()

	if app.running {
		return fmt.Errorf("cannot configure application while running")
	}

	c, ok := cfg.(*config.Config)
	if !ok {
		return fmt.Errorf("bootstrap: Configure expects *config.Config, got %T", cfg)
	}
	app.config = c
	return app.configureCoreServices(c)
}

// watchConfigFile records the file Configure should build a
// config.Watcher against; ConfigWatcherService starts/stops the
// resulting watcher alongside the application's other managed services.
func (app *DefaultApplication) watchConfigFile(filename string) {
	app.configFile = filename
}

// Run runs the application until shutdown
func (app *DefaultApplication) Run(ctx context.Context) error {
	app.mutex.Lock()
	if app.running {
		app.mutex.Unlock()
		return fmt.Errorf("application is already running")
	}
	app.running = true
	app.mutex.Unlock()

	// Setup signal handling for graceful shutdown
	signal.Notify(app.shutdownChan, os.Interrupt, syscall.SIGTERM)

	// Start all services
	if err := app.lifecycleManager.Start(ctx); err != nil {
		app.mutex.Lock()
		app.running = false
		app.mutex.Unlock()
		return fmt.Errorf("failed to start services: %w", err)
	}

	// Wait for shutdown signal or context cancellation
	select {
	case <-app.shutdownChan:
		fmt.Println("received shutdown signal, starting graceful shutdown")
	case <-ctx.Done():
		fmt.Println("context cancelled, starting graceful shutdown")
	}

	// Shutdown gracefully
	return app.Shutdown(context.Background())
}

// Shutdown shuts down the application gracefully
func (app *DefaultApplication) Shutdown(ctx context.Context) error {
	app.mutex.Lock()
	if !app.running {
		app.mutex.Unlock()
		return nil // Already shut down
	}
	app.running = false
	app.mutex.Unlock()

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	// Stop all services
	if err := app.lifecycleManager.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop services: %w", err)
	}

	return nil
}

// Container returns the dependency injection container
func (app *DefaultApplication) Container() Container {
	return app.container
}

// LifecycleManager returns the lifecycle manager
func (app *DefaultApplication) LifecycleManager() LifecycleManager {
	return app.lifecycleManager
}

// registerCoreServices registers core actorcore services
func (app *DefaultApplication) registerCoreServices() {
	// Register actor system service
	app.lifecycleManager.Register("actor-system", &ActorSystemService{app: app})

	// Register network server service
	app.lifecycleManager.Register("network-server", &NetworkServerService{app: app}, "actor-system")

	// Register config watcher service; it is a no-op unless Configure
	// was given a configFile to hot-reload from.
	app.lifecycleManager.Register("config-watcher", &ConfigWatcherService{app: app}, "network-server")
}

// configureCoreServices configures core services with the provided configuration
func (app *DefaultApplication) configureCoreServices(cfg *config.Config) error {
	opts := actor.DefaultOptions()
	if cfg.Actor.WorkerCount > 0 {
		opts.WorkerCount = cfg.Actor.WorkerCount
	}
	if cfg.Actor.ExecutionQuantum > 0 {
		opts.ExecutionQuantum = cfg.Actor.ExecutionQuantum
	}
	if cfg.Actor.UnhandledPolicy == "exit_unhandled" {
		opts.UnhandledPolicy = actor.UnhandledPolicyExitUnhandled
	}
	opts.MaxMailboxSize = cfg.Actor.DefaultMailboxSize

	actorSystem := actor.NewSystem(opts)
	app.actorSystem = actorSystem
	app.container.RegisterInstance("actor-system", actorSystem)

	if cfg.Network.TCP.Port != 0 {
		netCfg := &network.NetworkConfig{
			Protocol: network.ProtocolTCP,
			Address:  cfg.Network.TCP.Address,
			Port:     cfg.Network.TCP.Port,
		}

		server, err := network.NewTCPServer(netCfg)
		if err != nil {
			return fmt.Errorf("failed to create network server: %w", err)
		}

		app.networkServer = server
		app.container.RegisterInstance("network-server", server)
	}

	if app.configFile != "" {
		watcher, err := config.NewWatcher(app.configFile, app.configLoader)
		if err != nil {
			return fmt.Errorf("failed to create config watcher: %w", err)
		}
		watcher.OnConfigChange(app.onConfigReloaded)
		app.configWatcher = watcher
		app.container.RegisterInstance("config-watcher", watcher)
	}

	return nil
}

// onConfigReloaded applies the parts of a reloaded config that a
// running application can react to without a restart: the System's own
// scheduler parameters are out of scope for hot-swap (§4.I), but the log
// level is an observability concern collaborators can pick up live.
func (app *DefaultApplication) onConfigReloaded(oldConfig, newConfig *config.Config) {
	app.mutex.Lock()
	app.config = newConfig
	app.mutex.Unlock()

	if oldConfig == nil || newConfig.Log.Level != oldConfig.Log.Level {
		if level, err := logrus.ParseLevel(newConfig.Log.Level.String()); err == nil {
			logrus.SetLevel(level)
		}
	}

	logrus.WithField("file", app.configFile).Info("application config reloaded")
}

// ActorSystemService wraps the actor system as a managed service
type ActorSystemService struct {
	app *DefaultApplication
}

func (s *ActorSystemService) Name() string {
	return "actor-system"
}

func (s *ActorSystemService) Start(ctx context.Context) error {
	if s.app.actorSystem == nil {
		s.app.actorSystem = actor.NewSystem(actor.DefaultOptions())
		s.app.container.RegisterInstance("actor-system", s.app.actorSystem)
	}
	return nil
}

func (s *ActorSystemService) Stop(ctx context.Context) error {
	if s.app.actorSystem != nil {
		return s.app.actorSystem.Shutdown(ctx)
	}
	return nil
}

func (s *ActorSystemService) Health(ctx context.Context) (HealthStatus, error) {
	if s.app.actorSystem == nil {
		return HealthStatus{
			State:   HealthUnhealthy,
			Message: "actor system not initialized",
		}, nil
	}

	return HealthStatus{
		State:   HealthHealthy,
		Message: "actor system running",
		Data: map[string]interface{}{
			"running_actors": s.app.actorSystem.Registry().RunningCount(),
		},
	}, nil
}

// NetworkServerService wraps the network server as a managed service
type NetworkServerService struct {
	app *DefaultApplication
}

func (s *NetworkServerService) Name() string {
	return "network-server"
}

func (s *NetworkServerService) Start(ctx context.Context) error {
	if s.app.networkServer == nil {
		return nil // No network server configured
	}

	return s.app.networkServer.Start()
}

func (s *NetworkServerService) Stop(ctx context.Context) error {
	if s.app.networkServer == nil {
		return nil
	}

	return s.app.networkServer.Stop()
}

func (s *NetworkServerService) Health(ctx context.Context) (HealthStatus, error) {
	if s.app.networkServer == nil {
		return HealthStatus{
			State:   HealthUnknown,
			Message: "network server not configured",
		}, nil
	}

	// Check if server has active connections to determine if it's running
	connectionCount := s.app.networkServer.GetConnectionCount()

	return HealthStatus{
		State:   HealthHealthy,
		Message: "network server running",
		Data: map[string]interface{}{
			"connections": connectionCount,
		},
	}, nil
}

// ConfigWatcherService starts/stops the application's fsnotify-backed
// config.Watcher alongside the other managed services. It is a no-op
// when Configure was never given a config file to watch.
type ConfigWatcherService struct {
	app *DefaultApplication
}

func (s *ConfigWatcherService) Name() string {
	return "config-watcher"
}

func (s *ConfigWatcherService) Start(ctx context.Context) error {
	if s.app.configWatcher == nil {
		return nil
	}
	return s.app.configWatcher.Start()
}

func (s *ConfigWatcherService) Stop(ctx context.Context) error {
	if s.app.configWatcher == nil {
		return nil
	}
	return s.app.configWatcher.Stop()
}

func (s *ConfigWatcherService) Health(ctx context.Context) (HealthStatus, error) {
	if s.app.configWatcher == nil {
		return HealthStatus{
			State:   HealthUnknown,
			Message: "config watcher not configured",
		}, nil
	}

	return HealthStatus{
		State:   HealthHealthy,
		Message: "config watcher running",
	}, nil
}

// ApplicationBuilder helps build and configure applications
type ApplicationBuilder struct {
	app *DefaultApplication
	cfg *config.Config
}

// NewApplicationBuilder creates a new application builder
func NewApplicationBuilder() *ApplicationBuilder {
	return &ApplicationBuilder{
		app: NewApplication().(*DefaultApplication),
		cfg: config.DefaultConfig(),
	}
}

// WithConfig sets the configuration
func (b *ApplicationBuilder) WithConfig(cfg *config.Config) *ApplicationBuilder {
	b.cfg = cfg
	return b
}

// WithConfigFile loads configuration from a file
func (b *ApplicationBuilder) WithConfigFile(filename string) *ApplicationBuilder {
	loaded, err := b.app.configLoader.LoadFromFile(filename)
	if err == nil {
		b.cfg = loaded
		b.app.watchConfigFile(filename)
	}
	return b
}

// WithService registers a service
func (b *ApplicationBuilder) WithService(name string, service Service, deps ...string) *ApplicationBuilder {
	b.app.lifecycleManager.Register(name, service, deps...)
	return b
}

// WithServiceFactory registers a service factory
func (b *ApplicationBuilder) WithServiceFactory(name string, factory ServiceFactory) *ApplicationBuilder {
	b.app.container.Register(name, factory)
	return b
}

// WithNetworkConfig configures the network server's listening address.
func (b *ApplicationBuilder) WithNetworkConfig(address string, port int) *ApplicationBuilder {
	b.cfg.Network.TCP.Address = address
	b.cfg.Network.TCP.Port = port
	return b
}

// Build builds the configured application
func (b *ApplicationBuilder) Build() (Application, error) {
	if err := b.app.Configure(b.cfg); err != nil {
		return nil, fmt.Errorf("failed to configure application: %w", err)
	}
	return b.app, nil
}
