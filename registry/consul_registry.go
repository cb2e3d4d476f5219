package registry

import (
	"fmt"
	"net/http"

	consulapi "github.com/hashicorp/consul/api"
	"go.uber.org/zap"
)

// Instances critical for this long are removed by the agent.
const deregisterAfter = "1m"

type consulRegistry struct {
	client *consulapi.Client
	logger *zap.SugaredLogger
}

// Ensure consulRegistry implements ServiceRegistry
var _ ServiceRegistry = (*consulRegistry)(nil)

// NewConsulRegistry creates a registry backed by the Consul agent at address.
func NewConsulRegistry(address string, logger *zap.SugaredLogger) (ServiceRegistry, error) {
	consulConfig := consulapi.DefaultConfig()
	consulConfig.Address = address

	client, err := consulapi.NewClient(consulConfig)
	if err != nil {
		logger.Errorw("Failed to create Consul client", "address", consulConfig.Address, "error", err)
		return nil, fmt.Errorf("failed to create consul client: %w", err)
	}

	// NodeName round-trips to the agent, so a wrong address fails here
	_, err = client.Agent().NodeName()
	if err != nil {
		logger.Errorw("Failed to connect to Consul agent", "address", consulConfig.Address, "error", err)
		return nil, fmt.Errorf("cannot connect to consul agent at %s: %w", consulConfig.Address, err)
	}
	logger.Infow("Successfully connected to Consul agent", "address", consulConfig.Address)

	return &consulRegistry{
		client: client,
		logger: logger.Named("ConsulRegistry"),
	}, nil
}

// Register registers a service instance with Consul, including a health check.
func (r *consulRegistry) Register(id, name, address string, port int, tags []string, check *consulapi.AgentServiceCheck) error {
	reg := &consulapi.AgentServiceRegistration{
		ID:      id,
		Name:    name, // e.g. "webguard-http"
		Tags:    tags,
		Port:    port,
		Address: address,
		Check:   check,
	}
	if check != nil {
		reg.Meta = map[string]string{"protocol": checkProtocol(check)}
	}

	err := r.client.Agent().ServiceRegister(reg)
	if err != nil {
		r.logger.Errorw("Failed to register service with Consul", "service_id", id, "service_name", name, "address", address, "port", port, "error", err)
		return fmt.Errorf("failed to register service '%s': %w", name, err)
	}
	r.logger.Infow("Successfully registered service with Consul", "service_id", id, "service_name", name, "address", address, "port", port)
	return nil
}

// Deregister removes a service instance from Consul.
func (r *consulRegistry) Deregister(id string) error {
	err := r.client.Agent().ServiceDeregister(id)
	if err != nil {
		r.logger.Errorw("Failed to deregister service from Consul", "service_id", id, "error", err)
		return fmt.Errorf("failed to deregister service '%s': %w", id, err)
	}
	r.logger.Infow("Successfully deregistered service from Consul", "service_id", id)
	return nil
}

func checkProtocol(check *consulapi.AgentServiceCheck) string {
	if check.GRPC != "" {
		return "grpc"
	}
	return "http"
}

// --- Helper functions to define specific Health Checks ---

// CreateHTTPCheck has Consul GET http://host:port/checkPath every interval.
func CreateHTTPCheck(serviceID, serviceHost string, servicePort int, checkPath string, interval, timeout string) *consulapi.AgentServiceCheck {
	return &consulapi.AgentServiceCheck{
		CheckID:                        "check_" + serviceID + "_http",
		Name:                           "HTTP check for " + serviceID,
		HTTP:                           fmt.Sprintf("http://%s:%d%s", serviceHost, servicePort, checkPath),
		Method:                         http.MethodGet,
		Interval:                       interval,
		Timeout:                        timeout,
		DeregisterCriticalServiceAfter: deregisterAfter,
	}
}

// CreateGRPCCheck has Consul call grpc.health.v1.Health/Check on target.
func CreateGRPCCheck(serviceID, target string, interval, timeout string, useTLS bool) *consulapi.AgentServiceCheck {
	return &consulapi.AgentServiceCheck{
		CheckID:                        "check_" + serviceID + "_grpc",
		Name:                           "gRPC check for " + serviceID,
		GRPC:                           target,
		GRPCUseTLS:                     useTLS,
		Interval:                       interval,
		Timeout:                        timeout,
		DeregisterCriticalServiceAfter: deregisterAfter,
	}
}
