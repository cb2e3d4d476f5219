package registry

import (
	consulapi "github.com/hashicorp/consul/api"
)

// ServiceRegistry announces this process to a service catalog.
type ServiceRegistry interface {
	// Register registers a service instance.
	// id: Unique identifier for this instance (e.g., serviceName-http-hostname-port).
	// check: Health check the catalog runs against the instance.
	Register(id, name, address string, port int, tags []string, check *consulapi.AgentServiceCheck) error

	// Deregister removes a service instance using its unique ID.
	Deregister(id string) error
}
