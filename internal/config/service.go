package config

import (
	"fmt"
)

type ServiceType int

const (
	// ServiceTypeSingular runs every service in one process.
	ServiceTypeSingular ServiceType = iota
	ServiceTypeAPI
	ServiceTypeDelivery
)

func (s ServiceType) String() string {
	switch s {
	case ServiceTypeSingular:
		return ""
	case ServiceTypeAPI:
		return "api"
	case ServiceTypeDelivery:
		return "delivery"
	}
	return "unknown"
}

func ServiceTypeFromString(s string) (ServiceType, error) {
	switch s {
	case "", "all":
		return ServiceTypeSingular, nil
	case "api":
		return ServiceTypeAPI, nil
	case "delivery":
		return ServiceTypeDelivery, nil
	}
	return ServiceType(-1), fmt.Errorf("unknown service: %s", s)
}

// GetService parses the configured service role.
func (c *Config) GetService() (ServiceType, error) {
	return ServiceTypeFromString(c.Service)
}

// MustGetService panics on an invalid role. Only call after Validate.
func (c *Config) MustGetService() ServiceType {
	service, err := c.GetService()
	if err != nil {
		panic(err)
	}
	return service
}
