package engine

import (
	"fmt"
	"time"

	"github.com/xenonforlife/Sample-Server-node-opcua/pkg/addrspace"
)

// ServerState is the standard server state enumeration exposed in ServerStatus.
type ServerState int32

const (
	StateRunning            ServerState = 0
	StateFailed             ServerState = 1
	StateNoConfiguration    ServerState = 2
	StateSuspended          ServerState = 3
	StateShutdown           ServerState = 4
	StateTest               ServerState = 5
	StateCommunicationFault ServerState = 6
	StateUnknown            ServerState = 7
)

var stateNames = map[ServerState]string{
	StateRunning:            "Running",
	StateFailed:             "Failed",
	StateNoConfiguration:    "NoConfiguration",
	StateSuspended:          "Suspended",
	StateShutdown:           "Shutdown",
	StateTest:               "Test",
	StateCommunicationFault: "CommunicationFault",
	StateUnknown:            "Unknown",
}

func (s ServerState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("ServerState(%d)", int32(s))
}

// MarshalText renders the state by name in JSON status documents.
func (s ServerState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// BuildInfo describes the server build.
type BuildInfo struct {
	ProductURI       string    `mapstructure:"product_uri" json:"product_uri"`
	ManufacturerName string    `mapstructure:"manufacturer_name" json:"manufacturer_name"`
	ProductName      string    `mapstructure:"product_name" json:"product_name"`
	SoftwareVersion  string    `mapstructure:"software_version" json:"software_version"`
	BuildNumber      string    `mapstructure:"build_number" json:"build_number"`
	BuildDate        time.Time `mapstructure:"-" json:"build_date"`
}

// ServerStatus is a snapshot of the server's status variables.
type ServerStatus struct {
	StartTime           time.Time               `json:"start_time"`
	CurrentTime         time.Time               `json:"current_time"`
	State               ServerState             `json:"state"`
	BuildInfo           BuildInfo               `json:"build_info"`
	SecondsTillShutdown uint32                  `json:"seconds_till_shutdown"`
	ShutdownReason      addrspace.LocalizedText `json:"shutdown_reason"`
}
