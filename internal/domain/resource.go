package domain

import (
	"strings"
	"time"
)

// Database is a database resource as returned by the resource API.
type Database struct {
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	Region          string    `json:"region"`
	DataSizeFull    *float64  `json:"data_size_full,omitempty"`
	CreateTime      time.Time `json:"create_time"`
	DefaultEngine   string    `json:"default_engine,omitempty"`
	AttachedEngines []string  `json:"attached_engines,omitempty"`
}

// EngineStatus is the summarised lifecycle state of an engine.
type EngineStatus string

// Engine statuses.
const (
	EngineStatusUnspecified EngineStatus = "UNSPECIFIED"
	EngineStatusStarting    EngineStatus = "STARTING"
	EngineStatusRunning     EngineStatus = "RUNNING"
	EngineStatusStopping    EngineStatus = "STOPPING"
	EngineStatusStopped     EngineStatus = "STOPPED"
	EngineStatusFailed      EngineStatus = "FAILED"
	EngineStatusDropping    EngineStatus = "DROPPING"
)

// OneOf reports whether s is any of the given statuses.
func (s EngineStatus) OneOf(states ...EngineStatus) bool {
	for _, st := range states {
		if s == st {
			return true
		}
	}
	return false
}

// String returns the status name, defaulting to UNSPECIFIED.
func (s EngineStatus) String() string {
	if s == "" {
		return string(EngineStatusUnspecified)
	}
	return string(s)
}

// Engine is an engine resource as returned by the resource API.
type Engine struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Status      EngineStatus `json:"status"`
	Region      string       `json:"region"`
	Spec        string       `json:"spec"`
	Type        string       `json:"type"`
	Scale       int          `json:"scale"`
	AutoStop    int          `json:"auto_stop"`
	Warmup      string       `json:"warmup"`
	Endpoint    string       `json:"endpoint"`
	Database    string       `json:"database,omitempty"`
	CreateTime  time.Time    `json:"create_time"`
}

// EngineSettings holds the mutable engine properties used by create and update.
// Nil fields are left unchanged on update.
type EngineSettings struct {
	Name        string  `json:"name,omitempty"`
	NewName     *string `json:"new_name,omitempty"`
	Database    string  `json:"database,omitempty"`
	Region      string  `json:"region,omitempty"`
	Spec        *string `json:"spec,omitempty"`
	Description *string `json:"description,omitempty"`
	Type        *string `json:"type,omitempty"`
	Scale       *int    `json:"scale,omitempty"`
	AutoStop    *int    `json:"auto_stop,omitempty"`
	Warmup      *string `json:"warmup,omitempty"`
}

// Empty reports whether no mutable property is set.
func (s EngineSettings) Empty() bool {
	return s.Spec == nil && s.Description == nil && s.Type == nil &&
		s.Scale == nil && s.AutoStop == nil && s.Warmup == nil && s.NewName == nil
}

// Engine types accepted by the resource API, keyed by CLI shorthand.
var EngineTypes = map[string]string{
	"rw": "GENERAL_PURPOSE",
	"ro": "DATA_ANALYTICS",
}

// Warmup methods accepted by the resource API, keyed by CLI shorthand.
var WarmupMethods = map[string]string{
	"min": "MINIMAL",
	"ind": "PRELOAD_INDEXES",
	"all": "PRELOAD_ALL_DATA",
}

// engineSpecFamilies lists instance families and their sizes.
var engineSpecFamilies = map[string][]string{
	"C":   {"1", "2", "3", "4", "5", "6", "7"},
	"S":   {"1", "2", "3", "4", "5", "6"},
	"B":   {"1", "2", "3", "4", "5", "6", "7"},
	"M":   {"1", "2", "3", "4", "5", "6", "7"},
	"c5d": {"large", "xlarge", "2xlarge", "4xlarge", "9xlarge", "12xlarge", "metal"},
	"i3":  {"large", "xlarge", "2xlarge", "4xlarge", "8xlarge", "metal"},
	"r5d": {"large", "xlarge", "2xlarge", "4xlarge", "8xlarge", "12xlarge", "metal"},
	"m5d": {"large", "xlarge", "2xlarge", "4xlarge", "8xlarge", "12xlarge", "metal"},
}

// ValidEngineSpec reports whether spec names a known instance spec, e.g. "B2" or "c5d.large".
// Matching is case-insensitive.
func ValidEngineSpec(spec string) bool {
	for family, sizes := range engineSpecFamilies {
		for _, size := range sizes {
			candidate := family + size
			if len(family) > 1 {
				candidate = family + "." + size
			}
			if strings.EqualFold(candidate, spec) {
				return true
			}
		}
	}
	return false
}
