package domain

import (
	"context"
)

// KnowledgeStore is the read-only query contract over drug records,
// interactions, contraindications and class memberships. Implementations must
// be safe for concurrent reads. Absent drugs and interactions are reported
// with ErrNotFound.
type KnowledgeStore interface {
	// Lookup matches name against name or generic name, ignoring case.
	Lookup(ctx context.Context, name string) (*DrugRecord, error)

	// Search ranks exact name > exact generic > name prefix > substring,
	// ties broken by name.
	Search(ctx context.Context, term string, limit int) ([]DrugSummary, error)

	// InteractionLookup is symmetric over both name and generic name.
	InteractionLookup(ctx context.Context, nameA, nameB string) (*InteractionFinding, error)

	// ContraindicationsFor returns condition contraindications whose label
	// equals a patient condition (case-insensitive) and one High allergy
	// contraindication per allergy contained in the drug name.
	ContraindicationsFor(ctx context.Context, name string, conditions, allergies []string) ([]Contraindication, error)

	// TherapeuticAlternatives lists same-class drugs ordered by cost tier then
	// name, excluding the queried drug, at most 10. An empty class means the
	// queried drug's own class.
	TherapeuticAlternatives(ctx context.Context, name, therapeuticClass string) ([]DrugSummary, error)
}

// MonitoringSource is implemented by stores that can report monitoring
// parameters for a set of drugs in one query.
type MonitoringSource interface {
	MonitoringRequirements(ctx context.Context, names []string) (map[string]MonitoringRequirement, error)
}

// MonitoringRequirement is the per-drug monitoring data used by prescription analysis.
type MonitoringRequirement struct {
	Parameters     string `json:"parameters"`
	AdverseEffects string `json:"adverse_effects"`
}

// HealthChecker is implemented by stores with a backing connection.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// NameMatcher decides whether a curated member name identifies a free-text
// drug name. The default implementation is case-insensitive substring
// containment; stricter matchers can be swapped in.
type NameMatcher interface {
	Match(drugName, member string) bool
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetDatabaseConfig() *DatabaseConfig
	GetServerConfig() *ServerConfig
	GetStoreConfig() *StoreConfig
	Reload() error
	Validate() error
	GetDatabaseConnectionString() string
	GetDatabaseURL() string
	IsProduction() bool
	IsDevelopment() bool
}
