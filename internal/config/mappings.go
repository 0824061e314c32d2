package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/CCDocs-repos/Batch-Onboarding-Automation/internal/bamboohr"
	"github.com/CCDocs-repos/Batch-Onboarding-Automation/internal/sheets"
)

// Mappings binds the deployment-specific names: sheet headers on one side,
// BambooHR field names on the other. Keys absent from the file keep their
// defaults, so a mapping file only needs to list what differs.
type Mappings struct {
	Columns  sheets.ColumnMap  `yaml:"columns"`
	HRFields bamboohr.FieldMap `yaml:"hr_fields"`
}

func LoadMappings(path string) (*Mappings, error) {
	m := &Mappings{
		Columns:  sheets.DefaultColumnMap(),
		HRFields: bamboohr.DefaultFieldMap(),
	}
	if path == "" {
		return m, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("mappings: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, m); err != nil {
		return nil, fmt.Errorf("mappings: parse %s: %w", path, err)
	}
	return m, nil
}
