package yamlfile

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/corporate-agent/internal/core/domain"
)

// Source reads the process checklist from a YAML file. The file maps each
// legal process name to the document types it requires:
//
//	Company Incorporation:
//	  - Articles of Association
//	  - Memorandum of Association
type Source struct {
	path string
}

func New(path string) *Source {
	return &Source{path: path}
}

func (s *Source) Load() (domain.ChecklistMapping, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read checklist file: %w", err)
	}

	var mapping domain.ChecklistMapping
	if err := yaml.Unmarshal(raw, &mapping); err != nil {
		return nil, fmt.Errorf("parse checklist yaml: %w", err)
	}
	if len(mapping) == 0 {
		return nil, fmt.Errorf("checklist file %s defines no processes", s.path)
	}
	for process, required := range mapping {
		if len(required) == 0 {
			return nil, fmt.Errorf("process %q requires no documents", process)
		}
	}
	return mapping, nil
}
