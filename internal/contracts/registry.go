package contracts

import (
	"fmt"
	"sort"
)

// PayloadSpec describes how one job type's payload is validated. Specs are
// pure functions over the canonical payload map, so the registry can be
// shared by the ingress service and the orchestrator without coordination.
type PayloadSpec struct {
	Validate func(payload map[string]any) error
}

// Registry is an immutable job_type -> payload spec mapping, built once at
// startup and injected wherever payloads are checked. A nil spec entry means
// the job type is known but carries a free-form payload.
type Registry struct {
	specs map[string]PayloadSpec
}

// NewRegistry copies the given specs into an immutable registry.
func NewRegistry(specs map[string]PayloadSpec) *Registry {
	owned := make(map[string]PayloadSpec, len(specs))
	for k, v := range specs {
		owned[k] = v
	}
	return &Registry{specs: owned}
}

// DefaultRegistry returns the registry of job types this deployment supports.
func DefaultRegistry() *Registry {
	return NewRegistry(map[string]PayloadSpec{
		JobTypeKnowledgeUpdate: {Validate: ValidateKnowledgeUpdatePayload},
	})
}

// Known reports whether jobType is registered.
func (r *Registry) Known(jobType string) bool {
	_, ok := r.specs[jobType]
	return ok
}

// Types returns the registered job types, sorted.
func (r *Registry) Types() []string {
	out := make([]string, 0, len(r.specs))
	for k := range r.specs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ValidatePayload checks payload against the spec registered for jobType.
// Unknown job types are an error; a registered type without a validate func
// accepts any payload.
func (r *Registry) ValidatePayload(jobType string, payload map[string]any) error {
	spec, ok := r.specs[jobType]
	if !ok {
		return fmt.Errorf("unsupported job_type: %s", jobType)
	}
	if spec.Validate == nil {
		return nil
	}
	return spec.Validate(payload)
}
