// Package jd defines the job-description document schema and the section
// addressing used by the refinement pipeline. The package is read-only:
// documents are never mutated in place, a refined document is always a new
// value produced by the completion service.
package jd

import "encoding/json"

// Document is the structured job-description package being generated and
// refined. Field names are part of the wire contract; the document's shape
// must survive a refinement byte-identical in structure, with only values
// changing.
type Document struct {
	Summary               string                 `json:"summary,omitempty"`
	Roles                 []Role                 `json:"roles,omitempty"`
	SplitAllocation       []AllocationRow        `json:"split_allocation,omitempty"`
	ServiceRecommendation *ServiceRecommendation `json:"service_recommendation,omitempty"`
	Onboarding2W          *OnboardingPlan        `json:"onboarding_2w,omitempty"`
	Risks                 []string               `json:"risks,omitempty"`
	Assumptions           []string               `json:"assumptions,omitempty"`
}

// Role is one position within the package. List order is preserved verbatim
// by the pipeline because downstream rendering is order-sensitive.
type Role struct {
	Title               string            `json:"title"`
	CraftFamily         string            `json:"craft_family,omitempty"`
	ServiceType         string            `json:"service_type,omitempty"`
	WeeklyHours         int               `json:"weekly_hours,omitempty"`
	ClientFacing        bool              `json:"client_facing,omitempty"`
	Purpose             string            `json:"purpose,omitempty"`
	CoreOutcomes        []string          `json:"core_outcomes,omitempty"`
	Responsibilities    []string          `json:"responsibilities,omitempty"`
	Skills              []string          `json:"skills,omitempty"`
	Tools               []string          `json:"tools,omitempty"`
	KPIs                []string          `json:"kpis,omitempty"`
	Personality         []string          `json:"personality,omitempty"`
	ReportingLine       string            `json:"reporting_line,omitempty"`
	SampleWeek          map[string]string `json:"sample_week,omitempty"`
	OverlapRequirements string            `json:"overlap_requirements,omitempty"`
	CommunicationNorms  string            `json:"communication_norms,omitempty"`
}

// AllocationRow is one line of the split/allocation table.
type AllocationRow struct {
	Area       string `json:"area"`
	Owner      string `json:"owner,omitempty"`
	ShareHours int    `json:"share_hours,omitempty"`
	Notes      string `json:"notes,omitempty"`
}

// ServiceRecommendation records which engagement model fits the client.
type ServiceRecommendation struct {
	BestFit      string   `json:"best_fit"`
	Reasoning    string   `json:"reasoning,omitempty"`
	Alternatives []string `json:"alternatives,omitempty"`
}

// OnboardingPlan is the two-week onboarding outline.
type OnboardingPlan struct {
	WeekOne []string `json:"week_1,omitempty"`
	WeekTwo []string `json:"week_2,omitempty"`
}

// AsMap converts the document to its generic JSON form for path traversal
// and structural comparison.
func (d *Document) AsMap() (map[string]interface{}, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// Clone returns a deep copy via a JSON round trip.
func (d *Document) Clone() (*Document, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	var out Document
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
