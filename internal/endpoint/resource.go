package endpoint

import (
	"errors"
	"fmt"
	"slices"
)

// ErrUnknownResource is returned for a resource type outside the descriptor table.
var ErrUnknownResource = errors.New("endpoint: unknown resource type")

// ResourceType tags a per-resource data endpoint on the API host.
type ResourceType string

const (
	Profile          ResourceType = "profile"
	Activities       ResourceType = "activities"
	BloodGlucoses    ResourceType = "blood_glucoses"
	BloodOxygens     ResourceType = "blood_oxygens"
	BloodPressures   ResourceType = "blood_pressures"
	Falls            ResourceType = "falls"
	BodyFats         ResourceType = "body_fats"
	BMIs             ResourceType = "bmis"
	Genetics         ResourceType = "genetics"
	HeartRates       ResourceType = "heart_rates"
	Heights          ResourceType = "heights"
	Locations        ResourceType = "locations"
	Meals            ResourceType = "meals"
	RespirationRates ResourceType = "respiration_rates"
	Sleeps           ResourceType = "sleeps"
	SleepSummary     ResourceType = "sleep_summary"
	Steps            ResourceType = "steps"
	Weights          ResourceType = "weights"
)

// Descriptor describes one resource type. Values are immutable; use
// DefaultFields to read the field-name list.
type Descriptor struct {
	Type          ResourceType
	defaultFields []string
}

// DefaultFields returns the positional field names used for batch rows when
// the caller supplies none.
func (d Descriptor) DefaultFields() []string {
	return slices.Clone(d.defaultFields)
}

// descriptors is the closed resource table. New variants are new entries.
var descriptors = []Descriptor{
	{Type: Profile},
	{Type: Activities, defaultFields: []string{"start_time", "end_time", "type", "intensity", "distance", "duration", "calories", "timezone"}},
	{Type: BloodGlucoses, defaultFields: []string{"date", "glucose", "meal_relation", "timezone"}},
	{Type: BloodOxygens, defaultFields: []string{"date", "oxygen_saturation", "timezone"}},
	{Type: BloodPressures, defaultFields: []string{"date", "systolic", "diastolic", "pulse", "timezone"}},
	{Type: Falls, defaultFields: []string{"date", "timezone"}},
	{Type: BodyFats, defaultFields: []string{"date", "body_fat", "timezone"}},
	{Type: BMIs, defaultFields: []string{"date", "bmi", "timezone"}},
	{Type: Genetics},
	{Type: HeartRates, defaultFields: []string{"date", "heart_rate", "timezone"}},
	{Type: Heights, defaultFields: []string{"date", "height", "timezone"}},
	{Type: Locations, defaultFields: []string{"start_time", "end_time", "latitude", "longitude", "timezone"}},
	{Type: Meals, defaultFields: []string{"date", "calories", "carbohydrates", "fat", "protein", "timezone"}},
	{Type: RespirationRates},
	{Type: Sleeps, defaultFields: []string{"start_time", "end_time", "total_sleep", "awake", "deep", "light", "rem", "timezone"}},
	{Type: SleepSummary},
	{Type: Steps, defaultFields: []string{"date", "steps", "timezone"}},
	{Type: Weights, defaultFields: []string{"date", "weight", "timezone"}},
}

// Lookup returns the descriptor for t.
func Lookup(t ResourceType) (Descriptor, error) {
	for _, d := range descriptors {
		if d.Type == t {
			return d, nil
		}
	}
	return Descriptor{}, fmt.Errorf("%w: %q", ErrUnknownResource, string(t))
}

// ResourceTypes lists every known resource type in table order.
func ResourceTypes() []ResourceType {
	out := make([]ResourceType, len(descriptors))
	for i, d := range descriptors {
		out[i] = d.Type
	}
	return out
}
