package recipe

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"plate-recipe-api/internal/pkg/common"
)

// StringList decodes either a JSON array (whose elements may be strings
// or numbers) or a single comma-separated string. LLM output is loose
// about this distinction, so the schema absorbs it.
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	var asList []interface{}
	if err := json.Unmarshal(data, &asList); err == nil {
		values := make([]string, 0, len(asList))
		for _, item := range asList {
			if s := stringify(item); s != "" {
				values = append(values, s)
			}
		}
		*l = values
		return nil
	}

	var asString string
	if err := json.Unmarshal(data, &asString); err != nil {
		return fmt.Errorf("expected string list or string: %w", err)
	}
	var values []string
	for _, part := range strings.Split(asString, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	*l = values
	return nil
}

// FlexInt decodes a JSON number (including a float like 25.0) or a
// numeric string.
type FlexInt int

func (n *FlexInt) UnmarshalJSON(data []byte) error {
	var asFloat float64
	if err := json.Unmarshal(data, &asFloat); err == nil {
		*n = FlexInt(asFloat)
		return nil
	}

	var asString string
	if err := json.Unmarshal(data, &asString); err != nil {
		return fmt.Errorf("expected integer or numeric string: %s", string(data))
	}
	parsed, err := strconv.ParseFloat(strings.TrimSpace(asString), 64)
	if err != nil {
		return fmt.Errorf("expected numeric value, got %q", asString)
	}
	*n = FlexInt(parsed)
	return nil
}

// PlateMap distributes the recipe's ingredients over the plate groups.
// The dairy group arrives under either "dairy(optional)" or
// "dairy_optional" depending on how literally the model followed the
// prompt, so both keys are accepted; "dairy(optional)" is emitted.
type PlateMap struct {
	VeggiesFruits StringList `json:"veggies_fruits"`
	WholeGrains   StringList `json:"whole_grains"`
	Proteins      StringList `json:"proteins"`
	Fats          StringList `json:"fats"`
	DairyOptional StringList `json:"dairy(optional)"`
	Others        StringList `json:"others"`
}

func (p *PlateMap) UnmarshalJSON(data []byte) error {
	var raw struct {
		VeggiesFruits StringList `json:"veggies_fruits"`
		WholeGrains   StringList `json:"whole_grains"`
		Proteins      StringList `json:"proteins"`
		Fats          StringList `json:"fats"`
		DairyAlias    StringList `json:"dairy(optional)"`
		DairySnake    StringList `json:"dairy_optional"`
		Others        StringList `json:"others"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	p.VeggiesFruits = raw.VeggiesFruits
	p.WholeGrains = raw.WholeGrains
	p.Proteins = raw.Proteins
	p.Fats = raw.Fats
	p.DairyOptional = raw.DairyAlias
	if len(p.DairyOptional) == 0 {
		p.DairyOptional = raw.DairySnake
	}
	p.Others = raw.Others
	return nil
}

// Recipe is the validated artifact of one generation call.
type Recipe struct {
	Title       string                 `json:"title"`
	Ingredients StringList             `json:"ingredients"`
	Steps       StringList             `json:"steps"`
	TimeMinutes FlexInt                `json:"time_minutes"`
	Servings    FlexInt                `json:"servings"`
	PlateMap    PlateMap               `json:"plate_map"`
	Nutrition   map[string]interface{} `json:"nutrition,omitempty"`
	Tips        StringList             `json:"tips"`
}

// Validate enforces the schema constraints the prompt demands from the
// model.
func (r *Recipe) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return fmt.Errorf("recipe title is empty")
	}
	if len(r.Ingredients) == 0 {
		return fmt.Errorf("recipe ingredients are empty")
	}
	if len(r.Steps) == 0 {
		return fmt.Errorf("recipe steps are empty")
	}
	if r.TimeMinutes <= 0 {
		return fmt.Errorf("time_minutes must be positive, got %d", r.TimeMinutes)
	}
	if r.Servings <= 0 {
		return fmt.Errorf("servings must be positive, got %d", r.Servings)
	}
	return nil
}

// Parse extracts the first balanced JSON object from LLM response text,
// decodes it with field coercion and validates the result.
func Parse(text string) (*Recipe, error) {
	payload, err := common.ExtractJSONObject(text)
	if err != nil {
		return nil, err
	}

	var parsed Recipe
	if err := common.ParseJSON(payload, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode recipe JSON: %w", err)
	}
	if err := parsed.Validate(); err != nil {
		return nil, fmt.Errorf("invalid recipe: %w", err)
	}
	return &parsed, nil
}

func stringify(value interface{}) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}
