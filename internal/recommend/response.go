package recommend

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
)

const (
	recommendationsField = "recommendations"
	// The API's own response model names the list and the title differently.
	nativeAssessmentsField = "recommended_assessments"
)

type Recommendation struct {
	AssessmentName  string   `json:"assessment_name"`
	URL             string   `json:"url"`
	Description     string   `json:"description,omitempty"`
	Duration        int      `json:"duration,omitempty"`
	AdaptiveSupport string   `json:"adaptive_support,omitempty"`
	RemoteSupport   string   `json:"remote_support,omitempty"`
	TestType        []string `json:"test_type,omitempty"`
}

type nativeAssessment struct {
	Name            string   `json:"name"`
	URL             string   `json:"url"`
	Description     string   `json:"description"`
	Duration        int      `json:"duration"`
	AdaptiveSupport string   `json:"adaptive_support"`
	RemoteSupport   string   `json:"remote_support"`
	TestType        []string `json:"test_type"`
}

type Response struct {
	Recommendations []Recommendation `json:"recommendations"`
}

func parseResponse(data []byte) (*Response, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	response := &Response{Recommendations: []Recommendation{}}

	if items, ok := raw[recommendationsField]; ok {
		if err := decodeItems(items, &response.Recommendations); err != nil {
			return nil, fmt.Errorf("%s: %w", recommendationsField, err)
		}
		return response.normalize(), nil
	}

	if items, ok := raw[nativeAssessmentsField]; ok {
		var native []nativeAssessment
		if err := decodeItems(items, &native); err != nil {
			return nil, fmt.Errorf("%s: %w", nativeAssessmentsField, err)
		}
		for _, n := range native {
			response.Recommendations = append(response.Recommendations, Recommendation{
				AssessmentName:  n.Name,
				URL:             n.URL,
				Description:     n.Description,
				Duration:        n.Duration,
				AdaptiveSupport: n.AdaptiveSupport,
				RemoteSupport:   n.RemoteSupport,
				TestType:        n.TestType,
			})
		}
	}

	return response.normalize(), nil
}

// decodeItems is lenient about scalar types: the API has sent durations as
// strings and test types as a bare string.
func decodeItems(items any, target any) error {
	cfg := &mapstructure.DecoderConfig{
		Metadata:         nil,
		Result:           target,
		TagName:          "json",
		WeaklyTypedInput: true,
	}
	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return err
	}

	return decoder.Decode(items)
}

func (r *Response) normalize() *Response {
	if r.Recommendations == nil {
		r.Recommendations = []Recommendation{}
	}
	return r
}

func (r *Response) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Recommendations)
}

// Names returns the assessment names in response order.
func (r *Response) Names() []string {
	names := make([]string, 0, r.Len())
	if r == nil {
		return names
	}

	for _, rec := range r.Recommendations {
		names = append(names, rec.AssessmentName)
	}

	return names
}

// DumpToTmpFile writes the recommendations as indented JSON into a new
// temporary file and returns its name.
func (r *Response) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "recommendations_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return "", err
	}
	return file.Name(), nil
}
