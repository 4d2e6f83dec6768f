package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

var (
	// ErrMalformedResponse indicates a response that does not match the result schema.
	ErrMalformedResponse = errors.New("malformed analysis response")

	// ErrInvalidJSON indicates a response body that is not JSON at all.
	ErrInvalidJSON = errors.New("invalid JSON")
)

const resultSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["criteriaScores", "claudeResponse"],
  "properties": {
    "score": { "type": ["number", "null"] },
    "totalFiles": { "type": "integer" },
    "additions": { "type": "integer" },
    "deletions": { "type": "integer" },
    "criteriaScores": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["criterion", "score", "weight"],
        "properties": {
          "criterion": { "type": "string" },
          "score": { "type": "number" },
          "weight": { "type": "number" },
          "justification": { "type": "string" },
          "recommendations": { "type": "array", "items": { "type": "string" } }
        }
      }
    },
    "functionAnalysis": {
      "type": "object",
      "required": ["completionPercentage"],
      "properties": {
        "totalFunctions": { "type": "integer" },
        "implementedFunctions": { "type": "integer" },
        "completionPercentage": { "type": "number" }
      }
    },
    "claudeResponse": {
      "type": "object",
      "required": ["content"],
      "properties": {
        "content": { "type": "string" },
        "overallAnalysis": { "type": "string" }
      }
    },
    "filePath": { "type": "string" },
    "fileContent": { "type": "string" }
  }
}`

var resultSchemaLoader = gojsonschema.NewStringLoader(resultSchemaJSON)

// MalformedResponseError lists the schema violations of a backend response.
type MalformedResponseError struct {
	Problems []string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMalformedResponse, strings.Join(e.Problems, "; "))
}

func (e *MalformedResponseError) Is(target error) bool {
	return target == ErrMalformedResponse
}

// Decode validates a backend response body and decodes it into a Result.
func Decode(body []byte) (*Result, error) {
	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}

	validation, err := gojsonschema.Validate(resultSchemaLoader, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return nil, fmt.Errorf("validate analysis response: %w", err)
	}
	if !validation.Valid() {
		problems := make([]string, 0, len(validation.Errors()))
		for _, desc := range validation.Errors() {
			problems = append(problems, desc.String())
		}
		return nil, &MalformedResponseError{Problems: problems}
	}

	var result Result
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &MalformedResponseError{Problems: []string{err.Error()}}
	}
	return &result, nil
}
