package wrapper

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

var ErrMalformedResponse = errors.New("malformed response")

type MalformedResponseError struct {
	Raw    string
	Reason string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("%v: %s", ErrMalformedResponse, e.Reason)
}

func (e *MalformedResponseError) Is(target error) bool {
	return target == ErrMalformedResponse
}

type SensitiveFilesResult struct {
	SensitiveFiles []File `json:"sensitiveFiles"`
}

// LineNumber accepts both 12 and "12".
type LineNumber int

func (n *LineNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		data = []byte(s)
	}
	v, err := strconv.Atoi(string(data))
	if err != nil {
		return fmt.Errorf("lineNumber %s is not an integer", data)
	}
	*n = LineNumber(v)
	return nil
}

type Issue struct {
	Language    string     `json:"language,omitempty"`
	LineNumber  LineNumber `json:"lineNumber"`
	InitialCode string     `json:"initialCode"`
	SolvingCode string     `json:"solvingCode"`
	Comment     string     `json:"comment"`
	Suggestion  string     `json:"suggestion"`
}

type IssuesResult struct {
	Issues []Issue `json:"issues"`
}

// DecodeSensitiveFiles parses the answer of IdentifySensitiveFiles. The sensitiveFiles key must be present.
func DecodeSensitiveFiles(raw string) (*SensitiveFilesResult, error) {
	var envelope struct {
		SensitiveFiles *[]File `json:"sensitiveFiles"`
	}
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		return nil, &MalformedResponseError{Raw: raw, Reason: err.Error()}
	}
	if envelope.SensitiveFiles == nil {
		return nil, &MalformedResponseError{Raw: raw, Reason: "missing sensitiveFiles key"}
	}
	return &SensitiveFilesResult{SensitiveFiles: *envelope.SensitiveFiles}, nil
}

// DecodeIssues parses the answer of InDepthAnalysis. The issues key must be present.
func DecodeIssues(raw string) (*IssuesResult, error) {
	var envelope struct {
		Issues *[]Issue `json:"issues"`
	}
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		return nil, &MalformedResponseError{Raw: raw, Reason: err.Error()}
	}
	if envelope.Issues == nil {
		return nil, &MalformedResponseError{Raw: raw, Reason: "missing issues key"}
	}
	return &IssuesResult{Issues: *envelope.Issues}, nil
}
