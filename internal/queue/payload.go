package queue

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// TypeExtractText is the asynq task type for asynchronous extractions.
const TypeExtractText = "pdfocr:extract-text"

// JobData is the task payload of one extraction
type JobData struct {
	JobID      string `json:"jobId"`
	Filename   string `json:"filename"`
	Diagrams   bool   `json:"diagrams"`
	FileSize   int64  `json:"fileSize,omitempty"`
	FileBuffer []byte `json:"fileBuffer"` // Custom UnmarshalJSON accepts two encodings
}

// UnmarshalJSON accepts fileBuffer as a base64 string or as a Node.js
// Buffer object ({"type":"Buffer","data":[...]}) from JavaScript producers.
func (d *JobData) UnmarshalJSON(data []byte) error {
	type Alias JobData
	aux := &struct {
		FileBuffer interface{} `json:"fileBuffer,omitempty"`
		*Alias
	}{
		Alias: (*Alias)(d),
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return fmt.Errorf("failed to unmarshal job data: %w", err)
	}

	switch v := aux.FileBuffer.(type) {
	case nil:
		d.FileBuffer = nil
	case string:
		decoded, err := base64.StdEncoding.DecodeString(v)
		if err != nil {
			return fmt.Errorf("failed to decode base64 fileBuffer: %w", err)
		}
		d.FileBuffer = decoded
	case map[string]interface{}:
		if bufferType, ok := v["type"].(string); !ok || bufferType != "Buffer" {
			return fmt.Errorf("invalid Buffer object format (missing or incorrect 'type' field)")
		}
		dataArray, ok := v["data"].([]interface{})
		if !ok {
			return fmt.Errorf("Buffer object missing 'data' array")
		}
		d.FileBuffer = make([]byte, len(dataArray))
		for i, val := range dataArray {
			byteVal, ok := val.(float64)
			if !ok || byteVal < 0 || byteVal > 255 {
				return fmt.Errorf("invalid byte value in Buffer data array at index %d", i)
			}
			d.FileBuffer[i] = byte(byteVal)
		}
	default:
		return fmt.Errorf("fileBuffer must be either base64 string or Buffer object, got %T", v)
	}
	return nil
}

// NewExtractTask builds the asynq task for a job.
func NewExtractTask(data *JobData, opts ...asynq.Option) (*asynq.Task, error) {
	if data.JobID == "" {
		return nil, fmt.Errorf("job ID is required")
	}
	if len(data.FileBuffer) == 0 {
		return nil, fmt.Errorf("file buffer is required")
	}
	if data.FileSize == 0 {
		data.FileSize = int64(len(data.FileBuffer))
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job data: %w", err)
	}
	return asynq.NewTask(TypeExtractText, payload, opts...), nil
}
