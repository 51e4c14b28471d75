// Package server provides the HTTP server for the narration API.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

import "github.com/PandAAAH18/ROBLOX-RANT-GENERATOR/internal/timing"

// CreateRunRequest is the HTTP request body for starting a generation run.
type CreateRunRequest struct {
	// Script is the raw narration text. Sentences are split on terminal
	// punctuation.
	Script string `json:"script" validate:"required"`
	// Voice is the synthesis voice. Empty selects the server default.
	Voice string `json:"voice" validate:"omitempty,max=64"`
	// Pitch is the script-wide pitch adjustment, e.g. "+20Hz".
	Pitch string `json:"pitch" validate:"omitempty,max=16"`
	// Rate is the script-wide rate adjustment, e.g. "-10%".
	Rate string `json:"rate" validate:"omitempty,max=16"`
	// Title goes into the timing document metadata.
	Title string `json:"title" validate:"omitempty,max=256"`
	// AudioName overrides the output audio filename.
	AudioName string `json:"audio_name" validate:"omitempty,max=128"`
	// PushToS3 indicates whether to upload the final artifacts to S3.
	PushToS3 bool `json:"push_to_s3"`
}

// CreateRunResponse is the HTTP response after creating a run.
type CreateRunResponse struct {
	// ID is the unique identifier for the created run.
	ID string `json:"id"`
	// Status is the initial run status.
	Status string `json:"status"`
}

// RunResponse is the HTTP response for getting run details.
type RunResponse struct {
	// ID is the unique identifier for the run.
	ID string `json:"id"`
	// Status is the current run status.
	Status string `json:"status"`
	// SentenceCount is the number of sentences in the script.
	SentenceCount int `json:"sentence_count"`
	// Completed is the number of sentences synthesized so far.
	Completed int `json:"completed"`
	// Error contains any error message if the run failed.
	Error string `json:"error,omitempty"`
	// AudioURL is the S3 URL of the audio (if push_to_s3=true and completed).
	AudioURL string `json:"audio_url,omitempty"`
	// DocumentURL is the S3 URL of the timing document (if uploaded).
	DocumentURL string `json:"document_url,omitempty"`
	// Document is the timing document (if completed).
	Document *timing.Document `json:"document,omitempty"`
}

// AssetListResponse is the HTTP response for asset library listings.
type AssetListResponse struct {
	// Files is the sorted list of asset filenames.
	Files []string `json:"files"`
}

// RenderResponse is the HTTP response after a compositor render.
type RenderResponse struct {
	// VideoPath is the local path of the rendered video.
	VideoPath string `json:"video_path"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}
