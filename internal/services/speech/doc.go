// Package speech provides the HTTP client for the transcription service.
package speech
