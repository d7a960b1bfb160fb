// Package llm provides an OpenAI-compatible chat client for transcript
// analysis.
//
// The client sends a call transcript to a configured model with a structured
// prompt requesting JSON output. The response carries the analysis payload the
// analyze stage persists on the job.
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.CompleteJSON: send system/user prompts, receive JSON response.
// Client.HealthCheck: verify API key and model availability.
//
// # Retry Behaviour
//
// None. Each call makes exactly one attempt and classifies its failure with
// the services error markers; retries happen through job re-admission.
package llm
