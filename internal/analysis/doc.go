// Package analysis implements the analyze stage: turning transcripts into
// structured call-analysis reports via the configured LLM.
package analysis
