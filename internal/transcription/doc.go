// Package transcription implements the transcribe stage: fetching a transcript
// for the stored recording and normalizing its detected language.
package transcription
