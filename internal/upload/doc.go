// Package upload implements the store stage: moving transcoded artifacts into
// durable blob storage.
package upload
