// Package blobstore provides the HTTP client for durable artifact storage.
package blobstore
