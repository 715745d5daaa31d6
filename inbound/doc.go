// Package inbound exposes the ingestion pipeline over HTTP with gin.
//
// The payment route reads the raw body before any decoding so the signature
// is checked against the exact bytes the sender signed.
package inbound
