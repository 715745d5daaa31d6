// Package core contains the webhook ingestion domain: events, derived
// transactions, the error taxonomy, configuration, and the storage contracts
// the pipeline depends on. Storage and transport adapters depend on this
// package; core must not depend on them.
package core
