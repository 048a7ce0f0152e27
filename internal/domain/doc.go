// Package domain defines the wire constants, error taxonomy, key types,
// and configuration/event types shared across every PKSTL package. It
// contains plain data and contracts only — no cryptography, no I/O.
package domain
