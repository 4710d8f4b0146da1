/*
Package observability turns session lifecycle callbacks into structured logs and
Prometheus metrics.
*/
package observability
