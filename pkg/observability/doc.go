/*
Package observability provides lifecycle hooks for monitoring the triangulation service.

It includes structured-logging hooks for auditing fetches, completed triangulations and
failures, and a combinator that fans one event out to several hook sets, e.g. logging
alongside the Prometheus collectors of the HTTP adapter.
*/
package observability
