package main

// CloudWatch metric names and dimensions emitted per order event.
const (
	metricOrderEvents = "OrderEvents"
	metricOrderValue  = "OrderValue"

	dimEventType = "EventType"
	dimStatus    = "Status"
)

// dedupePrefix namespaces SQS message ids inside the shared idempotency table.
const dedupePrefix = "sqs:"
