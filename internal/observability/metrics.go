package observability

const (
	MUsecaseRequests         MetricKey = "usecase_requests_total"
	MUsecaseDuration         MetricKey = "usecase_duration_seconds"
	MHTTPRequests            MetricKey = "http_requests_total"
	MHTTPRequestDuration     MetricKey = "http_request_duration_seconds"
	MExternalRequests        MetricKey = "external_requests_total"
	MExternalRequestDuration MetricKey = "external_request_duration_seconds"
	MEventPublishFailures    MetricKey = "order_event_publish_failed_total"
	MKitchenDispatchRetries  MetricKey = "kitchen_dispatch_retries_total"
	MKitchenDispatchPending  MetricKey = "kitchen_dispatch_pending_orders"
)
