package utils

import (
	"net/http"
	"time"
)

// HTTPClient is shared by outbound API calls. Per-call deadlines come from the request context.
var HTTPClient = &http.Client{
	Timeout: 30 * time.Second,
}
