package render

// RequestInfo is the request data available to every template
type RequestInfo struct {
	Method    string
	Path      string
	RequestID string
}

// Page is the binding passed to all templates
type Page struct {
	Request RequestInfo
	Title   string
	Version string
	// Error is shown inline above a form, or as the text of the error page
	Error string
	// Message is the text of the success page
	Message string
	// Status is the http status of the error page
	Status int
}
