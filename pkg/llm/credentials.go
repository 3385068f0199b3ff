package llm

// Credentials holds what an upstream needs to authenticate and attribute a
// request.
type Credentials struct {
	APIKey string

	// Referer and Title are sent as attribution headers where the upstream
	// supports them.
	Referer string
	Title   string
}
