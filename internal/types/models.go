package types

// FileDetails describes an uploaded media file before it is transcribed.
type FileDetails struct {
	Name      string `json:"name"`
	SizeBytes int64  `json:"size_bytes"`
	Size      string `json:"size"`
	MIMEType  string `json:"mime_type"`
}

// MediaRecord is one row of a batch manifest.
type MediaRecord struct {
	ID             string `json:"id,omitempty"`
	Source         string `json:"source"`
	Instructions   string `json:"instructions,omitempty"`
	TranscribeOnly bool   `json:"transcribe_only,omitempty"`
}

// Readiness is reported by /readyz and `zanzara check`.
type Readiness struct {
	TemplateLoaded   bool     `json:"template_loaded"`
	TemplateError    string   `json:"template_error,omitempty"`
	ExamplesLoaded   int      `json:"examples_loaded"`
	ExamplesExpected int      `json:"examples_expected"`
	Warnings         []string `json:"warnings,omitempty"`
	CredentialsReady bool     `json:"credentials_ready"`
}

// Hint tells the user what a result means and what to do next.
type Hint struct {
	Insight string `json:"insight"`
	Action  string `json:"action"`
	Impact  string `json:"impact,omitempty"`
}
