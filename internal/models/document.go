package models

// Document is one crawled page. It is never modified after the crawler builds it.
type Document struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	URL     string `json:"url"`
}

// Placeholder titles used by the crawler.
const (
	ErrorTitle = "Error"
	NoTitle    = "No Title"
)

// ErrorDocument is the stand-in for a page that could not be fetched or parsed.
func ErrorDocument(url string) Document {
	return Document{
		Title:   ErrorTitle,
		Content: "",
		URL:     url,
	}
}

// Result is what a successful pipeline run hands back to its caller.
type Result struct {
	Query        string     `json:"query"`
	Answer       string     `json:"llm_answer"`
	Documents    []Document `json:"documents"`
	AllDocuments []Document `json:"all_documents"`
}

// ErrorEnvelope is the failure shape returned by the adapters.
func ErrorEnvelope(msg string) Result {
	return Result{
		Answer:       msg,
		Documents:    []Document{},
		AllDocuments: []Document{},
	}
}
