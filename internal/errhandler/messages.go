package errhandler

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage is what a client is shown for a failure. It never carries
// raw error text beyond validation details the user supplied.
type UserMessage struct {
	Title              string   `json:"title"`
	Message            string   `json:"message"`
	SuggestedActions   []string `json:"suggested_actions"`
	Severity           Severity `json:"severity"`
	ShowRetry          bool     `json:"show_retry"`
	ShowContactSupport bool     `json:"show_contact_support"`
}

// MessageFor builds the user message for err.
func MessageFor(err error) UserMessage {
	text := strings.ToLower(causeText(err))

	switch Classify(err) {
	case CategoryUpload:
		switch {
		case strings.Contains(text, "size") || strings.Contains(text, "too large"):
			return UserMessage{
				Title:   "File Too Large",
				Message: "The uploaded file exceeds the size limit. Please try a smaller file.",
				SuggestedActions: []string{
					"Compress the document if possible",
					"Split large documents into smaller sections",
					"Convert to a more efficient format (PDF to TXT)",
				},
				Severity:  SeverityMedium,
				ShowRetry: true,
			}
		case strings.Contains(text, "format") || strings.Contains(text, "type") || strings.Contains(text, "extension"):
			return UserMessage{
				Title:   "Unsupported File Format",
				Message: "Please upload a PDF, DOCX, or TXT file.",
				SuggestedActions: []string{
					"Convert your document to PDF, DOCX, or TXT format",
					"Ensure the file extension matches the actual file type",
				},
				Severity:  SeverityMedium,
				ShowRetry: true,
			}
		}
		return UserMessage{
			Title:   "Upload Failed",
			Message: "There was a problem uploading your file. Please try again.",
			SuggestedActions: []string{
				"Check your internet connection",
				"Try uploading a different file",
			},
			Severity:  SeverityMedium,
			ShowRetry: true,
		}

	case CategoryExtraction:
		if strings.Contains(text, "empty") || strings.Contains(text, "no readable text") || strings.Contains(text, "no text") {
			return UserMessage{
				Title:   "No Readable Content",
				Message: "The document appears to be empty or contains no readable text.",
				SuggestedActions: []string{
					"Ensure the document contains text (not just images)",
					"Try a different version of the document",
					"Check if the document is password protected",
				},
				Severity: SeverityMedium,
			}
		}
		return UserMessage{
			Title:   "Text Extraction Failed",
			Message: "Unable to extract text from the document. This may be due to formatting issues.",
			SuggestedActions: []string{
				"Try converting the document to a different format",
				"Ensure the document is not password protected",
				"Check if the document contains selectable text",
			},
			Severity:           SeverityHigh,
			ShowRetry:          true,
			ShowContactSupport: true,
		}

	case CategoryModel:
		switch {
		case strings.Contains(text, "memory"):
			return UserMessage{
				Title:   "Document Too Large for Processing",
				Message: "The document is too large for the AI model to process in one go.",
				SuggestedActions: []string{
					"Consider splitting very large documents into sections",
					"Try using the 'brief' summary option for large documents",
				},
				Severity:  SeverityMedium,
				ShowRetry: true,
			}
		case strings.Contains(text, "unavailable") || strings.Contains(text, "not loaded"):
			return UserMessage{
				Title:   "AI Service Temporarily Unavailable",
				Message: "The AI summarization service is currently unavailable.",
				SuggestedActions: []string{
					"Please try again in a few minutes",
					"Save your document and return later",
				},
				Severity:           SeverityHigh,
				ShowRetry:          true,
				ShowContactSupport: true,
			}
		}
		return UserMessage{
			Title:   "AI Processing Error",
			Message: "There was an error generating the summary.",
			SuggestedActions: []string{
				"Try again in a few minutes",
				"Try with a different document",
				"Use different summary parameters",
			},
			Severity:           SeverityHigh,
			ShowRetry:          true,
			ShowContactSupport: true,
		}

	case CategoryValidation:
		return UserMessage{
			Title:   "Validation Error",
			Message: fmt.Sprintf("Document validation failed: %s", causeText(err)),
			SuggestedActions: []string{
				"Check that the file is not corrupted",
				"Try a different document format",
			},
			Severity:  SeverityMedium,
			ShowRetry: true,
		}

	case CategoryTimeout:
		return UserMessage{
			Title:   "Processing Timed Out",
			Message: "The document took too long to process.",
			SuggestedActions: []string{
				"Try the 'brief' summary option",
				"Split the document into smaller sections",
			},
			Severity:  SeverityHigh,
			ShowRetry: true,
		}
	}

	return UserMessage{
		Title:   "System Error",
		Message: "An unexpected system error occurred.",
		SuggestedActions: []string{
			"Try again in a few minutes",
			"Contact support if the issue persists",
		},
		Severity:           SeverityCritical,
		ShowRetry:          true,
		ShowContactSupport: true,
	}
}

// causeText returns the innermost message of a categorized error, without
// the category/op prefix.
func causeText(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) && e.Err != nil {
		return e.Err.Error()
	}
	return err.Error()
}
