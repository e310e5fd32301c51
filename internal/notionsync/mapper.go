package notionsync

import (
	"time"

	"github.com/jomei/notionapi"

	"github.com/dvloznov/cashflow-sim/internal/expense"
)

// Property names of the expenses database. Fingerprint is the title column
// and the key used to recognize rows that were already mirrored.
const (
	PropFingerprint = "Fingerprint"
	PropDate        = "Date"
	PropAmount      = "Amount"
	PropCategory    = "Category"
	PropMode        = "Mode"
	PropNote        = "Note"
	PropUser        = "User"
	PropSource      = "Source"
)

// ExpenseToNotionProperties converts an expense row to Notion properties.
func ExpenseToNotionProperties(rec *expense.Record) notionapi.Properties {
	date := notionapi.Date(time.Date(rec.Date.Year, rec.Date.Month, rec.Date.Day, 0, 0, 0, 0, time.UTC))

	props := notionapi.Properties{
		PropFingerprint: notionapi.TitleProperty{
			Title: []notionapi.RichText{richText(rec.Fingerprint)},
		},
		PropDate: notionapi.DateProperty{
			Date: &notionapi.DateObject{Start: &date},
		},
		PropAmount: notionapi.NumberProperty{
			Number: float64(rec.Amount),
		},
		PropCategory: notionapi.SelectProperty{
			Select: notionapi.Option{Name: string(rec.Category)},
		},
		PropMode: notionapi.SelectProperty{
			Select: notionapi.Option{Name: string(rec.Mode)},
		},
		PropUser: notionapi.RichTextProperty{
			RichText: []notionapi.RichText{richText(rec.UserID)},
		},
	}

	if rec.Note != "" {
		props[PropNote] = notionapi.RichTextProperty{
			RichText: []notionapi.RichText{richText(rec.Note)},
		}
	}

	if rec.Source != "" {
		props[PropSource] = notionapi.SelectProperty{
			Select: notionapi.Option{Name: rec.Source},
		}
	}

	return props
}

func richText(content string) notionapi.RichText {
	return notionapi.RichText{
		Type: notionapi.ObjectTypeText,
		Text: &notionapi.Text{Content: content},
	}
}

// extractFingerprint reads the title property of a mirrored page.
// Returns empty string if not found.
func extractFingerprint(page notionapi.Page) string {
	if prop, ok := page.Properties[PropFingerprint]; ok {
		if title, ok := prop.(*notionapi.TitleProperty); ok {
			if len(title.Title) > 0 {
				return title.Title[0].PlainText
			}
		}
	}
	return ""
}
