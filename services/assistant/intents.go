package assistant

import (
	"context"
	"encoding/json"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"go.uber.org/zap"

	"inkflow/models"
)

// Primary intent labels produced by classification.
const (
	IntentPricing    = "pricing"
	IntentBooking    = "booking_request"
	IntentStudioInfo = "studio_information"
	IntentFollowUp   = "follow_up"
	IntentOther      = "other"
)

// Booking subcategories.
const (
	SubNewAppointment = "new_appointment"
	SubProvideDetails = "provide_details"
	SubReschedule     = "reschedule_appointment"
	SubCancel         = "cancel_appointment"
	SubAvailableSlots = "available_slots"
)

// Pricing subcategories.
const (
	SubQuoteWithImage = "new_quote_image"
	SubQuoteNoImage   = "new_quote_no_image"
)

// intentPriority orders intents by business importance; lower wins.
var intentPriority = map[string]int{
	IntentPricing:    1,
	IntentBooking:    2,
	IntentStudioInfo: 3,
	IntentFollowUp:   4,
	IntentOther:      5,
}

// SortIntents orders detected intents by priority, breaking ties with
// descending confidence.
func SortIntents(intents []models.Intent) []models.Intent {
	sorted := make([]models.Intent, len(intents))
	copy(sorted, intents)
	sort.SliceStable(sorted, func(i, j int) bool {
		pi, ok := intentPriority[sorted[i].Primary]
		if !ok {
			pi = 999
		}
		pj, ok := intentPriority[sorted[j].Primary]
		if !ok {
			pj = 999
		}
		if pi != pj {
			return pi < pj
		}
		return sorted[i].Confidence > sorted[j].Confidence
	})
	return sorted
}

// PrimaryIntent picks the intent to answer first. A booking request
// with an available_slots subcategory wins over other booking
// subcategories because it carries the date range the customer asked
// about.
func PrimaryIntent(sorted []models.Intent) models.Intent {
	if len(sorted) == 0 {
		return models.Intent{Primary: IntentOther}
	}
	primary := sorted[0]
	if primary.Primary == IntentBooking {
		for _, in := range sorted {
			if in.Primary == IntentBooking && in.Subcategory == SubAvailableSlots {
				return in
			}
		}
	}
	return primary
}

// ClassifyIntents labels the customer's message with one or more
// intents. Classification failures degrade to an empty set so the
// default prompt still answers.
func (c *Client) ClassifyIntents(ctx context.Context, prompt, message, previousAssistant string) []models.Intent {
	var b strings.Builder
	if previousAssistant != "" {
		b.WriteString("[PREVIOUS_ASSISTANT]: " + previousAssistant + "\n")
	}
	b.WriteString("[CURRENT_DATE: " + time.Now().Format("02/01/2006") + "]\n")
	b.WriteString(message)

	completion, err := c.complete(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.ClassifyModel),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(prompt),
			openai.UserMessage(b.String()),
		},
		Temperature: openai.Float(0),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		c.Logger.Warn("intent classification failed", zap.Error(err))
		return nil
	}

	var parsed models.IntentResult
	if err := json.Unmarshal([]byte(completion.Choices[0].Message.Content), &parsed); err != nil {
		c.Logger.Warn("intent classification returned invalid json", zap.Error(err))
		return nil
	}
	for i := range parsed.Intents {
		parsed.Intents[i].StartDate = normalizeDate(parsed.Intents[i].StartDate)
		parsed.Intents[i].EndDate = normalizeDate(parsed.Intents[i].EndDate)
	}
	return parsed.Intents
}

var slashDateRe = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)

// normalizeDate converts DD/MM/YYYY classification output to the
// YYYY-MM-DD form the calendar operations expect.
func normalizeDate(date string) string {
	m := slashDateRe.FindStringSubmatch(date)
	if m == nil {
		return date
	}
	day, month, year := m[1], m[2], m[3]
	if len(day) == 1 {
		day = "0" + day
	}
	if len(month) == 1 {
		month = "0" + month
	}
	return year + "-" + month + "-" + day
}
