package assistant

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/openai/openai-go"
	"go.uber.org/zap"

	"inkflow/models"
	"inkflow/services/arbiter"
	"inkflow/services/calendar"
	"inkflow/services/validation"
)

// Tool names exposed to the model.
const (
	toolCheckAvailability = "check_calendar_availability"
	toolCreateBooking     = "create_tattoo_booking"
	toolFindBooking       = "find_customer_booking"
	toolCancelBooking     = "cancel_tattoo_booking"
	toolReschedule        = "reschedule_tattoo_booking"
)

// calendarTools declares the booking functions the model may call.
func calendarTools() []openai.ChatCompletionToolParam {
	return []openai.ChatCompletionToolParam{
		{Function: openai.FunctionDefinitionParam{
			Name:        toolCheckAvailability,
			Description: openai.String("Check available time slots in the calendar for tattoo appointments"),
			Parameters: openai.FunctionParameters{
				"type": "object",
				"properties": map[string]any{
					"start_date": map[string]any{
						"type":        "string",
						"description": "Start date to check availability (format: YYYY-MM-DD)",
					},
					"end_date": map[string]any{
						"type":        "string",
						"description": "End date to check availability (format: YYYY-MM-DD). Optional, defaults to start_date",
					},
					"duration_hours": map[string]any{
						"type":        "number",
						"description": "Duration of the appointment in hours (if not provided, calculated from tattoo_price)",
					},
					"tattoo_price": map[string]any{
						"type":        "number",
						"description": "Estimated price of tattoo in euros (used to calculate duration: price/100 = hours)",
					},
					"user_id": map[string]any{
						"type":        "string",
						"description": "Instagram user ID (required for temporary slot holds)",
					},
					"preferred_time": map[string]any{
						"type":        "string",
						"description": "Preferred appointment time (format: HH:MM). Suggestions will start no earlier than this time on the first requested day",
					},
				},
				"required": []string{"start_date"},
			},
		}},
		{Function: openai.FunctionDefinitionParam{
			Name:        toolCreateBooking,
			Description: openai.String("Create a new tattoo appointment booking"),
			Parameters: openai.FunctionParameters{
				"type": "object",
				"properties": map[string]any{
					"customer_name":  map[string]any{"type": "string", "description": "Customer's full name"},
					"customer_phone": map[string]any{"type": "string", "description": "Customer's phone number"},
					"date":           map[string]any{"type": "string", "description": "Appointment date (format: YYYY-MM-DD)"},
					"time":           map[string]any{"type": "string", "description": "Appointment time (format: HH:MM)"},
					"duration_hours": map[string]any{
						"type":        "number",
						"description": "Duration of the appointment in hours (if not provided, calculated from tattoo_price)",
					},
					"tattoo_price": map[string]any{
						"type":        "number",
						"description": "Estimated price of tattoo in euros (used to calculate duration: price/100 = hours)",
					},
					"tattoo_description": map[string]any{"type": "string", "description": "Description of the tattoo design/style"},
					"user_id":            map[string]any{"type": "string", "description": "Instagram user ID (thread owner)"},
				},
				"required": []string{"customer_name", "customer_phone", "date", "time", "user_id"},
			},
		}},
		{Function: openai.FunctionDefinitionParam{
			Name:        toolFindBooking,
			Description: openai.String("Find existing bookings by customer phone number"),
			Parameters: openai.FunctionParameters{
				"type": "object",
				"properties": map[string]any{
					"phone_number": map[string]any{"type": "string", "description": "Customer's phone number to search for"},
				},
				"required": []string{"phone_number"},
			},
		}},
		{Function: openai.FunctionDefinitionParam{
			Name:        toolCancelBooking,
			Description: openai.String("Cancel an existing tattoo appointment"),
			Parameters: openai.FunctionParameters{
				"type": "object",
				"properties": map[string]any{
					"event_id": map[string]any{"type": "string", "description": "Google Calendar event ID of the booking to cancel"},
				},
				"required": []string{"event_id"},
			},
		}},
		{Function: openai.FunctionDefinitionParam{
			Name:        toolReschedule,
			Description: openai.String("Reschedule an existing tattoo appointment"),
			Parameters: openai.FunctionParameters{
				"type": "object",
				"properties": map[string]any{
					"event_id": map[string]any{"type": "string", "description": "Google Calendar event ID of the booking to reschedule"},
					"new_date": map[string]any{"type": "string", "description": "New appointment date (format: YYYY-MM-DD)"},
					"new_time": map[string]any{"type": "string", "description": "New appointment time (format: HH:MM)"},
					"duration_hours": map[string]any{
						"type":        "number",
						"description": "Duration of the appointment in hours (if not provided, calculated from tattoo_price)",
					},
					"tattoo_price": map[string]any{
						"type":        "number",
						"description": "Estimated price of tattoo in euros (used to calculate duration: price/100 = hours)",
					},
				},
				"required": []string{"event_id", "new_date", "new_time"},
			},
		}},
	}
}

// BookingBackend is the calendar surface the executor drives.
type BookingBackend interface {
	AvailableSlots(ctx context.Context, q models.AvailabilityQuery) ([]models.AvailableSlot, error)
	CreateBooking(ctx context.Context, req models.BookingRequest) (string, error)
	FindBookingsByPhone(ctx context.Context, phone string) ([]calendar.Booking, error)
	CancelBooking(ctx context.Context, eventID string) error
	Reschedule(ctx context.Context, eventID, newDate, newTime string, durationHours, tattooPrice float64) (string, error)
}

// Executor runs the calendar tool calls the model requests. Every
// result is a JSON document the model can read back.
type Executor struct {
	Calendar BookingBackend
	Logger   *zap.Logger
}

func NewExecutor(cal BookingBackend, logger *zap.Logger) *Executor {
	return &Executor{Calendar: cal, Logger: logger}
}

type availabilityArgs struct {
	StartDate     string  `json:"start_date"`
	EndDate       string  `json:"end_date"`
	DurationHours float64 `json:"duration_hours"`
	TattooPrice   float64 `json:"tattoo_price"`
	UserID        string  `json:"user_id"`
	PreferredTime string  `json:"preferred_time"`
}

type createBookingArgs struct {
	CustomerName      string  `json:"customer_name"`
	CustomerPhone     string  `json:"customer_phone"`
	Date              string  `json:"date"`
	Time              string  `json:"time"`
	DurationHours     float64 `json:"duration_hours"`
	TattooPrice       float64 `json:"tattoo_price"`
	TattooDescription string  `json:"tattoo_description"`
	UserID            string  `json:"user_id"`
}

type findBookingArgs struct {
	PhoneNumber string `json:"phone_number"`
}

type cancelBookingArgs struct {
	EventID string `json:"event_id"`
}

type rescheduleArgs struct {
	EventID       string  `json:"event_id"`
	NewDate       string  `json:"new_date"`
	NewTime       string  `json:"new_time"`
	DurationHours float64 `json:"duration_hours"`
	TattooPrice   float64 `json:"tattoo_price"`
}

// Execute dispatches one tool call and returns its JSON result. Errors
// are folded into the result payload so the model can relay them; they
// never abort the reply.
func (e *Executor) Execute(ctx context.Context, call models.ChatToolCall, userID string) string {
	result := e.execute(ctx, call, userID)
	raw, err := json.Marshal(result)
	if err != nil {
		return `{"status":"error","message":"internal error"}`
	}
	return string(raw)
}

func (e *Executor) execute(ctx context.Context, call models.ChatToolCall, userID string) map[string]any {
	e.Logger.Info("executing calendar tool",
		zap.String("tool", call.Name), zap.String("user", userID))

	switch call.Name {
	case toolCheckAvailability:
		var args availabilityArgs
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			return errResult(err)
		}
		if args.UserID == "" {
			args.UserID = userID
		}
		slots, err := e.Calendar.AvailableSlots(ctx, models.AvailabilityQuery{
			StartDate:     args.StartDate,
			EndDate:       args.EndDate,
			DurationHours: args.DurationHours,
			TattooPrice:   args.TattooPrice,
			UserID:        args.UserID,
			PreferredTime: args.PreferredTime,
		})
		if err != nil {
			return errResult(err)
		}
		return map[string]any{
			"status":  "success",
			"slots":   slots,
			"message": calendar.FormatSlotsMessage(slots),
		}

	case toolCreateBooking:
		var args createBookingArgs
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			return errResult(err)
		}
		if args.UserID == "" {
			args.UserID = userID
		}
		name, err := validation.CustomerName(args.CustomerName)
		if err != nil {
			return errResult(err)
		}
		phone, err := validation.Phone(args.CustomerPhone)
		if err != nil {
			return errResult(err)
		}
		eventID, err := e.Calendar.CreateBooking(ctx, models.BookingRequest{
			CustomerName:  name,
			CustomerPhone: phone,
			Date:          args.Date,
			Time:          args.Time,
			DurationHours: args.DurationHours,
			TattooPrice:   args.TattooPrice,
			Description:   args.TattooDescription,
			UserID:        args.UserID,
		})
		if err != nil {
			if errors.Is(err, arbiter.ErrSlotUnavailable) || errors.Is(err, arbiter.ErrHoldExpired) {
				return map[string]any{
					"status":  "error",
					"message": "Η ώρα μόλις δεσμεύτηκε από άλλον πελάτη. Πρότεινε εναλλακτικές ώρες.",
				}
			}
			return errResult(err)
		}
		return map[string]any{
			"status":   "success",
			"event_id": eventID,
			"message":  "Το ραντεβού δημιουργήθηκε επιτυχώς!",
		}

	case toolFindBooking:
		var args findBookingArgs
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			return errResult(err)
		}
		bookings, err := e.Calendar.FindBookingsByPhone(ctx, args.PhoneNumber)
		if err != nil {
			return errResult(err)
		}
		if len(bookings) == 0 {
			return map[string]any{
				"status":  "not_found",
				"message": "Δεν βρέθηκαν ραντεβού με αυτό το τηλέφωνο.",
			}
		}
		return map[string]any{
			"status": "success",
			"events": bookings,
			"count":  len(bookings),
		}

	case toolCancelBooking:
		var args cancelBookingArgs
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			return errResult(err)
		}
		if err := e.Calendar.CancelBooking(ctx, args.EventID); err != nil {
			return errResult(err)
		}
		return map[string]any{
			"status":  "success",
			"message": "Το ραντεβού ακυρώθηκε επιτυχώς.",
		}

	case toolReschedule:
		var args rescheduleArgs
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			return errResult(err)
		}
		eventID, err := e.Calendar.Reschedule(ctx, args.EventID, args.NewDate, args.NewTime, args.DurationHours, args.TattooPrice)
		if err != nil {
			if errors.Is(err, calendar.ErrRescheduleIncomplete) {
				return map[string]any{
					"status":  "error",
					"message": "Το παλιό ραντεβού ακυρώθηκε αλλά το νέο δεν δημιουργήθηκε. Ζήτα από τον πελάτη να επιβεβαιώσει νέα ώρα άμεσα.",
				}
			}
			return errResult(err)
		}
		return map[string]any{
			"status":   "success",
			"event_id": eventID,
			"message":  "Το ραντεβού μεταφέρθηκε επιτυχώς!",
		}
	}

	return map[string]any{"status": "error", "message": "unknown function: " + call.Name}
}

func errResult(err error) map[string]any {
	var verr *validation.Error
	if errors.As(err, &verr) {
		return map[string]any{"status": "error", "message": "Μη έγκυρο στοιχείο: " + verr.Reason}
	}
	return map[string]any{"status": "error", "message": "Σφάλμα: " + err.Error()}
}
