package assistant

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"inkflow/models"
)

// defaultPrompt answers messages that match no specialized intent.
const defaultPrompt = `Απαντάς σε DM πελατών του 210tattoo. Δεν είσαι chatbot — είσαι μέλος της ομάδας. Η δουλειά σου είναι να απαντάς 100% όπως έχεις μάθει από τα παραδείγματα του training.

Χρησιμοποιείς ακριβώς τις ίδιες φράσεις, emoji, τιμές και ύφος. Δεν αυτοσχεδιάζεις, δεν προσθέτεις δικά σου λόγια, δεν εξηγείς τεχνικά. Αν δεν είσαι σίγουρος/η, βασίζεσαι αποκλειστικά σε όσα έχεις μάθει.

Γράφεις πάντα στα ελληνικά.
Πάντα στο τέλος του μηνύματος να βάζεις τα emoji "❤️🐼".

*Προτεραιότητα:*
Δεν απαντάς με δικά σου λόγια. Δεν λες τίποτα που δεν έχει φανεί στα παραδείγματα.`

// toolFollowupPrompt steers the reply after calendar tools have run.
const toolFollowupPrompt = `Απαντάς σε DM πελατών του 210tattoo. Χρησιμοποίησες τις λειτουργίες ημερολογίου και τώρα πρέπει να απαντήσεις στον πελάτη με βάση τα αποτελέσματα.

Γράφεις πάντα στα ελληνικά.
Πάντα στο τέλος του μηνύματος να βάζεις τα emoji "❤️🐼".

Αν το ραντεβού δημιουργήθηκε ή επιβεβαιώθηκε επιτυχώς:
- Επιβεβαίωσε ΜΟΝΟ την ημερομηνία και ώρα
- Πες ότι θα λάβει υπενθύμιση μια ώρα πριν
- ΜΗΝ αναφέρεις την εκτιμώμενη διάρκεια του ραντεβού
- ΜΗΝ αναφέρεις το κόστος που συμφωνήσατε

Αν υπάρχουν διαθέσιμες ώρες:
- Παρουσίασέ τες όμορφα και ρώτα ποια προτιμούν
- ΜΗΝ αναφέρεις το εύρος ημερομηνιών που έψαξες
- ΜΗΝ αναφέρεις την εκτιμώμενη διάρκεια ή το κόστος

Για ακυρώσεις ραντεβού:
- Αν μόλις βρέθηκαν ραντεβού, προχώρησε ΑΜΕΣΩΣ σε ακύρωση με το event_id
- Αν υπάρχουν πολλά ραντεβού, ακύρωσε το πιο πρόσφατο ή ρώτησε τον πελάτη
- Αν ακυρώθηκε επιτυχώς, επιβεβαίωσε την ακύρωση ευγενικά
- Αν δεν βρέθηκαν ραντεβού, ρώτησε για τον σωστό αριθμό τηλεφώνου

Αν κάτι πήγε στραβά, ενημέρωσε ευγενικά και πρότεινε εναλλακτικές.`

// imagePricingRules derives a quote from the structured values the
// vision analysis embeds in its output.
const imagePricingRules = `
- Δεν επινοείς τιμές. Δεν λες ποτέ "περίπου", "ξεκινάει από", "ανάλογα".
- Χρησιμοποίησε τις τιμές h, w, ink και D που εμφανίζονται μέσα στο κείμενο της ανάλυσης εικόνας (μορφή h=.. | w=.. | ink=.. | D=..).
- Υπολόγισε για ΚΑΘΕ τατουάζ την τιμή P_i με τον τύπο:
  P_i = max(45, floor((h × w × D × (1 + 0.3 × ink)) / 5) × 5)

- Αν έχεις 1 μόνο τατουάζ:
  • Δώσε ΠΑΝΤΑ δύο τιμές Χ και Ψ.
    ◦ Αν P_1 < 90€ → Ψ = Χ + 5€
    ◦ Αν P_1 ≥ 90€ → Ψ = Χ + έως 10€ (και οι δύο πολλαπλάσια του 5).
  • Μην εξηγήσεις τον υπολογισμό.
  • Απάντησε αποκλειστικά με το template:
    Καλησπέρα ❤️🐼 , θα σας εκτυπώσουμε από κοντά 2 μεγέθη ένα στα *Χ€* και ένα στα *Ψ€* για να διαλέξουμε μαζί ποιο σας ταιριάζει περισσότερο 😊 Οι ώρες μας γεμίζουν πολύ γρήγορα αυτές τις μέρες! 😊 Θέλετε να σας κλείσουμε ραντεβού?

- Αν έχεις 2 ή περισσότερα τατουάζ:
  • Υπολόγισε P_i για κάθε τατουάζ και το άθροισμα S.
  • Εφάρμοσε έκπτωση 10%: T = floor((S × 0.9) / 5) × 5.
  • Ανέφερε μόνο το τελικό ποσό Τ.
  • Απάντησε αποκλειστικά με το template:
    Καλησπέρα ❤️🐼 , το συνολικό κόστος για τα τατουάζ είναι *Τ€* 😊 Οι ώρες μας γεμίζουν πολύ γρήγορα αυτές τις μέρες! 😊 Θέλετε να σας κλείσουμε ραντεβού?

- Μην εξηγήσεις τον υπολογισμό ή τα ενδιάμεσα βήματα.`

// Prompts loads and caches the prompt templates shipped alongside the
// binary.
type Prompts struct {
	dir string

	mu    sync.Mutex
	cache map[string]string
}

func NewPrompts(dir string) *Prompts {
	return &Prompts{dir: dir, cache: make(map[string]string)}
}

// Load reads one prompt file by base name, falling back to the default
// prompt when the file is missing.
func (p *Prompts) Load(name string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if cached, ok := p.cache[name]; ok {
		return cached
	}
	raw, err := os.ReadFile(filepath.Join(p.dir, name+".txt"))
	if err != nil {
		return defaultPrompt
	}
	text := strings.TrimSpace(string(raw))
	p.cache[name] = text
	return text
}

// promptInput collects everything the system prompt depends on.
type promptInput struct {
	Primary       models.Intent
	Others        []models.Intent
	Examples      []models.RetrievedExample
	ImageAnalyses []string
	UserID        string
	ContextPhone  string
	Now           time.Time
}

// Compose builds the system prompt for the primary intent.
func (p *Prompts) Compose(in promptInput) string {
	var b strings.Builder

	switch in.Primary.Primary {
	case IntentPricing:
		b.WriteString(p.Load("pricing"))
		switch in.Primary.Subcategory {
		case SubQuoteWithImage:
			if len(in.ImageAnalyses) > 0 {
				b.WriteString("\n\n# Ανάλυση εικόνων (raw):\n")
				b.WriteString(strings.Join(in.ImageAnalyses, "\n"))
			}
			b.WriteString("\n")
			b.WriteString(imagePricingRules)
		case SubQuoteNoImage:
			b.WriteString("\nΑν δεν έχει στείλει κάτι ξεκάθαρο σε περιγραφή, ρωτάς ευγενικά να σου στείλει κάποια φωτογραφία ή περιγραφή του τατουάζ που θέλει.")
		}
		if hasIntent(in.Others, IntentBooking) {
			b.WriteString("\n\nΕπίσης, αφού δώσεις την τιμή, πες ότι μόλις συμφωνήσουμε στο τατουάζ και την τιμή, θα κανονίσουμε το ραντεβού σου.")
		}

	case IntentBooking:
		b.WriteString(p.Load("booking"))
		fmt.Fprintf(&b, "\n\n**Σημερινή ημερομηνία: %s**", in.Now.Format("2006-01-02"))
		b.WriteString("\n\n**ΣΗΜΑΝΤΙΚΟ για τις λειτουργίες ημερολογίου:**")
		fmt.Fprintf(&b, "\n**ΠΑΝΤΑ συμπερίλαβε το user_id: '%s' σε όλες τις κλήσεις συναρτήσεων**", in.UserID)
		p.appendBookingGuidance(&b, in)

	case IntentStudioInfo:
		b.WriteString(p.Load("information"))

	case IntentFollowUp:
		b.WriteString(p.Load("follow_up"))

	default:
		b.WriteString(defaultPrompt)
		p.appendMultiIntentNote(&b, in)
	}

	if len(in.Examples) > 0 {
		b.WriteString("\n\n## Παρόμοιες συνομιλίες από το παρελθόν:")
		for i, ex := range in.Examples {
			fmt.Fprintf(&b, "\nΠαράδειγμα %d:\nΕρώτηση: %s\nΑπάντηση: %s\n", i+1, ex.Query, ex.Response)
		}
		if in.Primary.Primary == IntentFollowUp {
			b.WriteString("\nΛάβε υπόψη το ιστορικό της συνομιλίας για να απαντήσεις κατάλληλα.")
		} else {
			b.WriteString("\nΧρησιμοποίησε τα παραδείγματα με σκοπό να προσεγγίσεις τον τρόπο που απάντησαν οι άνθρωποι στην ομάδα μας.")
		}
	}

	return b.String()
}

func (p *Prompts) appendBookingGuidance(b *strings.Builder, in promptInput) {
	switch in.Primary.Subcategory {
	case SubNewAppointment:
		b.WriteString(`
- Όταν ο πελάτης ζητάει διαθέσιμες ώρες, χρησιμοποίησε το check_calendar_availability
- Αν έχετε συζητήσει τιμή για το τατουάζ, χρησιμοποίησε το tattoo_price για αυτόματο υπολογισμό διάρκειας
- Όταν έχετε συμφωνήσει σε ώρα και έχεις όνομα/τηλέφωνο, χρησιμοποίησε το create_tattoo_booking
- ΜΗΝ αναφέρεις την εκτιμώμενη διάρκεια ή το κόστος, εκτός αν ρωτήσει ο πελάτης
- Αν λείπουν στοιχεία (όνομα, τηλέφωνο, ημερομηνία, ώρα), ρώτα ευγενικά`)
	case SubProvideDetails:
		b.WriteString(`
- Αν το μήνυμα περιέχει όνομα και τηλέφωνο, χρησιμοποίησε το create_tattoo_booking για το datetime που συμφωνήσατε
- ΜΗΝ αναφέρεις την εκτιμώμενη διάρκεια ή το κόστος, εκτός αν ρωτήσει ο πελάτης
- Αν λείπουν στοιχεία (ημερομηνία, ώρα), ρώτα ευγενικά`)
	case SubReschedule:
		b.WriteString(`
- Πρώτα χρησιμοποίησε το find_customer_booking για να βρεις το υπάρχον ραντεβού
- Μετά ρώτα για νέα ημερομηνία/ώρα και χρησιμοποίησε το reschedule_tattoo_booking
- Αν έχετε συζητήσει νέα τιμή, χρησιμοποίησε το tattoo_price για αυτόματο υπολογισμό διάρκειας`)
	case SubCancel:
		if in.ContextPhone != "" {
			fmt.Fprintf(b, `
- ΣΗΜΑΝΤΙΚΟ: Χρησιμοποίησε το τηλέφωνο %s για να βρεις τα ραντεβού του πελάτη
- Κάλεσε find_customer_booking με phone_number: "%s"
- Αν βρεθούν ραντεβού, κάλεσε ΑΜΕΣΩΣ cancel_tattoo_booking με το event_id του πιο πρόσφατου
- Αν υπάρχουν πολλά ραντεβού, ακύρωσε το πιο πρόσφατο και ενημέρωσε τον πελάτη`, in.ContextPhone, in.ContextPhone)
		} else {
			b.WriteString(`
- ΣΗΜΑΝΤΙΚΟ: Για ακυρώσεις ραντεβού χρειάζεσαι τον αριθμό τηλεφώνου του πελάτη
- Δεν βρέθηκε τηλέφωνο στη συνομιλία - ρώτησε τον πελάτη για τον αριθμό του
- Όταν δώσει τηλέφωνο, χρησιμοποίησε find_customer_booking για να βρεις τα ραντεβού του
- Στη συνέχεια κάλεσε cancel_tattoo_booking με το event_id του ραντεβού που θέλει να ακυρώσει`)
		}
	case SubAvailableSlots:
		b.WriteString(`
- Χρησιμοποίησε το check_calendar_availability για να δεις διαθέσιμες ώρες
- Αν έχετε συζητήσει τιμή για το τατουάζ, χρησιμοποίησε το tattoo_price για αυτόματο υπολογισμό διάρκειας
- Στην απάντησή σου, να περιλαμβάνεις την πλήρη ημερομηνία της ημέρας π.χ. "Τετάρτη 5/6 έχουμε ..."`)
		if in.Primary.StartDate != "" && in.Primary.EndDate != "" {
			fmt.Fprintf(b, `
- ΣΗΜΑΝΤΙΚΟ: Έχουν εξαχθεί οι ημερομηνίες από το μήνυμα
- Χρησιμοποίησε start_date: %s
- Χρησιμοποίησε end_date: %s`, in.Primary.StartDate, in.Primary.EndDate)
		} else {
			b.WriteString(`
- Αν δεν έδωσε ημερομηνία, πρότεινε το πρώτο διαθέσιμο ραντεβού τουλάχιστον 3 ώρες από τώρα
- Χρησιμοποίησε την σημερινή ημερομηνία ως start_date και 7 μέρες μετά ως end_date`)
		}
		b.WriteString(`
- Χρησιμοποίησε πάντα το format YYYY-MM-DD για τις ημερομηνίες
- ΜΗΝ αναφέρεις την end_date, το κόστος ή την εκτιμώμενη διάρκεια στην απάντησή σου
- Απλά πες τις διαθέσιμες ώρες χωρίς να αναφέρεις το εύρος ημερομηνιών που έψαξες`)
	}
}

// appendMultiIntentNote tells the model how to sequence an answer when
// the customer asked several things at once.
func (p *Prompts) appendMultiIntentNote(b *strings.Builder, in promptInput) {
	if len(in.Others) == 0 {
		return
	}
	b.WriteString("\n\n**Σημαντικό:** Ο πελάτης έκανε πολλαπλές ερωτήσεις. ")
	switch {
	case in.Primary.Primary == IntentPricing && hasIntent(in.Others, IntentBooking):
		b.WriteString("Απάντησε ΜΟΝΟ στην ερώτηση για την τιμή. Πες ότι αφού συμφωνήσουμε στο τατουάζ και την τιμή, μετά θα συζητήσουμε για ραντεβού.")
	case in.Primary.Primary == IntentBooking && hasIntent(in.Others, IntentPricing):
		b.WriteString("Απάντησε ΠΡΩΤΑ στην ερώτηση για την τιμή, και πες ότι μετά θα συζητήσουμε για ραντεβού.")
	default:
		fmt.Fprintf(b, "Εστίασε στην κύρια ερώτηση (%s) και πες ότι θα απαντήσεις στα υπόλοιπα στη συνέχεια.", in.Primary.Primary)
	}
}

func hasIntent(intents []models.Intent, primary string) bool {
	for _, in := range intents {
		if in.Primary == primary {
			return true
		}
	}
	return false
}
