package assistant

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"github.com/openai/openai-go"
)

// visionPrompt extracts the sizing and difficulty values the pricing
// formula needs from a tattoo photo.
const visionPrompt = `Είσαι μέλος ενός στούντιο τατουάζ που χρειάζεται να εξάγει χρηστικές πληροφορίες από μια φωτογραφία τατουάζ.

1. Δώσε σύντομη περιγραφή του στυλ (fine line, ρεαλιστικό κ.λπ.), της περιοχής στο σώμα (π.χ. χέρι, μηρός) και τυχόν αξιοσημείωτων χαρακτηριστικών (σκίαση, χρώμα).
2. Υπολόγισε ΚΑΙ ανέφερε ρητά τα παρακάτω τέσσερα (4) στοιχεία σε ΕΝΑΝ μοναδικό στίχο, σε αυτή τη σειρά, χωρισμένα με « | »:
   - Εκτιμώμενο ύψος σε cm (h)
   - Εκτιμώμενο πλάτος σε cm (w)
   - Ποσοστό επιφάνειας με μελάνι σε δεκαδικό (ink) π.χ. 0.45
   - Συντελεστής δυσκολίας D σύμφωνα με τον πίνακα:
       • 1.14 → απλό γραμμικό, χωρίς γέμισμα ή σκιά
       • 1.21 → λίγη απαλή σκίαση
       • 1.45 → πολύ σκιά ή ornate λεπτομέρεια
       • 1.60 → γεμισμένο μαύρο
       • 1.65 → γεμισμένο με 1 χρώμα
       • 1.85 → χρώμα + σκίαση
       • 2.10 → πολυχρωμία + έντονο shading
       • 2.50 → ρεαλιστικό (όχι πορτρέτο)
       • 3.30 → πορτρέτο / πανοπλία / υφή
       • 3.75 → πολύ μικρό script

FORMAT παραδείγματος:
«Fine line minimal house outline στον καρπό | h=5 | w=5 | ink=0.10 | D=1.14»

Μην προσθέσεις τίποτα άλλο εκτός από την περιγραφή + τη γραμμή με τις τιμές.`

// AnalyzeImage describes a tattoo photo and embeds the measurements
// the pricing formula reads back.
func (c *Client) AnalyzeImage(ctx context.Context, imagePath string) (string, error) {
	raw, err := os.ReadFile(imagePath)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	dataURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(raw)

	completion, err := c.complete(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.VisionModel),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(visionPrompt),
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart("Ανέλυσε την εικόνα του τατουάζ."),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: dataURL}),
			}),
		},
		Temperature: openai.Float(0.3),
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(completion.Choices[0].Message.Content), nil
}
