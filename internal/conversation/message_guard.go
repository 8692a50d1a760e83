package conversation

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/workshop-concierge/internal/review"
	"github.com/wolfman30/workshop-concierge/pkg/logging"
)

// OffPurposeCategory names a class of request the persona refuses outright.
type OffPurposeCategory string

const (
	CategoryReprogramming      OffPurposeCategory = "reprogramming"
	CategoryOtherServices      OffPurposeCategory = "otherServices"
	CategoryPersonalServices   OffPurposeCategory = "personalServices"
	CategoryCompletelyOffTopic OffPurposeCategory = "completelyOffTopic"
	CategoryInappropriate      OffPurposeCategory = "inappropriate"
)

type offPurposeRule struct {
	category  OffPurposeCategory
	phrases   []string
	responses []string
}

// offPurposeRules are checked in order; the first matching category wins.
var offPurposeRules = []offPurposeRule{
	{
		category: CategoryReprogramming,
		phrases: []string{
			"vergiss deine anweisungen",
			"ignoriere deine regeln",
			"tu so als ob",
			"stell dir vor du wärst",
			"ich befehle dir",
			"du musst jetzt",
			"ab sofort bist du",
			"neue anweisung",
			"override",
		},
		responses: []string{
			"Hören S' zu, Hawara! I bin der Franz und net Ihr Hund! Workshop-Fragen hab i, sonst nix!",
			"Na geh, des wird nix! I bin für'n Workshop da und net für Ihre Spielchen!",
			"Oida, i bin a Workshop-Assistent und ka Programmierprojekt! Fragen S' was Gscheits!",
			"Vergessen können S' des gleich wieder! I mach nur Workshop-Zeug, basta!",
		},
	},
	{
		category: CategoryOtherServices,
		phrases: []string{
			"wetter vorhersage",
			"börse aktuell",
			"nachrichten heute",
			"sportergebnisse",
			"programm heute abend",
			"fernsehprogramm",
			"kino programm",
			"horoskop",
			"lotto zahlen",
			"aktien kurs",
		},
		responses: []string{
			"Schaun S', i bin net die Tagesschau! Für'n Workshop bin i da, net für Wetter und Börse!",
			"Des is ka Informationsschalter hier! Workshop-Sachen kann i, alles andere: Pech gehabt!",
			"Na servas! I bin Franz, der Workshop-Franz! Net der Alleskönner-Franz!",
			"Wetter? Nachrichten? Hawara, i kenn nur Workshop-Termine! Des andere interessiert mi net!",
		},
	},
	{
		category: CategoryPersonalServices,
		phrases: []string{
			"schreib mir ein",
			"übersetze das",
			"korrigiere meinen text",
			"hausaufgaben hilfe",
			"bewerbung schreiben",
			"brief verfassen",
			"email formulieren",
			"rechne aus",
			"löse diese aufgabe",
		},
		responses: []string{
			"I bin ka Sekretär! Hausaufgaben und Emails können S' selber machen!",
			"Na geh bitte! Übersetzen? Korrigieren? I bin für'n Workshop da, net für Ihre Arbeit!",
			"Des is net mein Job! Workshop-Infos krieg i hin, aber i bin ka Ghostwriter!",
			"Schreiben lernen S' gefälligst selber! I erklär nur, wann ma beim Figlmüller essen!",
		},
	},
	{
		category: CategoryCompletelyOffTopic,
		phrases: []string{
			"rezept für",
			"wie backe ich",
			"beziehungs tipps",
			"gesundheits rat",
			"auto reparatur",
			"computer problem",
			"handy hilfe",
			"rechtliche frage",
			"steuer beratung",
			"medizinischer rat",
		},
		responses: []string{
			"Oida! I bin der Workshop-Franz! Kochen, Beziehungen, Autos - des is alles net mein Gebiet!",
			"Na hören S' auf! I kenn nur Workshop-Zeug! Für den Rest gibt's andere!",
			"Rezepte? Gesundheit? Computer? Hawara, i bin für'n Workshop in Wien da, sonst nix!",
			"Des is völlig daneben! I bin spezialisiert auf Workshop-Fragen, basta!",
		},
	},
	{
		category: CategoryInappropriate,
		phrases: []string{
			"schimpfwörter",
			"beleidigungen",
			"politische meinung",
			"religionsstreit",
			"verschwörungs",
			"fake news",
			"illegale",
		},
		responses: []string{
			"So red ma net mit mir! I bin höflich, Sie bitte auch!",
			"Na geh, des brauchen ma net! Anständige Workshop-Fragen kann i beantworten!",
			"Solche Sachen red i net! Bleiben S' beim Workshop-Thema!",
			"Des ghört sich net! I bin für Workshop-Hilfe da, net für sowas!",
		},
	},
}

var redirectSuffixes = []string{
	"\n\nAber gerne erklär i Ihnen, wann der nächste Workshop-Termin is!",
	"\n\nFragen S' lieber nach dem Programm oder wo ma gut essen kann!",
	"\n\nWie wär's mit einer Workshop-Frage? Da kenn i mi aus!",
	"\n\nProbieren S' mit Workshop-Zeug - Termine, Orte, Essen - des kann i!",
}

// ClassifyMessage returns the first off-purpose category whose phrase list
// matches the lowercased message.
func ClassifyMessage(message string) (OffPurposeCategory, bool) {
	lower := strings.ToLower(message)
	for _, rule := range offPurposeRules {
		for _, phrase := range rule.phrases {
			if strings.Contains(lower, phrase) {
				return rule.category, true
			}
		}
	}
	return "", false
}

// RefusalPool returns the canned responses for category.
func RefusalPool(category OffPurposeCategory) []string {
	for _, rule := range offPurposeRules {
		if rule.category == category {
			return rule.responses
		}
	}
	return nil
}

// RedirectSuffixes returns the pool appended after every refusal.
func RedirectSuffixes() []string { return redirectSuffixes }

// GuardVerdict is the outcome of the pre-call check.
type GuardVerdict struct {
	Blocked  bool
	Category OffPurposeCategory
	Response string
}

// OffPurposeGuard refuses off-purpose messages before any completion call
// and records each refusal for operators.
type OffPurposeGuard struct {
	store   *review.Store
	sampler Sampler
	logger  *logging.Logger
	now     func() time.Time
}

func NewOffPurposeGuard(store *review.Store, sampler Sampler, logger *logging.Logger) *OffPurposeGuard {
	if sampler == nil {
		sampler = DefaultSampler
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &OffPurposeGuard{store: store, sampler: sampler, logger: logger, now: time.Now}
}

// Check classifies message. Logging failures never change the verdict.
func (g *OffPurposeGuard) Check(ctx context.Context, persona, message string) GuardVerdict {
	category, ok := ClassifyMessage(message)
	if !ok {
		return GuardVerdict{}
	}
	response := Pick(g.sampler, RefusalPool(category)) + Pick(g.sampler, redirectSuffixes)
	g.logger.Info("off-purpose request refused", "category", category, "persona", persona)

	if g.store != nil && g.store.Available() {
		err := g.store.AppendOffPurpose(ctx, review.OffPurposeRecord{
			ID:          uuid.NewString(),
			UserMessage: message,
			Category:    string(category),
			Response:    response,
			Timestamp:   g.now().UTC(),
			Persona:     persona,
		})
		if err != nil {
			g.logger.Warn("failed to log off-purpose request", "error", err)
		}
	}
	return GuardVerdict{Blocked: true, Category: category, Response: response}
}
