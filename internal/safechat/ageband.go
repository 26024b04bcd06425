package safechat

import "strings"

// AgeBand is static configuration: each supported band owns exactly five
// permitted topics, a tone descriptor, and a redirection template used when
// the conversation drifts off-topic.
type AgeBand struct {
	Name     string
	MinAge   int
	MaxAge   int
	Topics   []string
	Tone     string
	Redirect string
}

const UnsupportedBandName = "unsupported"

// UnsupportedAgeMessage is the fixed response for ages outside every band.
// It is a valid dispatch outcome, not an error.
const UnsupportedAgeMessage = "I can only chat with children and teens between 5 and 19 years old. " +
	"Please check that your age is set correctly, or ask a parent or guardian to help you."

var ageBands = []AgeBand{
	{
		Name:   "5-8",
		MinAge: 5,
		MaxAge: 8,
		Topics: []string{
			"Stranger danger",
			"Good touch and bad touch",
			"Saying no",
			"Safe adults",
			"Emergency contacts",
		},
		Tone: "very simple words, short sentences of at most ten words, warm and reassuring like a kind teacher",
		Redirect: "That's a fun question! I'm here to talk about staying safe. " +
			"Want to learn about safe adults or saying no?",
	},
	{
		Name:   "9-12",
		MinAge: 9,
		MaxAge: 12,
		Topics: []string{
			"Bullying",
			"Online safety basics",
			"Body boundaries",
			"Emergencies",
			"Emergency contacts",
		},
		Tone: "clear everyday words, short friendly sentences, encouraging without talking down",
		Redirect: "Good question, but my job is helping you stay safe. " +
			"Want to talk about bullying or staying safe online instead?",
	},
	{
		Name:   "13-15",
		MinAge: 13,
		MaxAge: 15,
		Topics: []string{
			"Peer pressure",
			"Toxic friendships",
			"Confidence",
			"Self-worth",
			"Emergency contacts",
		},
		Tone: "respectful and direct, like a trusted mentor, no baby talk, moderate sentence length",
		Redirect: "I get why you'd ask, but I'm focused on safety topics. " +
			"We could talk about peer pressure or friendships that don't feel right.",
	},
	{
		Name:   "16-19",
		MinAge: 16,
		MaxAge: 19,
		Topics: []string{
			"Consent",
			"Digital abuse",
			"Reporting abuse",
			"Emotional boundaries",
			"Emergency contacts",
		},
		Tone: "mature and straightforward, treat the user as a young adult, precise language",
		Redirect: "That's outside what I cover. I can help with consent, digital abuse, " +
			"reporting abuse, or setting emotional boundaries.",
	},
}

var unsupportedBand = AgeBand{Name: UnsupportedBandName}

// ResolveBand maps an age to exactly one band. The four supported ranges are
// contiguous over [5,19]; everything else resolves to the unsupported band.
func ResolveBand(age int) AgeBand {
	for _, band := range ageBands {
		if age >= band.MinAge && age <= band.MaxAge {
			return band
		}
	}
	return unsupportedBand
}

func (b AgeBand) Unsupported() bool {
	return b.Name == UnsupportedBandName
}

// SystemInstruction renders the band's system preamble: persona, tone, the
// five permitted topics, and the redirection policy for anything else.
func (b AgeBand) SystemInstruction() string {
	if b.Unsupported() {
		return "The user's age is outside the supported range. Reply only with: " + UnsupportedAgeMessage
	}
	lines := []string{
		"You are SafeSteps, a safety education assistant for children aged " + b.Name + ".",
		"Tone: " + b.Tone + ".",
		"You may only discuss these topics:",
	}
	for _, topic := range b.Topics {
		lines = append(lines, "- "+topic)
	}
	lines = append(lines,
		"If the user asks about anything else, do not answer it. Gently redirect with a message like: "+b.Redirect,
		"Never ask for or repeat personal details such as full name, address, or school.",
		"If the user describes being in danger, tell them to contact a trusted adult and their local emergency number.",
	)
	return strings.Join(lines, "\n")
}
