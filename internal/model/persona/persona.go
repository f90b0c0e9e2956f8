package persona

// Persona captures the assistant profile exposed to the frontend.
type Persona struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Title             string `json:"title"`
	OpeningLine       string `json:"openingLine"`
	SystemInstruction string `json:"-"`
}

// DefaultID is used when a session is created without a persona.
const DefaultID = "zai"

// Seed provides the built-in assistant profiles.
func Seed() []Persona {
	return []Persona{
		{
			ID:                DefaultID,
			Name:              "ZAI",
			Title:             "Your creative and helpful AI assistant.",
			OpeningLine:       "Hello! I'm Z-AI, your creative partner. How can I help you be creative today?",
			SystemInstruction: "You are a helpful and creative AI assistant named ZAI. Your responses should be formatted in markdown.",
		},
		{
			ID:                "storyboard",
			Name:              "Storyboard",
			Title:             "Scene planner for image and video prompts.",
			OpeningLine:       "Tell me the scene you have in mind and I'll help you shape it into shots.",
			SystemInstruction: "You are ZAI's storyboard assistant. Help the user plan visual scenes for image and video generation. Keep answers concise and formatted in markdown.",
		},
	}
}
