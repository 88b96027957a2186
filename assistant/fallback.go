package assistant

import "strings"

type fallbackRule struct {
	keywords []string
	response string
}

// Rules are checked in order; the first rule with a matching keyword wins.
var fallbackRules = []fallbackRule{
	{
		keywords: []string{"heart rate", "heartbeat", "pulse", "bpm"},
		response: `A normal resting heart rate for adults is between 60 and 100 beats per minute (bpm).

Things that can help keep it in a healthy range:
• Stay hydrated and limit caffeine and alcohol.
• Get enough sleep and practice relaxation such as deep breathing.
• Keep up regular, moderate exercise like walking.

If your heart rate is often above 100 bpm at rest, or you notice chest pain, dizziness or shortness of breath, please consult a healthcare professional.`,
	},
	{
		keywords: []string{"blood pressure", "hypertension"},
		response: `A normal blood pressure reading is below 120/80 mmHg. Readings of 130/80 mmHg or higher are considered high.

To support healthy blood pressure:
• Reduce salt and processed foods.
• Stay active for at least 30 minutes on most days.
• Limit alcohol, avoid smoking and manage stress.

If your readings stay high, or you have severe headaches or vision changes, please consult a healthcare professional.`,
	},
	{
		keywords: []string{"temperature", "fever"},
		response: `Normal body temperature is around 36.1°C to 37.2°C (97°F to 99°F). A temperature of 38°C (100.4°F) or higher is usually considered a fever.

For a mild fever:
• Rest and drink plenty of fluids.
• Dress lightly and keep the room comfortably cool.

Seek medical care if the fever is above 39.4°C (103°F), lasts more than three days, or comes with a stiff neck, confusion or difficulty breathing.`,
	},
	{
		keywords: []string{"glucose", "blood sugar", "diabetes"},
		response: `Fasting blood glucose is normally between 70 and 99 mg/dL. Levels from 100 to 125 mg/dL may indicate prediabetes, and 126 mg/dL or higher may indicate diabetes.

To help manage blood sugar:
• Choose whole grains, vegetables and lean protein.
• Eat at regular times and watch portion sizes.
• Stay physically active.

If you have very high or low readings, or symptoms like extreme thirst or confusion, please consult a healthcare professional.`,
	},
	{
		keywords: []string{"wellness", "healthy", "exercise", "sleep", "diet", "stress"},
		response: `Here are some general wellness tips:
• Aim for 7 to 9 hours of sleep each night.
• Get at least 150 minutes of moderate activity per week.
• Eat a balanced diet rich in fruits, vegetables and whole grains.
• Drink enough water throughout the day.
• Take time for stress management, such as mindfulness or time outdoors.

Regular check-ups with your healthcare provider help catch issues early.`,
	},
}

const defaultFallback = `Thank you for your question. I can share general health information about topics like heart rate, blood pressure, body temperature, blood glucose and overall wellness.

Please remember that I am not a replacement for professional medical advice. For specific symptoms or conditions, consult a healthcare professional or book an appointment with one of our doctors.`

// FallbackResponse returns the canned reply for the first keyword class found
// in message, or the default reply when none matches.
func FallbackResponse(message string) string {
	lower := strings.ToLower(message)
	for _, rule := range fallbackRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.response
			}
		}
	}
	return defaultFallback
}
