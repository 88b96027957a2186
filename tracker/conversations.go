package tracker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"telehealth/models"

	"github.com/samber/lo"
)

// ErrEmptyMessage is returned when sending a blank chat message.
var ErrEmptyMessage = errors.New("message is empty")

// ConversationTabs are the tabs of the chat sidebar, in display order.
var ConversationTabs = []string{"active", "archived"}

const (
	doctorAutoReply  = "Thank you for the clarification, doctor. I'll follow your instructions."
	patientAutoReply = "Thanks for the update! I'll review this and follow up shortly."

	messageTimeLayout = "3:04 PM"
)

// Conversations is one user's chat inbox. Every sent message gets exactly one
// scripted reply from the counterpart after a delay.
type Conversations struct {
	threads *Tracker[models.Conversation, models.ConversationStatus]

	mu       sync.Mutex // Guards messages and selected
	messages map[int][]models.ChatMessage
	selected int // 0 when nothing is selected

	self        models.SenderRole
	counterpart models.SenderRole
	reply       string
	delay       time.Duration
	tasks       *TaskGroup
	now         func() time.Time
}

func newConversations(self, counterpart models.SenderRole, reply string, delay time.Duration,
	threads []models.Conversation, messages map[int][]models.ChatMessage) *Conversations {
	c := &Conversations{
		threads: New(threads, Options[models.Conversation, models.ConversationStatus]{
			ID:         func(c models.Conversation) int { return c.ID },
			Status:     func(c models.Conversation) models.ConversationStatus { return c.Status },
			SetStatus:  func(c *models.Conversation, s models.ConversationStatus) { c.Status = s },
			SearchText: func(c models.Conversation) string { return c.Name },
		}),
		messages:    messages,
		self:        self,
		counterpart: counterpart,
		reply:       reply,
		delay:       delay,
		tasks:       NewTaskGroup(context.Background()),
		now:         time.Now,
	}
	if len(threads) > 0 {
		c.selected = threads[0].ID
	}
	return c
}

// NewDoctorConversations creates a doctor's inbox seeded with patient threads.
func NewDoctorConversations(delay time.Duration) *Conversations {
	return newConversations(models.SenderDoctor, models.SenderPatient, doctorAutoReply, delay,
		doctorThreads(), doctorMessages())
}

// NewPatientConversations creates a patient's inbox seeded with doctor threads.
func NewPatientConversations(delay time.Duration) *Conversations {
	return newConversations(models.SenderPatient, models.SenderDoctor, patientAutoReply, delay,
		patientThreads(), patientMessages())
}

// Filter returns the conversations matching the tab status and name search.
func (c *Conversations) Filter(f Filter[models.ConversationStatus]) []models.Conversation {
	return c.threads.Filter(f)
}

// Get returns the conversation with id.
func (c *Conversations) Get(id int) (models.Conversation, error) {
	return c.threads.Get(id)
}

// Messages returns the messages of a conversation, oldest first.
func (c *Conversations) Messages(id int) ([]models.ChatMessage, error) {
	if _, err := c.threads.Get(id); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.ChatMessage{}, c.messages[id]...), nil
}

// Selected returns the id of the open conversation, 0 when none.
func (c *Conversations) Selected() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected
}

// Select opens a conversation and clears its unread flag.
func (c *Conversations) Select(id int) (models.Conversation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	conv, err := c.threads.Update(id, func(conv *models.Conversation) { conv.Unread = false })
	if err != nil {
		return models.Conversation{}, err
	}
	c.selected = id
	return conv, nil
}

// Send selects the conversation, appends text as the user's message and
// schedules the counterpart's reply. The returned task completes when the
// reply has been appended or cancelled.
func (c *Conversations) Send(id int, text string) (models.ChatMessage, *Task, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return models.ChatMessage{}, nil, ErrEmptyMessage
	}

	c.mu.Lock()
	stamp := c.now().Format(messageTimeLayout)
	_, err := c.threads.Update(id, func(conv *models.Conversation) {
		conv.Preview = trimmed
		conv.Time = stamp
		conv.Unread = false
	})
	if err != nil {
		c.mu.Unlock()
		return models.ChatMessage{}, nil, err
	}
	c.selected = id
	msg := c.appendLocked(id, c.self, trimmed, stamp)
	c.mu.Unlock()

	task := c.tasks.After(c.delay, func() { c.deliverReply(id) })
	return msg, task, nil
}

func (c *Conversations) deliverReply(id int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stamp := c.now().Format(messageTimeLayout)
	c.appendLocked(id, c.counterpart, c.reply, stamp)
	unread := id != c.selected
	if _, err := c.threads.Update(id, func(conv *models.Conversation) {
		conv.Preview = c.reply
		conv.Time = stamp
		conv.Unread = unread
	}); err != nil {
		log.Printf("ERROR: Auto-reply for conversation %d not delivered: %v", id, err)
	}
}

func (c *Conversations) appendLocked(id int, sender models.SenderRole, text, stamp string) models.ChatMessage {
	existing := c.messages[id]
	nextID := lo.MaxBy(existing, func(a, b models.ChatMessage) bool { return a.ID > b.ID }).ID + 1
	msg := models.ChatMessage{ID: nextID, Sender: sender, Text: text, Time: stamp}
	c.messages[id] = append(existing, msg)
	return msg
}

// Close cancels pending replies and waits for in-flight ones.
func (c *Conversations) Close() {
	c.tasks.Close()
}

// ParseConversationTab maps a tab label to a status filter. An empty tab means active.
func ParseConversationTab(tab string) (models.ConversationStatus, error) {
	if strings.TrimSpace(tab) == "" {
		return models.ConversationActive, nil
	}
	if strings.EqualFold(strings.TrimSpace(tab), "all") {
		return "", fmt.Errorf("unknown tab %q", tab)
	}
	return parseTab(tab, models.ConversationActive, models.ConversationArchived)
}

func doctorThreads() []models.Conversation {
	return []models.Conversation{
		{ID: 1, Name: "John Doe", Preview: "My heart rate is 97 bpm...", Time: "11:30 PM", Avatar: "/images/@profile.png", Status: models.ConversationActive},
		{ID: 2, Name: "Emily Stone", Preview: "Should I adjust the dosage?", Time: "10:15 PM", Unread: true, Avatar: "/images/@profile.png", Status: models.ConversationActive},
		{ID: 3, Name: "Chris Paul", Preview: "Thanks doctor, see you soon.", Time: "Yesterday", Avatar: "/images/@profile.png", Status: models.ConversationArchived},
	}
}

func doctorMessages() map[int][]models.ChatMessage {
	return map[int][]models.ChatMessage{
		1: {
			{ID: 1, Sender: models.SenderPatient, Text: "My heart rate is 97 bpm. What can I do to improve my health?", Time: "11:25 PM"},
			{ID: 2, Sender: models.SenderDoctor, Text: "Thanks for sharing your heart rate. It's slightly elevated but still within range. Are you feeling any other symptoms?", Time: "11:27 PM"},
			{ID: 3, Sender: models.SenderPatient, Text: "No, just feeling a bit tired.", Time: "11:28 PM"},
		},
		2: {
			{ID: 1, Sender: models.SenderPatient, Text: "Should I adjust the dosage?", Time: "10:10 PM"},
		},
		3: {
			{ID: 1, Sender: models.SenderPatient, Text: "Thanks doctor, see you soon.", Time: "Yesterday"},
		},
	}
}

func patientThreads() []models.Conversation {
	return []models.Conversation{
		{ID: 1, Name: "Dr. John Doe", Preview: "These are the prescribed meds for...", Time: "11:30 PM", Unread: true, Avatar: "/images/doc.png", Status: models.ConversationActive},
		{ID: 2, Name: "Dr. Emily Carter", Preview: "Let me know if you still feel dizzy.", Time: "9:45 PM", Avatar: "/images/doc.png", Status: models.ConversationActive},
		{ID: 3, Name: "Dr. Alex Kim", Preview: "See you next week for follow up.", Time: "Yesterday", Avatar: "/images/doc.png", Status: models.ConversationArchived},
	}
}

const heartRateAdvice = `Thanks for sharing your heart rate. A resting heart rate of 97 bpm is still within the normal range (60–100 bpm), but it's on the higher side. This can sometimes be influenced by stress, caffeine, dehydration, or lack of sleep.

To help bring it down, I recommend:
• Staying hydrated and limiting caffeine or alcohol.
• Getting enough rest and practicing relaxation techniques like deep breathing.
• Maintaining regular physical activity such as walking or light exercise.

If your heart rate stays elevated over time or you notice symptoms like chest pain, dizziness, or shortness of breath, schedule a check-up so we can rule out any underlying issues.`

func patientMessages() map[int][]models.ChatMessage {
	return map[int][]models.ChatMessage{
		1: {
			{ID: 1, Sender: models.SenderDoctor, Text: "Thanks for sharing your heart rate. What else are you experiencing today?", Time: "11:20 PM"},
			{ID: 2, Sender: models.SenderPatient, Text: "My heart rate is 97 bpm. What can I do to improve my health?", Time: "11:25 PM"},
			{ID: 3, Sender: models.SenderDoctor, Text: heartRateAdvice, Time: "11:28 PM"},
			{ID: 4, Sender: models.SenderPatient, Text: "Ok. Thank you!", Time: "11:30 PM"},
		},
		2: {
			{ID: 1, Sender: models.SenderDoctor, Text: "How are you feeling after the new medication?", Time: "9:30 PM"},
			{ID: 2, Sender: models.SenderPatient, Text: "I'm feeling better but still a bit light-headed.", Time: "9:40 PM"},
		},
		3: {
			{ID: 1, Sender: models.SenderDoctor, Text: "Reminder: your follow-up is next Wednesday at 10:00 AM.", Time: "Yesterday"},
		},
	}
}
