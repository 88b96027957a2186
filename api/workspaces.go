package api

import (
	"log"
	"sync"
	"time"

	"telehealth/models"
	"telehealth/tracker"
	"telehealth/utils"
)

// Workspace holds the dashboard state of one signed-in user.
// Appointments is set for doctors, Scheduler for patients.
type Workspace struct {
	Appointments  *tracker.Appointments
	Scheduler     *tracker.Scheduler
	Conversations *tracker.Conversations
}

func newWorkspace(role models.Role, replyDelay time.Duration) *Workspace {
	if role == models.RoleDoctor {
		return &Workspace{
			Appointments:  tracker.NewAppointments(),
			Conversations: tracker.NewDoctorConversations(replyDelay),
		}
	}
	return &Workspace{
		Scheduler:     tracker.NewScheduler(),
		Conversations: tracker.NewPatientConversations(replyDelay),
	}
}

func (w *Workspace) close() {
	w.Conversations.Close()
}

// Workspaces creates workspaces lazily, one per user email.
type Workspaces struct {
	mu         sync.Mutex
	byEmail    map[string]*Workspace
	replyDelay time.Duration
}

// NewWorkspaces creates an empty registry whose conversations reply after replyDelay.
func NewWorkspaces(replyDelay time.Duration) *Workspaces {
	return &Workspaces{byEmail: make(map[string]*Workspace), replyDelay: replyDelay}
}

// Get returns the workspace of email, creating it with fixtures for role on first use.
func (w *Workspaces) Get(email string, role models.Role) *Workspace {
	email = utils.NormalizeEmail(email)

	w.mu.Lock()
	defer w.mu.Unlock()
	ws, ok := w.byEmail[email]
	if !ok {
		ws = newWorkspace(role, w.replyDelay)
		w.byEmail[email] = ws
		log.Printf("DEBUG: Created %s workspace for %s", role, email)
	}
	return ws
}

// Drop discards the workspace of email and cancels its pending replies.
func (w *Workspaces) Drop(email string) {
	email = utils.NormalizeEmail(email)

	w.mu.Lock()
	ws, ok := w.byEmail[email]
	delete(w.byEmail, email)
	w.mu.Unlock()

	if ok {
		ws.close()
	}
}

// Close drops every workspace.
func (w *Workspaces) Close() {
	w.mu.Lock()
	all := w.byEmail
	w.byEmail = make(map[string]*Workspace)
	w.mu.Unlock()

	for _, ws := range all {
		ws.close()
	}
}
